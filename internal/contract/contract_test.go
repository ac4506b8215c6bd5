package contract

import (
	"errors"
	"testing"
	"time"

	"github.com/quantship/contractd/internal/domain"
)

// fakeClock is a manually advanced Clock for deterministic expiry tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func target(v float64) *float64 { return &v }

func newLadder(t *testing.T, clock Clock, durationMs int64, rungs []float64) *Contract {
	t.Helper()
	c, err := New(domain.TypeLuckyLadder, domain.Params{
		ContractID: "lad-1",
		Duration:   durationMs,
		Rungs:      rungs,
	}, clock)
	if err != nil {
		t.Fatalf("New ladder: %v", err)
	}
	return c
}

func newMomentum(t *testing.T, clock Clock, durationMs int64, tgt float64) *Contract {
	t.Helper()
	c, err := New(domain.TypeMomentumCatcher, domain.Params{
		ContractID:     "mom-1",
		Duration:       durationMs,
		TargetMovement: target(tgt),
	}, clock)
	if err != nil {
		t.Fatalf("New momentum: %v", err)
	}
	return c
}

func TestNewValidation(t *testing.T) {
	clock := newFakeClock()

	tests := []struct {
		name string
		typ  domain.ContractType
		p    domain.Params
	}{
		{
			name: "missing contract id",
			typ:  domain.TypeLuckyLadder,
			p:    domain.Params{Duration: 1000, Rungs: []float64{10}},
		},
		{
			name: "zero duration",
			typ:  domain.TypeLuckyLadder,
			p:    domain.Params{ContractID: "c1", Rungs: []float64{10}},
		},
		{
			name: "negative duration",
			typ:  domain.TypeMomentumCatcher,
			p:    domain.Params{ContractID: "c1", Duration: -5, TargetMovement: target(5)},
		},
		{
			name: "ladder without rungs",
			typ:  domain.TypeLuckyLadder,
			p:    domain.Params{ContractID: "c1", Duration: 1000},
		},
		{
			name: "momentum without target",
			typ:  domain.TypeMomentumCatcher,
			p:    domain.Params{ContractID: "c1", Duration: 1000},
		},
		{
			name: "unknown type",
			typ:  domain.ContractType("knockout"),
			p:    domain.Params{ContractID: "c1", Duration: 1000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.typ, tt.p, clock); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}

func TestFirstTickActivates(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 6000, []float64{10, 20, 30})

	if c.State() != domain.StateUninitialized {
		t.Fatalf("state before first tick = %s", c.State())
	}

	ts := clock.Now()
	res := c.ApplyTick(10.0, ts)

	if res.Status != domain.StateActive {
		t.Fatalf("activation tick status = %s, want active", res.Status)
	}
	if res.LadderOutcome != nil {
		t.Fatal("activation tick must not run variant logic")
	}
	if res.ElapsedMs != 0 {
		t.Fatalf("activation tick elapsed = %d, want 0", res.ElapsedMs)
	}
	if !c.Started() {
		t.Fatal("contract not started after activation tick")
	}
	if c.LastResult() != nil {
		t.Fatal("activation tick must not be recorded as last result")
	}
	if c.CurrentPrice() == nil || *c.CurrentPrice() != 10.0 {
		t.Fatal("activation tick must record the price")
	}
}

func TestExpiryCheckedBeforeVariant(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 6000, []float64{10, 20, 30})
	c.Start()

	clock.Advance(6 * time.Second)

	// The price is exactly on a rung, but expiry wins.
	res := c.ApplyTick(20.0, clock.Now())
	if res.Status != domain.StateExpired {
		t.Fatalf("status = %s, want expired", res.Status)
	}
	if res.LadderOutcome != nil {
		t.Fatal("expired tick must not carry variant fields")
	}
	if res.ElapsedMs != 6000 {
		t.Fatalf("elapsed = %d, want 6000", res.ElapsedMs)
	}
	if c.LastResult() != nil {
		t.Fatal("expiry response must not overwrite last result")
	}
}

func TestExpiredStatusPersists(t *testing.T) {
	clock := newFakeClock()
	c := newMomentum(t, clock, 1000, 5)
	c.Start()

	clock.Advance(2 * time.Second)
	if res := c.ApplyTick(100, clock.Now()); res.Status != domain.StateExpired {
		t.Fatalf("first post-deadline tick status = %s", res.Status)
	}

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		if res := c.ApplyTick(100, clock.Now()); res.Status != domain.StateExpired {
			t.Fatalf("tick %d after expiry status = %s, want expired", i, res.Status)
		}
	}
}

func TestTargetHitThenInactive(t *testing.T) {
	clock := newFakeClock()
	c := newMomentum(t, clock, 60000, 5)
	c.Start()

	c.ApplyTick(100, clock.Now())
	c.ApplyTick(104, clock.Now())

	res := c.ApplyTick(96, clock.Now())
	if res.Status != domain.StateTargetHit {
		t.Fatalf("status = %s, want target_hit", res.Status)
	}
	if c.State() != domain.StateTargetHit {
		t.Fatalf("state = %s, want target_hit", c.State())
	}

	// Terminal: later ticks report inactive and skip variant processing.
	res = c.ApplyTick(200, clock.Now())
	if res.Status != domain.StateInactive {
		t.Fatalf("post-terminal status = %s, want inactive", res.Status)
	}
	if res.MomentumOutcome != nil {
		t.Fatal("post-terminal tick must not carry variant fields")
	}
	if c.LastResult().Status != domain.StateTargetHit {
		t.Fatal("last result must stay the target_hit result")
	}
}

func TestTickTimestampEchoedNotUsed(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 6000, []float64{10})
	c.Start()

	// A far-future caller timestamp must not trigger expiry.
	future := clock.Now().Add(time.Hour)
	res := c.ApplyTick(5, future)
	if res.Status != domain.StateActive {
		t.Fatalf("status = %s, want active", res.Status)
	}
	if !res.Timestamp.Equal(future) {
		t.Fatalf("timestamp = %v, want echoed %v", res.Timestamp, future)
	}
}

func TestReconcileExpiry(t *testing.T) {
	t.Run("flips active past deadline", func(t *testing.T) {
		clock := newFakeClock()
		c := newLadder(t, clock, 1000, []float64{10})
		c.Start()
		clock.Advance(1500 * time.Millisecond)

		if !c.ReconcileExpiry() {
			t.Fatal("want transition")
		}
		if c.State() != domain.StateExpired {
			t.Fatalf("state = %s", c.State())
		}
		if c.ReconcileExpiry() {
			t.Fatal("second call must be a no-op")
		}
	})

	t.Run("leaves active within deadline", func(t *testing.T) {
		clock := newFakeClock()
		c := newLadder(t, clock, 1000, []float64{10})
		c.Start()
		clock.Advance(500 * time.Millisecond)

		if c.ReconcileExpiry() {
			t.Fatal("unexpected transition")
		}
		if c.State() != domain.StateActive {
			t.Fatalf("state = %s", c.State())
		}
	})

	t.Run("never touches terminal states", func(t *testing.T) {
		clock := newFakeClock()
		c := newMomentum(t, clock, 1000, 1)
		c.Start()
		c.ApplyTick(100, clock.Now())
		c.ApplyTick(102, clock.Now())
		if c.State() != domain.StateTargetHit {
			t.Fatalf("setup: state = %s", c.State())
		}

		clock.Advance(time.Hour)
		if c.ReconcileExpiry() {
			t.Fatal("terminal contract must not transition")
		}
		if c.State() != domain.StateTargetHit {
			t.Fatalf("state = %s", c.State())
		}
	})
}
