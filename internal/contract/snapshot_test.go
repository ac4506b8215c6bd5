package contract

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/quantship/contractd/internal/domain"
)

func TestSnapshotRestoreLadder(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 6000, []float64{10, 20, 30})
	c.Start()
	c.ApplyTick(10, clock.Now())
	clock.Advance(2 * time.Second)
	c.ApplyTick(20, clock.Now())

	snap := c.Snapshot()
	if snap.ID != "lad-1" || snap.Type != domain.TypeLuckyLadder {
		t.Fatalf("snapshot identity = %s/%s", snap.ID, snap.Type)
	}
	if !snap.IsActive {
		t.Fatal("snapshot of active contract must be active")
	}
	if snap.Duration != 6000 {
		t.Fatalf("snapshot duration = %d", snap.Duration)
	}

	// Restore on a fresh clock as if the process restarted immediately.
	restoreClock := newFakeClock()
	restoreClock.Advance(2 * time.Second)
	r, err := Restore(snap, restoreClock)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if r.State() != domain.StateActive {
		t.Fatalf("restored state = %s", r.State())
	}
	if got := r.Elapsed(); got != 2*time.Second {
		t.Fatalf("restored elapsed = %v, want 2s", got)
	}
	if r.CurrentPrice() == nil || *r.CurrentPrice() != 20 {
		t.Fatal("restored current price mismatch")
	}

	// Hit set survives: 20 was already hit, only 30 (and a re-hit of 10)
	// remain reachable as new hits.
	res := r.ApplyTick(30, restoreClock.Now())
	if !floatsEqual(res.AllRungsHit, []float64{10, 20, 30}) {
		t.Fatalf("all rungs hit after restore = %v", res.AllRungsHit)
	}
}

func TestSnapshotRestoreMomentum(t *testing.T) {
	clock := newFakeClock()
	c := newMomentum(t, clock, 60000, 5)
	c.Start()
	c.ApplyTick(100, clock.Now())
	c.ApplyTick(103, clock.Now())

	snap := c.Snapshot()

	restoreClock := newFakeClock()
	r, err := Restore(snap, restoreClock)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	// Max movement of 3 survives; a 2-point step from the restored last
	// price of 103 must not hit, a 5-point step must.
	res := r.ApplyTick(105, restoreClock.Now())
	if res.Status != domain.StateActive || res.MaxMovement != 3 {
		t.Fatalf("status = %s, max = %v", res.Status, res.MaxMovement)
	}
	res = r.ApplyTick(110, restoreClock.Now())
	if res.Status != domain.StateTargetHit {
		t.Fatalf("status = %s, want target_hit", res.Status)
	}
}

func TestRestoreElapsedBudgetSpent(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 6000, []float64{10})
	c.Start()
	clock.Advance(4 * time.Second)

	snap := c.Snapshot()

	// The restore clock starts 4s after the persisted wall start time, so the
	// contract has 2s of budget left.
	restoreClock := newFakeClock()
	restoreClock.Advance(4 * time.Second)
	r, err := Restore(snap, restoreClock)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if r.ReconcileExpiry() {
		t.Fatal("contract with budget left must not expire on restore")
	}

	restoreClock.Advance(3 * time.Second)
	if !r.ReconcileExpiry() {
		t.Fatal("contract past its remaining budget must expire")
	}
}

func TestRestorePastDeadline(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 1000, []float64{10})
	c.Start()

	snap := c.Snapshot()

	restoreClock := newFakeClock()
	restoreClock.Advance(time.Hour)
	r, err := Restore(snap, restoreClock)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if !r.ReconcileExpiry() {
		t.Fatal("want expiry transition on reconcile")
	}
	if r.State() != domain.StateExpired {
		t.Fatalf("state = %s", r.State())
	}
}

func TestRestoreInactiveSnapshots(t *testing.T) {
	t.Run("target hit stays terminal", func(t *testing.T) {
		clock := newFakeClock()
		c := newMomentum(t, clock, 60000, 2)
		c.Start()
		c.ApplyTick(100, clock.Now())
		c.ApplyTick(103, clock.Now())
		if c.State() != domain.StateTargetHit {
			t.Fatalf("setup: state = %s", c.State())
		}

		snap := c.Snapshot()
		if snap.IsActive {
			t.Fatal("terminal snapshot must not be active")
		}

		r, err := Restore(snap, newFakeClock())
		if err != nil {
			t.Fatalf("Restore: %v", err)
		}
		if r.State() != domain.StateTargetHit {
			t.Fatalf("restored state = %s, want target_hit", r.State())
		}
	})

	t.Run("expired stays expired", func(t *testing.T) {
		clock := newFakeClock()
		c := newLadder(t, clock, 1000, []float64{10})
		c.Start()
		clock.Advance(2 * time.Second)
		c.ApplyTick(10, clock.Now())
		if c.State() != domain.StateExpired {
			t.Fatalf("setup: state = %s", c.State())
		}

		snap := c.Snapshot()
		restoreClock := newFakeClock()
		restoreClock.Advance(2 * time.Second)
		r, err := Restore(snap, restoreClock)
		if err != nil {
			t.Fatalf("Restore: %v", err)
		}
		if r.State() != domain.StateExpired {
			t.Fatalf("restored state = %s, want expired", r.State())
		}
	})
}

func TestRestoreActiveWithoutStartTime(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 6000, []float64{10})

	// Never started, so the snapshot carries no start time. Persisted as
	// inactive too, but force the active flag to model a writer that marked
	// it active before starting the clock.
	snap := c.Snapshot()
	snap.IsActive = true

	r, err := Restore(snap, newFakeClock())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.Started() {
		t.Fatal("restored contract without start time must not be started")
	}
	if r.State() != domain.StateUninitialized {
		t.Fatalf("state = %s, want uninitialized", r.State())
	}
}

func TestRestoreMalformedParameters(t *testing.T) {
	snap := domain.Snapshot{
		ID:         "bad-1",
		Type:       domain.TypeLuckyLadder,
		Parameters: []byte(`{"duration": "not a number"`),
		Duration:   1000,
	}
	if _, err := Restore(snap, newFakeClock()); err == nil {
		t.Fatal("want error for malformed parameters")
	}
}

func TestRestoreDropsUnknownHitRungs(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 6000, []float64{10, 20})
	c.Start()
	c.ApplyTick(10, clock.Now())

	snap := c.Snapshot()

	// Corrupt the hit set with a value outside the rung set.
	var params domain.SnapshotParams
	if err := json.Unmarshal(snap.Parameters, &params); err != nil {
		t.Fatalf("decode: %v", err)
	}
	params.HitRungs = append(params.HitRungs, 99)
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	snap.Parameters = raw

	r, err := Restore(snap, newFakeClock())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	res := r.ApplyTick(5, newFakeClock().Now())
	if !floatsEqual(res.AllRungsHit, []float64{10}) {
		t.Fatalf("all rungs hit = %v, want foreign rung dropped", res.AllRungsHit)
	}
}
