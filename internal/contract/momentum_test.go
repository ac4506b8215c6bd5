package contract

import (
	"testing"
	"time"

	"github.com/quantship/contractd/internal/domain"
)

func TestMomentumScenario(t *testing.T) {
	clock := newFakeClock()
	c := newMomentum(t, clock, 60000, 5)
	c.Start()

	t.Run("baseline tick reports zero movement", func(t *testing.T) {
		res := c.ApplyTick(100, clock.Now())
		if res.Status != domain.StateActive {
			t.Fatalf("status = %s", res.Status)
		}
		if res.Movement != 0 || res.MaxMovement != 0 {
			t.Fatalf("movement = %v, max = %v, want zero", res.Movement, res.MaxMovement)
		}
		if res.TargetHit {
			t.Fatal("baseline tick must not evaluate the target")
		}
	})

	t.Run("movement below target stays active", func(t *testing.T) {
		res := c.ApplyTick(104, clock.Now())
		if res.Movement != 4 {
			t.Fatalf("movement = %v, want 4", res.Movement)
		}
		if res.MaxMovement != 4 {
			t.Fatalf("max movement = %v, want 4", res.MaxMovement)
		}
		if res.Status != domain.StateActive || res.TargetHit {
			t.Fatalf("status = %s, target hit = %v", res.Status, res.TargetHit)
		}
	})

	t.Run("movement reaching target terminates", func(t *testing.T) {
		res := c.ApplyTick(96, clock.Now())
		if res.Movement != 8 {
			t.Fatalf("movement = %v, want 8", res.Movement)
		}
		if res.MaxMovement != 8 {
			t.Fatalf("max movement = %v, want 8", res.MaxMovement)
		}
		if res.Status != domain.StateTargetHit || !res.TargetHit {
			t.Fatalf("status = %s, target hit = %v", res.Status, res.TargetHit)
		}
	})

	t.Run("subsequent ticks report inactive", func(t *testing.T) {
		res := c.ApplyTick(50, clock.Now())
		if res.Status != domain.StateInactive {
			t.Fatalf("status = %s, want inactive", res.Status)
		}
	})
}

func TestMomentumMaxMovementMonotone(t *testing.T) {
	clock := newFakeClock()
	c := newMomentum(t, clock, 60000, 100)
	c.Start()

	prices := []float64{50, 53, 52, 60, 60.5, 59}
	wantMax := []float64{0, 3, 3, 8, 8, 8}

	for i, p := range prices {
		res := c.ApplyTick(p, clock.Now())
		if res.MaxMovement != wantMax[i] {
			t.Fatalf("tick %d (price %v): max = %v, want %v", i, p, res.MaxMovement, wantMax[i])
		}
	}
}

func TestMomentumMovementIsTickToTick(t *testing.T) {
	clock := newFakeClock()
	c := newMomentum(t, clock, 60000, 10)
	c.Start()

	// Each step moves 4 from the previous tick; total drift from the first
	// price is 12, but no single step reaches the target of 10.
	for _, p := range []float64{100, 104, 108, 112} {
		res := c.ApplyTick(p, clock.Now())
		if res.Status != domain.StateActive {
			t.Fatalf("price %v: status = %s, want active", p, res.Status)
		}
	}
}

func TestMomentumNegativeTarget(t *testing.T) {
	clock := newFakeClock()
	c := newMomentum(t, clock, 60000, -5)
	c.Start()

	c.ApplyTick(100, clock.Now())
	res := c.ApplyTick(94, clock.Now())
	if res.Status != domain.StateTargetHit {
		t.Fatalf("status = %s, want target_hit against |target|", res.Status)
	}
}

func TestMomentumExactTargetCounts(t *testing.T) {
	clock := newFakeClock()
	c := newMomentum(t, clock, 60000, 5)
	c.Start()

	c.ApplyTick(100, clock.Now())
	res := c.ApplyTick(105, clock.Now())
	if res.Status != domain.StateTargetHit {
		t.Fatalf("status = %s, movement equal to target must hit", res.Status)
	}
}

func TestMomentumExpiresBeforeTarget(t *testing.T) {
	clock := newFakeClock()
	c := newMomentum(t, clock, 1000, 5)
	c.Start()

	c.ApplyTick(100, clock.Now())
	clock.Advance(1100 * time.Millisecond)

	// Movement would hit the target, but the deadline has passed.
	res := c.ApplyTick(110, clock.Now())
	if res.Status != domain.StateExpired {
		t.Fatalf("status = %s, want expired", res.Status)
	}
	if res.MomentumOutcome != nil {
		t.Fatal("expired tick must not carry variant fields")
	}
}
