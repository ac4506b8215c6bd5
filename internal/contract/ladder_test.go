package contract

import (
	"testing"
	"time"

	"github.com/quantship/contractd/internal/domain"
)

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLadderRungHits(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 6000, []float64{10, 20, 30})
	c.Start()

	t.Run("miss reports empty hit sets", func(t *testing.T) {
		res := c.ApplyTick(15, clock.Now())
		if res.Status != domain.StateActive {
			t.Fatalf("status = %s", res.Status)
		}
		if !floatsEqual(res.RungsHit, []float64{}) {
			t.Fatalf("rungs hit = %v, want empty", res.RungsHit)
		}
		if !floatsEqual(res.AllRungsHit, []float64{}) {
			t.Fatalf("all rungs hit = %v, want empty", res.AllRungsHit)
		}
		if !floatsEqual(res.RemainingRungs, []float64{10, 20, 30}) {
			t.Fatalf("remaining = %v", res.RemainingRungs)
		}
	})

	t.Run("exact hit", func(t *testing.T) {
		res := c.ApplyTick(10, clock.Now())
		if !floatsEqual(res.RungsHit, []float64{10}) {
			t.Fatalf("rungs hit = %v", res.RungsHit)
		}
		if !floatsEqual(res.AllRungsHit, []float64{10}) {
			t.Fatalf("all rungs hit = %v", res.AllRungsHit)
		}
		if !floatsEqual(res.RemainingRungs, []float64{20, 30}) {
			t.Fatalf("remaining = %v", res.RemainingRungs)
		}
	})

	t.Run("tolerance hit", func(t *testing.T) {
		res := c.ApplyTick(20.00005, clock.Now())
		if !floatsEqual(res.RungsHit, []float64{20}) {
			t.Fatalf("rungs hit = %v", res.RungsHit)
		}
		if !floatsEqual(res.AllRungsHit, []float64{10, 20}) {
			t.Fatalf("all rungs hit = %v", res.AllRungsHit)
		}
	})

	t.Run("tolerance boundary is exclusive", func(t *testing.T) {
		res := c.ApplyTick(30.0001, clock.Now())
		if !floatsEqual(res.RungsHit, []float64{}) {
			t.Fatalf("rungs hit = %v, want empty", res.RungsHit)
		}
	})

	t.Run("re-hit is idempotent", func(t *testing.T) {
		res := c.ApplyTick(10, clock.Now())
		if !floatsEqual(res.RungsHit, []float64{10}) {
			t.Fatalf("rungs hit = %v", res.RungsHit)
		}
		if !floatsEqual(res.AllRungsHit, []float64{10, 20}) {
			t.Fatalf("all rungs hit grew on re-hit: %v", res.AllRungsHit)
		}
	})

	t.Run("all rungs hit is not terminal", func(t *testing.T) {
		res := c.ApplyTick(30, clock.Now())
		if !floatsEqual(res.AllRungsHit, []float64{10, 20, 30}) {
			t.Fatalf("all rungs hit = %v", res.AllRungsHit)
		}
		if !floatsEqual(res.RemainingRungs, []float64{}) {
			t.Fatalf("remaining = %v", res.RemainingRungs)
		}
		if res.Status != domain.StateActive {
			t.Fatalf("status = %s, want active", res.Status)
		}
		if c.State() != domain.StateActive {
			t.Fatalf("state = %s, want active", c.State())
		}
	})

	t.Run("expiry ends the contract", func(t *testing.T) {
		clock.Advance(6 * time.Second)
		res := c.ApplyTick(10, clock.Now())
		if res.Status != domain.StateExpired {
			t.Fatalf("status = %s, want expired", res.Status)
		}
	})
}

func TestLadderHitAndRemainingPartitionRungs(t *testing.T) {
	clock := newFakeClock()
	c := newLadder(t, clock, 60000, []float64{5, 10, 15, 20})
	c.Start()

	for _, price := range []float64{10, 7, 20, 20, 15.00009, 3} {
		res := c.ApplyTick(price, clock.Now())
		merged := append(append([]float64(nil), res.AllRungsHit...), res.RemainingRungs...)
		if !floatsEqual(sortedUnique(merged), []float64{5, 10, 15, 20}) {
			t.Fatalf("price %v: hit %v + remaining %v does not partition rungs",
				price, res.AllRungsHit, res.RemainingRungs)
		}
		for _, r := range res.AllRungsHit {
			if contains(res.RemainingRungs, r) {
				t.Fatalf("rung %v in both hit and remaining", r)
			}
		}
	}
}

func TestLadderRungsSortedAndDeduped(t *testing.T) {
	clock := newFakeClock()
	c, err := New(domain.TypeLuckyLadder, domain.Params{
		ContractID: "lad-dup",
		Duration:   60000,
		Rungs:      []float64{30, 10, 20, 10},
	}, clock)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Start()

	res := c.ApplyTick(1, clock.Now())
	if !floatsEqual(res.RemainingRungs, []float64{10, 20, 30}) {
		t.Fatalf("remaining = %v, want sorted deduped rungs", res.RemainingRungs)
	}
}
