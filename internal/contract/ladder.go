package contract

import (
	"fmt"
	"sort"

	"github.com/quantship/contractd/internal/domain"
)

// rungEpsilon is the absolute tolerance for a rung hit. Tick feeds carry
// floating-point noise, so exact equality would miss legitimate touches.
const rungEpsilon = 0.0001

// ladderState watches a fixed set of target price levels. It never leaves
// the active state on its own; only expiry ends a ladder contract. Hitting
// every rung has no terminal effect.
type ladderState struct {
	rungs []float64 // sorted ascending, no duplicates
	hit   []float64 // cumulative subset of rungs, same ordering
}

func newLadderState(rungs []float64) (*ladderState, error) {
	if len(rungs) == 0 {
		return nil, fmt.Errorf("%w: rungs are required for %s", domain.ErrValidation, domain.TypeLuckyLadder)
	}
	return &ladderState{rungs: sortedUnique(rungs)}, nil
}

func (l *ladderState) process(price float64) domain.Result {
	var hits []float64
	for _, rung := range l.rungs {
		if abs(price-rung) < rungEpsilon {
			hits = append(hits, rung)
		}
	}
	if len(hits) > 0 {
		l.hit = sortedUnique(append(l.hit, hits...))
	}

	remaining := make([]float64, 0, len(l.rungs)-len(l.hit))
	for _, rung := range l.rungs {
		if !contains(l.hit, rung) {
			remaining = append(remaining, rung)
		}
	}
	if hits == nil {
		hits = []float64{}
	}

	return domain.Result{
		Status: domain.StateActive,
		Price:  price,
		LadderOutcome: &domain.LadderOutcome{
			RungsHit:       hits,
			AllRungsHit:    append([]float64{}, l.hit...),
			RemainingRungs: remaining,
		},
	}
}

func sortedUnique(vals []float64) []float64 {
	out := append([]float64(nil), vals...)
	sort.Float64s(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

func contains(sorted []float64, v float64) bool {
	i := sort.SearchFloat64s(sorted, v)
	return i < len(sorted) && sorted[i] == v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
