package contract

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantship/contractd/internal/domain"
)

// Snapshot serializes the contract's full state for the durable store. The
// start time is persisted as wall-clock unix milliseconds; the monotonic
// reading only exists inside one process and is reconstructed on restore.
func (c *Contract) Snapshot() domain.Snapshot {
	params := domain.SnapshotParams{
		Duration:     c.DurationMs(),
		Payoff:       c.payoff,
		IsActive:     c.state == domain.StateActive,
		CurrentPrice: c.currentPrice,
		LastResult:   c.lastResult,
	}
	if c.Started() {
		params.StartTime = c.startTime.UnixMilli()
	}

	switch c.typ {
	case domain.TypeLuckyLadder:
		params.Rungs = append([]float64(nil), c.ladder.rungs...)
		params.HitRungs = append([]float64(nil), c.ladder.hit...)
	case domain.TypeMomentumCatcher:
		target := c.momentum.target
		params.TargetMovement = &target
		params.LastPrice = c.momentum.lastPrice
		params.MaxMovement = c.momentum.maxMovement
	}

	raw, _ := json.Marshal(params)
	return domain.Snapshot{
		ID:         c.id,
		Type:       c.typ,
		Parameters: raw,
		CreatedAt:  c.createdAt.UnixMilli(),
		IsActive:   params.IsActive,
		Duration:   c.DurationMs(),
	}
}

// Restore rebuilds a contract instance from a stored snapshot. The variant
// is selected by the snapshot's type tag. An active snapshot with a recorded
// start time resumes with its already-spent budget back-dated onto the
// current clock; expiry reconciliation is the caller's responsibility. An
// active snapshot without a start time is returned not-yet-started, for the
// caller to start and persist. A decode or validation failure is returned
// as an error so bulk restoration can skip the single bad snapshot.
func Restore(snap domain.Snapshot, clock Clock) (*Contract, error) {
	if clock == nil {
		clock = SystemClock
	}

	var params domain.SnapshotParams
	if err := json.Unmarshal(snap.Parameters, &params); err != nil {
		return nil, fmt.Errorf("contract: decode snapshot %s: %w", snap.ID, err)
	}

	duration := snap.Duration
	if duration == 0 {
		duration = params.Duration
	}

	c, err := New(snap.Type, domain.Params{
		ContractID:     snap.ID,
		Duration:       duration,
		Payoff:         params.Payoff,
		Rungs:          params.Rungs,
		TargetMovement: params.TargetMovement,
	}, clock)
	if err != nil {
		return nil, err
	}

	if snap.CreatedAt > 0 {
		c.createdAt = time.UnixMilli(snap.CreatedAt)
	}
	c.currentPrice = params.CurrentPrice
	c.lastResult = params.LastResult

	switch c.typ {
	case domain.TypeLuckyLadder:
		hit := make([]float64, 0, len(params.HitRungs))
		for _, r := range params.HitRungs {
			if contains(c.ladder.rungs, r) {
				hit = append(hit, r)
			}
		}
		c.ladder.hit = sortedUnique(hit)
	case domain.TypeMomentumCatcher:
		c.momentum.lastPrice = params.LastPrice
		c.momentum.maxMovement = params.MaxMovement
	}

	var elapsed time.Duration
	if params.StartTime > 0 {
		elapsed = clock.Now().Sub(time.UnixMilli(params.StartTime))
		if elapsed < 0 {
			elapsed = 0
		}
		c.startAlreadyElapsed(elapsed)
	}

	if !snap.IsActive {
		switch {
		case c.lastResult != nil && c.lastResult.Status == domain.StateTargetHit:
			c.state = domain.StateTargetHit
		case params.StartTime > 0 && elapsed >= c.duration:
			c.state = domain.StateExpired
		default:
			c.state = domain.StateInactive
		}
	}

	return c, nil
}
