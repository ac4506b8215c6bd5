// Package contract implements the per-contract state machine: lifecycle and
// elapsed-time bookkeeping in the base machine, price processing in one of
// two payoff variants (lucky_ladder, momentum_catcher) selected by a type
// tag and dispatched through a single processPrice function.
package contract

import (
	"fmt"
	"time"

	"github.com/quantship/contractd/internal/domain"
)

// Contract is a single price-driven contract. It is not safe for concurrent
// use; the registry serializes access per contract identifier.
type Contract struct {
	id       string
	typ      domain.ContractType
	duration time.Duration
	payoff   float64
	clock    Clock

	state     domain.State
	startTime time.Time // from clock.Now(); zero until started
	createdAt time.Time

	currentPrice *float64
	lastResult   *domain.Result

	ladder   *ladderState
	momentum *momentumState
}

// New validates params and builds an uninitialized contract of the given
// type. The clock is not started; call Start or let the first tick start it.
func New(typ domain.ContractType, p domain.Params, clock Clock) (*Contract, error) {
	if clock == nil {
		clock = SystemClock
	}
	if p.ContractID == "" {
		return nil, fmt.Errorf("%w: contract_id is required", domain.ErrValidation)
	}
	if p.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d", domain.ErrValidation, p.Duration)
	}

	c := &Contract{
		id:        p.ContractID,
		typ:       typ,
		duration:  time.Duration(p.Duration) * time.Millisecond,
		payoff:    p.Payoff,
		clock:     clock,
		state:     domain.StateUninitialized,
		createdAt: clock.Now(),
	}

	switch typ {
	case domain.TypeLuckyLadder:
		ls, err := newLadderState(p.Rungs)
		if err != nil {
			return nil, err
		}
		c.ladder = ls
	case domain.TypeMomentumCatcher:
		if p.TargetMovement == nil {
			return nil, fmt.Errorf("%w: target_movement is required for %s", domain.ErrValidation, typ)
		}
		c.momentum = newMomentumState(*p.TargetMovement)
	default:
		return nil, fmt.Errorf("%w: unsupported contract type %q", domain.ErrValidation, typ)
	}

	return c, nil
}

// ID returns the contract identifier.
func (c *Contract) ID() string { return c.id }

// Type returns the payoff variant tag.
func (c *Contract) Type() domain.ContractType { return c.typ }

// State returns the current lifecycle state.
func (c *Contract) State() domain.State { return c.state }

// DurationMs returns the lifetime budget in milliseconds.
func (c *Contract) DurationMs() int64 { return c.duration.Milliseconds() }

// Payoff returns the informational payoff value.
func (c *Contract) Payoff() float64 { return c.payoff }

// Started reports whether the clock has been started.
func (c *Contract) Started() bool { return !c.startTime.IsZero() }

// CurrentPrice returns the last observed price, or nil before any tick.
func (c *Contract) CurrentPrice() *float64 { return c.currentPrice }

// LastResult returns the most recent variant-produced result, or nil if no
// tick has been processed by a variant yet.
func (c *Contract) LastResult() *domain.Result { return c.lastResult }

// Start activates the contract and sets start_time to now. It is not
// idempotent: a second call resets the clock. Callers start a contract at
// most once.
func (c *Contract) Start() {
	c.startTime = c.clock.Now()
	c.state = domain.StateActive
}

// startAlreadyElapsed activates a restored contract whose original start
// time implies `elapsed` of its budget is already spent. The start time is
// back-dated from the current clock reading so that later Elapsed calls stay
// on the monotonic timeline rather than the stored wall-clock value.
func (c *Contract) startAlreadyElapsed(elapsed time.Duration) {
	c.startTime = c.clock.Now().Add(-elapsed)
	c.state = domain.StateActive
}

// Elapsed returns the time since start, or zero if not yet started.
func (c *Contract) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return c.clock.Now().Sub(c.startTime)
}

// ReconcileExpiry flips an active contract whose elapsed time has reached
// its duration to expired. It returns true when a transition happened, so
// the caller knows a persist is due.
func (c *Contract) ReconcileExpiry() bool {
	if c.state != domain.StateActive {
		return false
	}
	if c.Elapsed() < c.duration {
		return false
	}
	c.state = domain.StateExpired
	return true
}

// ApplyTick runs the per-tick protocol: record the price unconditionally,
// auto-start a never-started contract, short-circuit non-active states,
// check expiry strictly before any variant logic, and only then delegate to
// the variant. ts is the caller's wall-clock timestamp, echoed back in the
// result and nothing else.
func (c *Contract) ApplyTick(price float64, ts time.Time) domain.Result {
	c.currentPrice = &price

	// A tick on a never-started contract both activates it and is consumed
	// without variant processing.
	if c.state == domain.StateUninitialized {
		c.Start()
		return domain.Result{
			Status:     domain.StateActive,
			ContractID: c.id,
			Price:      price,
			ElapsedMs:  0,
			Duration:   c.DurationMs(),
			Timestamp:  ts,
		}
	}

	if c.state != domain.StateActive {
		status := domain.StateInactive
		if c.state == domain.StateExpired {
			// Expiry stays visible: every tick after the deadline keeps
			// reporting expired rather than the generic inactive.
			status = domain.StateExpired
		}
		return domain.Result{
			Status:     status,
			ContractID: c.id,
			Price:      price,
			ElapsedMs:  c.Elapsed().Milliseconds(),
			Duration:   c.DurationMs(),
			Timestamp:  ts,
		}
	}

	elapsed := c.Elapsed()
	if elapsed >= c.duration {
		c.state = domain.StateExpired
		return domain.Result{
			Status:     domain.StateExpired,
			ContractID: c.id,
			Price:      price,
			ElapsedMs:  elapsed.Milliseconds(),
			Duration:   c.DurationMs(),
			Timestamp:  ts,
		}
	}

	res := c.processPrice(price)
	res.ContractID = c.id
	res.ElapsedMs = elapsed.Milliseconds()
	res.Duration = c.DurationMs()
	res.Timestamp = ts
	c.lastResult = &res
	return res
}

// processPrice dispatches an active-window tick to the variant behavior.
func (c *Contract) processPrice(price float64) domain.Result {
	switch c.typ {
	case domain.TypeLuckyLadder:
		return c.ladder.process(price)
	case domain.TypeMomentumCatcher:
		res := c.momentum.process(price)
		if res.Status == domain.StateTargetHit {
			c.state = domain.StateTargetHit
		}
		return res
	default:
		// Unreachable: New rejects unknown types.
		return domain.Result{Status: domain.StateInactive, Price: price}
	}
}
