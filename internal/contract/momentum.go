package contract

import "github.com/quantship/contractd/internal/domain"

// momentumState tracks the largest absolute price movement between
// consecutive ticks since activation. Movement is tick-to-tick, not distance
// from the first observed price. Once the running maximum reaches the target
// the contract is terminal.
type momentumState struct {
	target      float64
	lastPrice   *float64
	maxMovement float64
}

func newMomentumState(target float64) *momentumState {
	return &momentumState{target: target}
}

func (m *momentumState) process(price float64) domain.Result {
	if m.lastPrice == nil {
		// Baseline tick: record the price, report zero movement, and do not
		// evaluate the target.
		m.lastPrice = &price
		return domain.Result{
			Status: domain.StateActive,
			Price:  price,
			MomentumOutcome: &domain.MomentumOutcome{
				Movement:       0,
				MaxMovement:    0,
				TargetMovement: m.target,
				TargetHit:      false,
			},
		}
	}

	movement := abs(price - *m.lastPrice)
	if movement > m.maxMovement {
		m.maxMovement = movement
	}
	targetHit := m.maxMovement >= abs(m.target)
	m.lastPrice = &price

	status := domain.StateActive
	if targetHit {
		status = domain.StateTargetHit
	}
	return domain.Result{
		Status: status,
		Price:  price,
		MomentumOutcome: &domain.MomentumOutcome{
			Movement:       movement,
			MaxMovement:    m.maxMovement,
			TargetMovement: m.target,
			TargetHit:      targetHit,
		},
	}
}
