package domain

import "time"

// ContractType selects which payoff variant a contract runs.
type ContractType string

const (
	TypeLuckyLadder     ContractType = "lucky_ladder"
	TypeMomentumCatcher ContractType = "momentum_catcher"
)

// Valid reports whether the type tag names a known variant.
func (t ContractType) Valid() bool {
	return t == TypeLuckyLadder || t == TypeMomentumCatcher
}

// State is the lifecycle state of a contract.
//
// A contract is created uninitialized, becomes active on Start (or on its
// first tick), and ends up in exactly one of the non-active states. Expired
// and target_hit are terminal; inactive is the generic non-active state used
// for contracts restored from a snapshot that no longer carries a reason.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateActive        State = "active"
	StateExpired       State = "expired"
	StateTargetHit     State = "target_hit"
	StateInactive      State = "inactive"
)

// Terminal reports whether no further tick may reactivate the contract.
func (s State) Terminal() bool {
	return s == StateExpired || s == StateTargetHit || s == StateInactive
}

// Params holds the caller-supplied initialization parameters for a contract.
// Duration is in milliseconds. Rungs applies to lucky_ladder only;
// TargetMovement to momentum_catcher only.
type Params struct {
	ContractID     string    `json:"contract_id,omitempty"`
	Duration       int64     `json:"duration"`
	Payoff         float64   `json:"payoff"`
	Rungs          []float64 `json:"rungs,omitempty"`
	TargetMovement *float64  `json:"target_movement,omitempty"`
}

// LadderOutcome carries the lucky_ladder fields of a tick result.
type LadderOutcome struct {
	RungsHit       []float64 `json:"rungs_hit"`
	AllRungsHit    []float64 `json:"all_rungs_hit"`
	RemainingRungs []float64 `json:"remaining_rungs"`
}

// MomentumOutcome carries the momentum_catcher fields of a tick result.
type MomentumOutcome struct {
	Movement       float64 `json:"movement"`
	MaxMovement    float64 `json:"max_movement"`
	TargetMovement float64 `json:"target_movement"`
	TargetHit      bool    `json:"target_hit"`
}

// Result is the structured outcome of applying one price tick. The embedded
// outcome pointers flatten into the JSON payload, so a ladder result carries
// rungs_hit/all_rungs_hit/remaining_rungs alongside the common fields and a
// momentum result carries movement/max_movement/target_movement/target_hit.
//
// Timestamp is the wall-clock time echoed back to the caller; it plays no
// part in expiry arithmetic.
type Result struct {
	Status     State     `json:"status"`
	ContractID string    `json:"contractID,omitempty"`
	Price      float64   `json:"price"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	Duration   int64     `json:"duration"`
	Timestamp  time.Time `json:"timestamp,omitzero"`

	*LadderOutcome
	*MomentumOutcome
}
