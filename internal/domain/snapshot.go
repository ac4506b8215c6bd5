package domain

import "encoding/json"

// Snapshot is the self-describing serialized form of a contract as stored in
// the durable store. Type selects the variant to rebuild on restoration;
// Parameters is the JSON-encoded SnapshotParams bag. CreatedAt and StartTime
// are wall-clock unix milliseconds.
type Snapshot struct {
	ID         string          `json:"id"`
	Type       ContractType    `json:"type"`
	Parameters json.RawMessage `json:"parameters"`
	CreatedAt  int64           `json:"created_at"`
	IsActive   bool            `json:"is_active"`
	Duration   int64           `json:"duration"`
}

// SnapshotParams is the parameters bag inside a Snapshot. Variant-specific
// fields are present only for the matching contract type.
type SnapshotParams struct {
	Duration     int64    `json:"duration"`
	Payoff       float64  `json:"payoff"`
	IsActive     bool     `json:"is_active"`
	StartTime    int64    `json:"start_time,omitempty"` // unix ms; 0 = never started
	CurrentPrice *float64 `json:"current_price,omitempty"`
	LastResult   *Result  `json:"last_result,omitempty"`

	// lucky_ladder
	Rungs    []float64 `json:"rungs,omitempty"`
	HitRungs []float64 `json:"hit_rungs,omitempty"`

	// momentum_catcher
	TargetMovement *float64 `json:"target_movement,omitempty"`
	LastPrice      *float64 `json:"last_price,omitempty"`
	MaxMovement    float64  `json:"max_movement,omitempty"`
}
