package model

import "time"

// Observation records one successful poll of a pool.
type Observation struct {
	PoolID       uint64    `json:"pool_id"`
	PoolName     string    `json:"pool_name"`
	CurrentTick  int64     `json:"current_tick"`
	TickSpacing  int64     `json:"tick_spacing"`
	PreviousTick *int64    `json:"previous_tick,omitempty"`
	LowerTick    int64     `json:"lower_tick"`
	UpperTick    int64     `json:"upper_tick"`
	ObservedAt   time.Time `json:"observed_at"`
}
