package model

import "time"

// Alert records a notification raised for a pool.
type Alert struct {
	PoolID       uint64    `json:"pool_id"`
	PoolName     string    `json:"pool_name"`
	Kind         string    `json:"kind"`
	Boundary     string    `json:"boundary,omitempty"`
	PreviousTick int64     `json:"previous_tick"`
	CurrentTick  int64     `json:"current_tick"`
	LowerTick    int64     `json:"lower_tick"`
	UpperTick    int64     `json:"upper_tick"`
	Threshold    int64     `json:"threshold"`
	Message      string    `json:"message"`
	RaisedAt     time.Time `json:"raised_at"`
}
