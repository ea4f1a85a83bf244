package model

import "time"

// TickSnapshot is the tick state of a pool as fetched by one poll.
type TickSnapshot struct {
	PoolID      uint64    `json:"pool_id"`
	CurrentTick int64     `json:"current_tick"`
	TickSpacing int64     `json:"tick_spacing"`
	FetchedAt   time.Time `json:"fetched_at"`
}
