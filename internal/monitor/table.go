package monitor

import (
	"sync"

	"tickwatch/internal/model"
)

// TickTable holds the last observed snapshot per pool for the process
// lifetime. Each pool's slot is written only by that pool's poll loop; the
// lock exists because Go maps do not allow concurrent writers on any key.
type TickTable struct {
	mu   sync.RWMutex
	data map[uint64]model.TickSnapshot
}

func NewTickTable() *TickTable {
	return &TickTable{data: make(map[uint64]model.TickSnapshot)}
}

// Get returns the last snapshot stored for poolID.
func (t *TickTable) Get(poolID uint64) (model.TickSnapshot, bool) {
	t.mu.RLock()
	snap, ok := t.data[poolID]
	t.mu.RUnlock()
	return snap, ok
}

// Set overwrites the slot for snap.PoolID.
func (t *TickTable) Set(snap model.TickSnapshot) {
	t.mu.Lock()
	t.data[snap.PoolID] = snap
	t.mu.Unlock()
}

// Len returns the number of seeded pools.
func (t *TickTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}
