package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps slots in process memory. Used by tests and the "memory" driver.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[Slot][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[Slot][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context, slot Slot) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.slots[slot]
	if !ok {
		return nil, ErrSlotEmpty
	}
	return append([]byte(nil), payload...), nil
}

func (m *MemoryStore) Save(ctx context.Context, slot Slot, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = append([]byte(nil), payload...)
	return nil
}

var _ SnapshotStore = (*MemoryStore)(nil)
