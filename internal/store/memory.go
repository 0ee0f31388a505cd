package store

import (
	"context"
	"sync"
)

// Memory keeps values for the lifetime of the process.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) LoadLastValue(ctx context.Context, slot string) (string, error) {
	if err := validSlot(slot); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[slot]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) SaveLastValue(ctx context.Context, slot, value string) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[slot] = value
	return nil
}

func (m *Memory) Close() error { return nil }
