package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/edirooss/actorkit/gen"
)

// memAdapter is an in-memory StorageAdapter fixture for Coupler tests.
type memAdapter struct {
	mu    sync.Mutex
	data  map[string][]byte
	saved map[string]time.Time
	fail  error // when set, Load/Save return this error instead
}

func newMemAdapter() *memAdapter {
	return &memAdapter{data: make(map[string][]byte), saved: make(map[string]time.Time)}
}

func (m *memAdapter) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	d, ok := m.data[key]
	if !ok {
		return nil, gen.ErrStateNotFound
	}
	return d, nil
}

func (m *memAdapter) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.data[key] = data
	m.saved[key] = time.Now()
	return nil
}

func (m *memAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memAdapter) CleanupOlderThan(_ context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.saved {
		if t.Before(before) {
			delete(m.data, k)
			delete(m.saved, k)
		}
	}
	return nil
}

func (m *memAdapter) Close() error { return nil }
