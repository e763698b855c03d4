package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory Backend, deep-copying on every read and write so
// callers can never alias another caller's byte slice.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	txMu sync.Mutex
	inTx bool
	snap map[string][]byte
}

var _ Backend = (*Memory)(nil)

// NewMemory builds an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Initialize(ctx context.Context) error { return nil }

func (m *Memory) Read(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Write(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	delete(m.data, key)
	return ok, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) SupportsTransactions() bool { return true }

// BeginTransaction snapshots the store, runs fn, and commits the snapshot
// atomically on success or discards it on error. Nested calls are no-ops
// that just invoke fn, matching the "nested scopes are no-ops inside the
// outer transaction" rule backends share.
func (m *Memory) BeginTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	if m.inTx {
		m.txMu.Unlock()
		return fn(ctx)
	}
	m.inTx = true
	m.mu.RLock()
	snapshot := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		snapshot[k] = append([]byte(nil), v...)
	}
	m.mu.RUnlock()
	m.snap = m.data
	m.mu.Lock()
	m.data = snapshot
	m.mu.Unlock()
	m.txMu.Unlock()

	err := fn(ctx)

	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.inTx = false
	if err != nil {
		m.mu.Lock()
		m.data = m.snap
		m.mu.Unlock()
		m.snap = nil
		return fmt.Errorf("storage: transaction rolled back: %w", err)
	}
	m.snap = nil
	return nil
}
