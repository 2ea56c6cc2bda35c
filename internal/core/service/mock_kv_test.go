package service

import (
	"context"
	"errors"
	"sync"
)

var errStorageDown = errors.New("storage down")

// mockKV is an in-memory KeyValueStore with failure injection.
type mockKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	writes  map[string]int
	failGet bool
	failSet map[string]bool
}

func newMockKV() *mockKV {
	return &mockKV{
		data:    make(map[string][]byte),
		writes:  make(map[string]int),
		failSet: make(map[string]bool),
	}
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errStorageDown
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet[key] {
		return errStorageDown
	}
	m.data[key] = append([]byte(nil), value...)
	m.writes[key]++
	return nil
}

func (m *mockKV) Ping(ctx context.Context) error { return nil }

func (m *mockKV) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = []byte(value)
}

func (m *mockKV) raw(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data[key])
}

func (m *mockKV) writeCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[key]
}

func (m *mockKV) failWrites(key string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet[key] = fail
}
