package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is a map-backed store. It backs the "memory" config type and is
// the store of choice in tests. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, p string, data []byte) (string, error) {
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.objects[p] = cp
	m.mu.Unlock()

	return p, nil
}

func (m *Memory) Get(_ context.Context, p string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.objects[p]
	m.mu.RUnlock()

	if !ok {
		return nil, &OpError{Op: "get", Path: p, Err: ErrNotFound}
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	return cp, nil
}

func (m *Memory) List(_ context.Context, dir, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string

	for p := range m.objects {
		if !strings.HasPrefix(p, dir) {
			continue
		}

		ok, err := matchBasename(p, pattern)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, p)
		}
	}

	// Map iteration order is random; sort so tests see stable output.
	sort.Strings(out)

	return out, nil
}

func (m *Memory) Exists(_ context.Context, p string) (bool, error) {
	m.mu.RLock()
	_, ok := m.objects[p]
	m.mu.RUnlock()

	return ok, nil
}

func (m *Memory) Delete(_ context.Context, p string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[p]; !ok {
		return false, nil
	}

	delete(m.objects, p)

	return true, nil
}

func (m *Memory) Rename(_ context.Context, src, dst string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[src]
	if !ok {
		return false, nil
	}

	m.objects[dst] = data
	delete(m.objects, src)

	return true, nil
}

// Len returns the number of stored objects. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.objects)
}
