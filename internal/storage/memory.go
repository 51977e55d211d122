package storage

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrijs2005/sharedfs/internal/common"
)

// MemoryStore keeps files in a map. Contents are copied in and out, so a
// caller mutating its slice after a write cannot tear the stored file.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (m *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[name]
	return ok, nil
}

func (m *MemoryStore) Stat(ctx context.Context, name string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
	}
	return int64(len(data)), nil
}

func (m *MemoryStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
	}
	return slices.Clone(data), nil
}

func (m *MemoryStore) Create(ctx context.Context, name string, data []byte) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; ok {
		return 0, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, name)
	}
	m.files[name] = cloneNonNil(data)
	return int64(len(data)), nil
}

func (m *MemoryStore) Overwrite(ctx context.Context, name string, data []byte) (int64, int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.files[name]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
	}
	m.files[name] = cloneNonNil(data)
	return int64(len(old)), int64(len(data)), nil
}

func (m *MemoryStore) Delete(ctx context.Context, name string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", common.ErrorNotFound, name)
	}
	delete(m.files, name)
	return int64(len(data)), nil
}

func (m *MemoryStore) List(ctx context.Context) (iter.Seq[string], error) {
	m.mu.RLock()
	names := slices.Collect(maps.Keys(m.files))
	m.mu.RUnlock()
	return slices.Values(names), nil
}

func cloneNonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return slices.Clone(b)
}
