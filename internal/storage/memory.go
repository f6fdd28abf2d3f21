package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory BlobStore for tests. Failures can be
// injected per operation.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	errs  map[string]error
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
		errs:  make(map[string]error),
	}
}

// SetError makes the named operation ("Get", "Set", "Delete") fail with
// err until cleared with a nil err.
func (m *MemoryStore) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["Get"]; err != nil {
		return nil, false, err
	}
	value, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["Set"]; err != nil {
		return err
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.blobs[key] = cp
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["Delete"]; err != nil {
		return err
	}
	delete(m.blobs, key)
	return nil
}
