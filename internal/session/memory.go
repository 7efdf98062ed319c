package session

import (
	"context"
	"encoding/json"
	"sync"
)

type metaKey struct {
	principalID int64
	namespace   string
}

// MemoryMeta is an in-process MetaStore used in tests and single-node setups.
type MemoryMeta struct {
	mu          sync.RWMutex
	collections map[metaKey]map[string]json.RawMessage
}

var _ MetaStore = (*MemoryMeta)(nil)

func NewMemoryMeta() *MemoryMeta {
	return &MemoryMeta{collections: make(map[metaKey]map[string]json.RawMessage)}
}

func (m *MemoryMeta) Get(_ context.Context, principalID int64, namespace string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]json.RawMessage)
	for k, v := range m.collections[metaKey{principalID, namespace}] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryMeta) Put(_ context.Context, principalID int64, namespace string, values map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		copied[k] = v
	}
	m.collections[metaKey{principalID, namespace}] = copied
	return nil
}
