package state

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process StateStore backed by a sync.Map keyed on the
// scope-partitioned composite key, the same pattern
// checkpoint/store/memory.go uses for run checkpoints: a sync.Map for
// lock-free reads/writes, with List doing a linear prefix scan followed by
// a sort since sync.Map has no ordered iteration.
type MemoryStore struct {
	data sync.Map // partitioned key (string) -> []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Read(_ context.Context, scope Scope, key string) ([]byte, bool, error) {
	v, ok := m.data.Load(partitionKey(scope, key))
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v.([]byte)...), true, nil
}

func (m *MemoryStore) Write(_ context.Context, scope Scope, key string, value []byte) error {
	m.data.Store(partitionKey(scope, key), append([]byte(nil), value...))
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, scope Scope, key string) error {
	m.data.Delete(partitionKey(scope, key))
	return nil
}

func (m *MemoryStore) List(_ context.Context, scope Scope, prefix string) ([]Entry, error) {
	wantScope := scope.String()
	wantPrefix := wantScope + "\x00" + prefix

	var entries []Entry
	m.data.Range(func(k, v interface{}) bool {
		pk := k.(string)
		if !strings.HasPrefix(pk, wantPrefix) {
			return true
		}
		_, rawKey := splitPartitionKey(pk)
		entries = append(entries, Entry{
			Scope: scope,
			Key:   rawKey,
			Value: append([]byte(nil), v.([]byte)...),
		})
		return true
	})

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Search is unsupported by MemoryStore; it returns no results rather than
// an error so callers can treat search as a best-effort enhancement.
func (m *MemoryStore) Search(_ context.Context, _ Scope, _ string, _ int) ([]SearchResult, error) {
	return nil, nil
}

func splitPartitionKey(pk string) (scopeStr, key string) {
	idx := strings.IndexByte(pk, 0)
	if idx < 0 {
		return pk, ""
	}
	return pk[:idx], pk[idx+1:]
}

var _ StateStore = (*MemoryStore)(nil)
