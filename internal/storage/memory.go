package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// MemoryStore keeps readings in process memory. It is the default backend
// for local runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]domain.EnrichedReading
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]domain.EnrichedReading)}
}

func (m *MemoryStore) Insert(_ context.Context, r domain.EnrichedReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; ok {
		return domain.Errorf(domain.KindDuplicateID, "reading %s already exists", r.ID)
	}
	m.byID[r.ID] = r
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.Errorf(domain.KindNotFound, "reading %s not found", id)
	}
	delete(m.byID, id)
	return nil
}

func (m *MemoryStore) Query(_ context.Context, f Filter) ([]domain.EnrichedReading, error) {
	m.mu.RLock()
	out := make([]domain.EnrichedReading, 0)
	for _, r := range m.byID {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.EnrichedReading) int {
		if c := cmp.Compare(b.TimestampUTC, a.TimestampUTC); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.EnrichedReading{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context, f Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.byID {
		if f.matches(r) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }
