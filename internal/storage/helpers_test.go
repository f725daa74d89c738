package storage_test

import (
	"context"
	"sync"

	"github.com/couchcryptid/temperature-relay/internal/domain"
)

func reading(id, city string, temp float64, ts int64) domain.EnrichedReading {
	r := domain.Enrich(domain.RawReading{
		City:         city,
		Temperature:  temp,
		TimestampUTC: ts,
		Unit:         domain.UnitCelsius,
	}, domain.DefaultRegistry, "test")
	r.ID = id
	return r
}

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.EnrichedReading
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, r domain.EnrichedReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, r)
	return nil
}

func (f *fakePublisher) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.published))
	for i, r := range f.published {
		out[i] = r.ID
	}
	return out
}
