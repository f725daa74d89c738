// Package storage persists enriched readings and answers queries over them.
//
// A Service sits in front of a Store. The Store owns durability and the
// atomic id uniqueness check; the Service re-validates inserts, computes
// aggregates, and publishes accepted readings to the change feed.
package storage

import (
	"context"

	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// Filter selects readings. Nil bounds are open; From and To are inclusive
// epoch seconds. Limit 0 means no limit.
type Filter struct {
	City   string
	From   *int64
	To     *int64
	Limit  int
	Offset int
}

func (f Filter) matches(r domain.EnrichedReading) bool {
	if f.City != "" && r.City != f.City {
		return false
	}
	if f.From != nil && r.TimestampUTC < *f.From {
		return false
	}
	if f.To != nil && r.TimestampUTC > *f.To {
		return false
	}
	return true
}

// Store is the persistence boundary. Query results are ordered by
// timestampUtc descending, ties broken by id ascending.
type Store interface {
	// Insert stores r, or fails with a duplicate_id error when r.ID exists.
	// The existence check is atomic with the write.
	Insert(ctx context.Context, r domain.EnrichedReading) error
	// Delete removes the reading with id, or fails with not_found.
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, f Filter) ([]domain.EnrichedReading, error)
	// Count ignores Limit and Offset.
	Count(ctx context.Context, f Filter) (int, error)
	Close() error
}

// Publisher receives every reading accepted by the store.
type Publisher interface {
	Publish(ctx context.Context, r domain.EnrichedReading) error
}
