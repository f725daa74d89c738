package storage_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()

	require.NoError(t, s.Insert(ctx, reading("a", "Berlin", 10, 100)))
	err := s.Insert(ctx, reading("a", "Berlin", 11, 200))
	require.Error(t, err)
	assert.Equal(t, domain.KindDuplicateID, domain.KindOf(err))

	n, err := s.Count(ctx, storage.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Query(ctx, storage.Filter{})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got[0].Temperature, 1e-9, "first insert wins")
}

func TestMemoryStore_ConcurrentDuplicateInsert(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()

	var ok atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Insert(ctx, reading("same", "Shanghai", 20, 100)) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
}

func TestMemoryStore_QueryOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	for i, city := range []string{"Berlin", "Shanghai", "Berlin", "Rio de Janeiro", "Berlin"} {
		require.NoError(t, s.Insert(ctx, reading(fmt.Sprintf("r%d", i), city, 15, int64(100+i*10))))
	}
	// Same timestamp as r4; ties break on id.
	require.NoError(t, s.Insert(ctx, reading("r0b", "Berlin", 15, 140)))

	from, to := int64(110), int64(140)
	got, err := s.Query(ctx, storage.Filter{City: "Berlin", From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{"r0b", "r4", "r2"}, ids(got))

	got, err = s.Query(ctx, storage.Filter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"r4", "r3"}, ids(got))

	got, err = s.Query(ctx, storage.Filter{Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()
	require.NoError(t, s.Insert(ctx, reading("a", "Berlin", 10, 100)))

	require.NoError(t, s.Delete(ctx, "a"))
	err := s.Delete(ctx, "a")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func ids(rs []domain.EnrichedReading) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
