package enrichment_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/enrichment"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	mu     sync.Mutex
	stored []domain.EnrichedReading
	err    error
}

func (m *mockLoader) Insert(_ context.Context, r domain.EnrichedReading) (domain.InsertResult, json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.InsertResult{}, nil, m.err
	}
	m.stored = append(m.stored, r)
	return r.Summary(), json.RawMessage(`{"success":true}`), nil
}

func (m *mockLoader) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored)
}

func newRelay(loader enrichment.Loader) *enrichment.Relay {
	return enrichment.NewRelay(domain.DefaultValidator, loader, "enrichment-relay", observability.DiscardLogger(), observability.NewMetricsForTesting())
}

func berlin() domain.RawReading {
	return domain.RawReading{City: "Berlin", Temperature: 12.3, TimestampUTC: 1700000000, Unit: domain.UnitCelsius}
}

// --- tests ---

func TestRelay_Ingest_Enriches(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	loader := &mockLoader{}
	relay := newRelay(loader)

	res, err := relay.Ingest(context.Background(), berlin())
	require.NoError(t, err)

	got := res.Reading
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, domain.CategoryCool, got.TemperatureCategory)
	assert.Equal(t, "Germany", got.CityInfo.Country)
	assert.Equal(t, "Europe/Berlin", got.CityInfo.Timezone)
	assert.Equal(t, "enrichment-relay", got.Source)
	assert.Equal(t, "2023-11-14T22:13:20Z", got.ISODate)
	assert.Equal(t, "2024-01-02T03:04:05Z", got.ProcessedAt)
	assert.Equal(t, berlin(), got.Raw())
	assert.Equal(t, got.Summary(), res.Stored)
	assert.JSONEq(t, `{"success":true}`, string(res.APIResponse))

	require.Equal(t, 1, loader.count())
	st := relay.Status()
	assert.Equal(t, int64(1), st.ProcessedCount)
	assert.Equal(t, int64(0), st.ErrorCount)
	assert.InDelta(t, 1.0, st.SuccessRate, 1e-9)
}

func TestRelay_ValidationFailureCountsAsError(t *testing.T) {
	loader := &mockLoader{}
	relay := newRelay(loader)

	bad := berlin()
	bad.Temperature = 61
	_, err := relay.Ingest(context.Background(), bad)
	assert.Equal(t, domain.KindRange, domain.KindOf(err))

	_, err = relay.IngestPayload(context.Background(), []byte(`{"city":"Berlin"`))
	assert.Equal(t, domain.KindSchema, domain.KindOf(err))

	_, err = relay.IngestPayload(context.Background(), []byte(`{"city":"Berlin","temperature":12.3,"unit":"°C"}`))
	assert.Equal(t, domain.KindSchema, domain.KindOf(err))

	assert.Zero(t, loader.count(), "rejected readings never reach storage")
	assert.Equal(t, int64(3), relay.Status().ErrorCount)
}

func TestRelay_StorageFailurePropagates(t *testing.T) {
	loader := &mockLoader{err: domain.NewError(domain.KindUpstreamUnavailable, "storage timed out")}
	relay := newRelay(loader)

	_, err := relay.Ingest(context.Background(), berlin())
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
	assert.Error(t, relay.CheckReadiness(context.Background()))

	loader.setErr(nil)
	_, err = relay.Ingest(context.Background(), berlin())
	require.NoError(t, err)
	assert.NoError(t, relay.CheckReadiness(context.Background()))

	st := relay.Status()
	assert.Equal(t, int64(1), st.ProcessedCount)
	assert.Equal(t, int64(1), st.ErrorCount)
	assert.InDelta(t, 0.5, st.SuccessRate, 1e-9)
}

func TestRelay_SuccessRateZeroBeforeTraffic(t *testing.T) {
	relay := newRelay(&mockLoader{})
	st := relay.Status()
	assert.Zero(t, st.ProcessedCount)
	assert.Zero(t, st.ErrorCount)
	assert.Zero(t, st.SuccessRate)
	assert.NoError(t, relay.CheckReadiness(context.Background()))
}

func TestRelay_ConcurrentIngestKeepsCounts(t *testing.T) {
	loader := &mockLoader{}
	relay := newRelay(loader)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := berlin()
			if i%4 == 0 {
				r.City = "Atlantis"
			}
			_, _ = relay.Ingest(context.Background(), r)
		}()
	}
	wg.Wait()

	st := relay.Status()
	assert.Equal(t, int64(75), st.ProcessedCount)
	assert.Equal(t, int64(25), st.ErrorCount)
	assert.InDelta(t, 0.75, st.SuccessRate, 1e-9)
	assert.Equal(t, 75, loader.count())
}
