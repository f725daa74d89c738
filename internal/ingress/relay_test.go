package ingress_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/ingress"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/stretchr/testify/assert"
)

type mockForwarder struct {
	mu   sync.Mutex
	got  []domain.RawReading
	err  error
	next string
}

func (m *mockForwarder) Forward(_ context.Context, raw domain.RawReading) (domain.WebhookResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.WebhookResponse{}, m.err
	}
	m.got = append(m.got, raw)
	return domain.WebhookResponse{Success: true, Data: &domain.EnrichedReading{ID: m.next}}, nil
}

func (m *mockForwarder) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.got)
}

func newRelay(fwd ingress.Forwarder) *ingress.Relay {
	return ingress.NewRelay(domain.DefaultValidator, fwd, observability.DiscardLogger(), observability.NewMetricsForTesting())
}

const shanghaiJSON = `{"city":"Shanghai","temperature":21.4,"timestampUtc":1700000000,"unit":"°C"}`

func TestRelay_Process_Success(t *testing.T) {
	fwd := &mockForwarder{next: "id-42"}
	ack := newRelay(fwd).Process(context.Background(), []byte(shanghaiJSON))

	assert.Equal(t, domain.AckSuccess, ack.Status)
	assert.Equal(t, "id-42", ack.ID)
	assert.Empty(t, ack.Kind)
	assert.NotEmpty(t, ack.Timestamp)
	assert.Equal(t, []domain.RawReading{{City: "Shanghai", Temperature: 21.4, TimestampUTC: 1700000000, Unit: domain.UnitCelsius}}, fwd.got)
}

func TestRelay_Process_RejectsWithoutForwarding(t *testing.T) {
	tests := map[string]struct {
		payload string
		kind    domain.Kind
	}{
		"not json":       {`hello`, domain.KindSchema},
		"missing unit":   {`{"city":"Berlin","temperature":1,"timestampUtc":1}`, domain.KindSchema},
		"wrong type":     {`{"city":"Berlin","temperature":"warm","timestampUtc":1,"unit":"°C"}`, domain.KindSchema},
		"fahrenheit":     {`{"city":"Berlin","temperature":1,"timestampUtc":1,"unit":"°F"}`, domain.KindSchema},
		"unknown city":   {`{"city":"Paris","temperature":1,"timestampUtc":1,"unit":"°C"}`, domain.KindRange},
		"too cold":       {`{"city":"Berlin","temperature":-50.1,"timestampUtc":1,"unit":"°C"}`, domain.KindRange},
		"zero timestamp": {`{"city":"Berlin","temperature":1,"timestampUtc":0,"unit":"°C"}`, domain.KindSchema},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fwd := &mockForwarder{}
			ack := newRelay(fwd).Process(context.Background(), []byte(tc.payload))

			assert.Equal(t, domain.AckError, ack.Status)
			assert.Equal(t, tc.kind, ack.Kind)
			assert.NotEmpty(t, ack.Message)
			assert.Zero(t, fwd.calls())
		})
	}
}

func TestRelay_Process_ForwardFailure(t *testing.T) {
	fwd := &mockForwarder{err: domain.NewError(domain.KindUpstreamUnavailable, "enrichment timed out after 5s")}
	ack := newRelay(fwd).Process(context.Background(), []byte(shanghaiJSON))

	assert.Equal(t, domain.AckError, ack.Status)
	assert.Equal(t, domain.KindUpstreamUnavailable, ack.Kind)
	assert.Equal(t, "enrichment timed out after 5s", ack.Message)
}

func TestRelay_Process_OversizedFrame(t *testing.T) {
	fwd := &mockForwarder{next: "id-1"}
	// Valid JSON, padded past the frame limit.
	payload := shanghaiJSON + strings.Repeat(" ", ingress.MaxFrameSize)
	ack := newRelay(fwd).Process(context.Background(), []byte(payload))

	assert.Equal(t, domain.AckError, ack.Status)
	assert.Equal(t, domain.KindSchema, ack.Kind)
	assert.Contains(t, ack.Message, "exceeds")
	assert.Zero(t, fwd.calls())
}
