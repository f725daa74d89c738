package ingress_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/ingress"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRelay struct {
	hub    *ingress.Hub
	server *httptest.Server
	fwd    *mockForwarder
	stop   context.CancelFunc
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()
	hub := ingress.NewHub(clockwork.NewRealClock(), 0, observability.DiscardLogger(), observability.NewMetricsForTesting())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	fwd := &mockForwarder{next: "enriched-1"}
	h := ingress.NewHandler(hub, newRelay(fwd), "http://enrichment/webhook", observability.DiscardLogger())
	srv := httptest.NewServer(h.Routes())

	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		srv.Close()
	})
	return &testRelay{hub: hub, server: srv, fwd: fwd, stop: cancel}
}

func (tr *testRelay) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(tr.server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readAck(t *testing.T, conn *websocket.Conn) domain.Ack {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ack domain.Ack
	require.NoError(t, conn.ReadJSON(&ack))
	return ack
}

func TestHandler_WelcomeThenAcks(t *testing.T) {
	tr := newTestRelay(t)
	conn := tr.dial(t)

	assert.Equal(t, domain.AckConnected, readAck(t, conn).Status)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(shanghaiJSON)))
	ack := readAck(t, conn)
	assert.Equal(t, domain.AckSuccess, ack.Status)
	assert.Equal(t, "enriched-1", ack.ID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"city":"Paris"}`)))
	ack = readAck(t, conn)
	assert.Equal(t, domain.AckError, ack.Status)
	assert.Equal(t, domain.KindSchema, ack.Kind)

	assert.Equal(t, 1, tr.fwd.calls())
}

func TestHandler_OversizedFrameIsAnsweredAndConnectionSurvives(t *testing.T) {
	tr := newTestRelay(t)
	conn := tr.dial(t)
	readAck(t, conn)

	big := shanghaiJSON + strings.Repeat(" ", ingress.MaxFrameSize)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(big)))
	ack := readAck(t, conn)
	assert.Equal(t, domain.AckError, ack.Status)
	assert.Equal(t, domain.KindSchema, ack.Kind)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(shanghaiJSON)))
	ack = readAck(t, conn)
	assert.Equal(t, domain.AckSuccess, ack.Status)
	assert.Equal(t, 1, tr.fwd.calls())
}

func TestHandler_ConnectionCountTracksLifecycle(t *testing.T) {
	tr := newTestRelay(t)

	a := tr.dial(t)
	readAck(t, a)
	b := tr.dial(t)
	readAck(t, b)
	assert.Equal(t, 2, tr.hub.Count())

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return tr.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	ingress.NewHandler(tr.hub, nil, "http://enrichment/webhook", observability.DiscardLogger()).
		Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.InDelta(t, 1.0, stats["connectedClients"], 1e-9)
	assert.Equal(t, "http://enrichment/webhook", stats["enrichmentUrl"])
}

func TestHandler_ShutdownFrame(t *testing.T) {
	tr := newTestRelay(t)
	conn := tr.dial(t)
	readAck(t, conn)

	tr.stop()

	assert.Equal(t, domain.AckShutdown, readAck(t, conn).Status)
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHandler_Health(t *testing.T) {
	tr := newTestRelay(t)

	resp, err := http.Get(tr.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.InDelta(t, 0.0, body["connectedClients"], 1e-9)
}
