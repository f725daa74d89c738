package ingress_test

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/ingress"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, clock clockwork.Clock, statusInterval time.Duration) (*ingress.Hub, context.CancelFunc) {
	t.Helper()
	hub := ingress.NewHub(clock, statusInterval, observability.DiscardLogger(), observability.NewMetricsForTesting())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub, cancel
}

func recv(t *testing.T, c *ingress.Client) domain.Ack {
	t.Helper()
	select {
	case ack := <-c.Send():
		return ack
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return domain.Ack{}
	}
}

func TestHub_RegisterCountUnregister(t *testing.T) {
	hub, _ := startHub(t, clockwork.NewFakeClock(), 0)

	a, b := ingress.NewClient(), ingress.NewClient()
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))
	assert.Equal(t, 2, hub.Count())

	hub.Unregister(a)
	hub.Unregister(a)
	assert.Equal(t, 1, hub.Count())
	assert.NotEqual(t, a.ID, b.ID)
	assert.NoError(t, hub.CheckReadiness(context.Background()))
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, _ := startHub(t, clockwork.NewFakeClock(), 0)

	clients := []*ingress.Client{ingress.NewClient(), ingress.NewClient(), ingress.NewClient()}
	for _, c := range clients {
		require.True(t, hub.Register(c))
	}

	hub.Broadcast(domain.Ack{Status: domain.AckStatus, Message: "hello"})

	for _, c := range clients {
		assert.Equal(t, "hello", recv(t, c).Message)
	}
}

func TestHub_SlowClientMissesFrames(t *testing.T) {
	hub, _ := startHub(t, clockwork.NewFakeClock(), 0)

	slow, fast := ingress.NewClient(), ingress.NewClient()
	require.True(t, hub.Register(slow))
	require.True(t, hub.Register(fast))

	const frames = 40
	for i := range frames {
		hub.Broadcast(domain.Ack{Status: domain.AckStatus, Message: "tick"})
		require.Equal(t, "tick", recv(t, fast).Message, "frame %d", i)
	}

	// The slow client never drained, so it kept only what fit its buffer.
	assert.Equal(t, cap(slow.Send()), len(slow.Send()))
	assert.Less(t, len(slow.Send()), frames)
}

func TestHub_PeriodicStatusPush(t *testing.T) {
	clock := clockwork.NewFakeClock()
	hub, _ := startHub(t, clock, 30*time.Second)

	c := ingress.NewClient()
	require.True(t, hub.Register(c))
	require.Equal(t, 1, hub.Count())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(30 * time.Second)

	ack := recv(t, c)
	assert.Equal(t, domain.AckStatus, ack.Status)
	require.NotNil(t, ack.ConnectedClients)
	assert.Equal(t, 1, *ack.ConnectedClients)
}

func TestHub_ShutdownNotifiesAndCloses(t *testing.T) {
	hub, cancel := startHub(t, clockwork.NewFakeClock(), 0)

	c := ingress.NewClient()
	require.True(t, hub.Register(c))
	require.Equal(t, 1, hub.Count())

	cancel()
	<-hub.Done()

	assert.Equal(t, domain.AckShutdown, recv(t, c).Status)
	select {
	case <-c.Closing():
	default:
		t.Fatal("client was not asked to close")
	}

	assert.False(t, hub.Register(ingress.NewClient()))
	assert.Equal(t, 0, hub.Count())
	assert.Error(t, hub.CheckReadiness(context.Background()))
}
