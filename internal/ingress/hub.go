package ingress

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Hub owns the set of live generator connections. All access goes through
// its event loop, so the set needs no lock.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.Ack
	count      chan chan int
	done       chan struct{}

	clients map[*Client]struct{}

	clock          clockwork.Clock
	statusInterval time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// NewHub creates a Hub. A positive statusInterval enables periodic status
// pushes to every connection.
func NewHub(clock clockwork.Clock, statusInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan domain.Ack),
		count:          make(chan chan int),
		done:           make(chan struct{}),
		clients:        make(map[*Client]struct{}),
		clock:          clock,
		statusInterval: statusInterval,
		logger:         logger,
		metrics:        metrics,
	}
}

// Run processes hub events until ctx is cancelled, then sends a shutdown
// frame to every connection and asks it to close.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var statusC <-chan time.Time
	if h.statusInterval > 0 {
		ticker := h.clock.NewTicker(h.statusInterval)
		defer ticker.Stop()
		statusC = ticker.Chan()
	}

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.metrics.ActiveConnections.Set(float64(len(h.clients)))
			h.logger.Info("client connected", "client_id", c.ID, "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				h.metrics.ActiveConnections.Set(float64(len(h.clients)))
				h.logger.Info("client disconnected", "client_id", c.ID, "clients", len(h.clients))
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case ack := <-h.broadcast:
			h.fanOut(ack)
		case <-statusC:
			n := len(h.clients)
			h.fanOut(domain.Ack{
				Status:           domain.AckStatus,
				Message:          "ingress relay running",
				ConnectedClients: &n,
				Timestamp:        timestamp(),
			})
		}
	}
}

// fanOut delivers ack to a snapshot of the current clients. A client whose
// buffer is full misses the frame.
func (h *Hub) fanOut(ack domain.Ack) {
	snapshot := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	for _, c := range snapshot {
		if c.offer(ack) {
			h.metrics.Broadcasts.WithLabelValues("sent").Inc()
		} else {
			h.metrics.Broadcasts.WithLabelValues("dropped").Inc()
			h.logger.Warn("dropped frame for slow client", "client_id", c.ID, "status", ack.Status)
		}
	}
}

func (h *Hub) shutdown() {
	n := len(h.clients)
	h.fanOut(domain.Ack{
		Status:    domain.AckShutdown,
		Message:   "ingress relay shutting down",
		Timestamp: timestamp(),
	})
	for c := range h.clients {
		c.quit()
		delete(h.clients, c)
	}
	h.metrics.ActiveConnections.Set(0)
	h.logger.Info("hub stopped", "closed_clients", n)
}

// Register adds c to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c. It is a no-op for unknown clients or a stopped hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends ack to every connection.
func (h *Hub) Broadcast(ack domain.Ack) {
	select {
	case h.broadcast <- ack:
	case <-h.done:
	}
}

// Count returns the number of live connections, or 0 once stopped.
func (h *Hub) Count() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// CheckReadiness fails once the hub has stopped.
func (h *Hub) CheckReadiness(_ context.Context) error {
	select {
	case <-h.done:
		return errors.New("connection hub stopped")
	default:
		return nil
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} { return h.done }

func timestamp() string {
	return domain.Now().UTC().Format(time.RFC3339Nano)
}
