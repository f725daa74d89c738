package ingress

import (
	"sync"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/google/uuid"
)

// sendBuffer is the number of outbound frames queued per connection.
const sendBuffer = 16

// Client is one generator connection as seen by the hub. Frames for the
// connection are queued on send and written by its write pump.
type Client struct {
	ID string

	send      chan domain.Ack
	closing   chan struct{} // closed by the hub on shutdown
	gone      chan struct{} // closed when the connection has ended
	closeOnce sync.Once
	goneOnce  sync.Once
}

// NewClient creates a Client with a fresh id.
func NewClient() *Client {
	return &Client{
		ID:      uuid.NewString(),
		send:    make(chan domain.Ack, sendBuffer),
		closing: make(chan struct{}),
		gone:    make(chan struct{}),
	}
}

// Send returns the outbound frame queue.
func (c *Client) Send() <-chan domain.Ack { return c.send }

// Closing is closed when the hub asks the connection to close.
func (c *Client) Closing() <-chan struct{} { return c.closing }

// offer queues ack without blocking.
func (c *Client) offer(ack domain.Ack) bool {
	select {
	case c.send <- ack:
		return true
	default:
		return false
	}
}

// deliver queues ack, waiting for buffer space until the connection ends.
func (c *Client) deliver(ack domain.Ack) bool {
	select {
	case c.send <- ack:
		return true
	case <-c.gone:
		return false
	}
}

func (c *Client) quit() {
	c.closeOnce.Do(func() { close(c.closing) })
}

func (c *Client) markGone() {
	c.goneOnce.Do(func() { close(c.gone) })
}
