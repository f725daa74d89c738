// Package generator emits synthetic city temperature readings to the ingress
// relay over a long-lived connection, reconnecting after every failure.
package generator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/jonboulle/clockwork"
)

// State is the generator's connection state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Options controls connection and emission timing.
type Options struct {
	URL        string
	StartDelay time.Duration // wait before the first dial
	RetryDelay time.Duration // wait before every later dial
	Interval   time.Duration // one reading per interval while connected
}

// Generator drives the Disconnected -> Connecting -> Connected cycle. Readings
// are only produced while connected; nothing is buffered across a
// disconnect.
type Generator struct {
	opts     Options
	dialer   Dialer
	registry *domain.CityRegistry
	rng      *rand.Rand
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	state atomic.Int32
}

// New creates a Generator. rng is only used from the Run goroutine.
func New(opts Options, dialer Dialer, registry *domain.CityRegistry, rng *rand.Rand, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Generator {
	return &Generator{
		opts:     opts,
		dialer:   dialer,
		registry: registry,
		rng:      rng,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// State returns the current connection state.
func (g *Generator) State() State { return State(g.state.Load()) }

// CheckReadiness reports ready while connected to the ingress relay.
func (g *Generator) CheckReadiness(_ context.Context) error {
	if s := g.State(); s != Connected {
		return errors.New("generator is " + s.String())
	}
	return nil
}

func (g *Generator) setState(s State) {
	g.state.Store(int32(s))
	g.metrics.ConnectionState.Set(float64(s))
}

// Run connects and emits readings until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info("generator started", "url", g.opts.URL, "interval", g.opts.Interval)
	defer g.setState(Disconnected)

	delay := g.opts.StartDelay
	for {
		g.setState(Disconnected)
		select {
		case <-ctx.Done():
			g.logger.Info("generator stopping", "reason", ctx.Err())
			return nil
		case <-g.clock.After(delay):
		}
		delay = g.opts.RetryDelay

		g.setState(Connecting)
		conn, err := g.dialer.Dial(ctx, g.opts.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			g.metrics.Reconnects.Inc()
			g.logger.Warn("connect failed, retrying", "error", err, "retry_in", g.opts.RetryDelay)
			continue
		}

		g.setState(Connected)
		g.logger.Info("connected to ingress relay", "url", g.opts.URL)
		g.session(ctx, conn)
		if ctx.Err() != nil {
			g.logger.Info("generator stopping", "reason", ctx.Err())
			return nil
		}
		g.metrics.Reconnects.Inc()
		g.logger.Warn("connection closed, retrying", "retry_in", g.opts.RetryDelay)
	}
}

// session emits readings on conn until the transport fails or ctx ends.
func (g *Generator) session(ctx context.Context, conn Conn) {
	readErr := make(chan error, 1)
	go func() { readErr <- g.readAcks(conn) }()

	ticker := g.clock.NewTicker(g.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			<-readErr
			return
		case err := <-readErr:
			g.logger.Info("ingress connection ended", "error", err)
			_ = conn.Close()
			return
		case <-ticker.Chan():
			city := PickCity(g.rng, g.registry)
			reading, _ := Synthesize(g.rng, g.registry, city, g.clock.Now())
			if err := conn.WriteJSON(reading); err != nil {
				g.logger.Warn("send failed", "error", err)
				_ = conn.Close()
				<-readErr
				return
			}
			g.metrics.ReadingsSent.Inc()
			g.logger.Debug("reading sent", "city", reading.City, "temperature", reading.Temperature)
		}
	}
}

// readAcks logs frames from the relay until the connection fails.
func (g *Generator) readAcks(conn Conn) error {
	for {
		var ack domain.Ack
		if err := conn.ReadJSON(&ack); err != nil {
			return err
		}
		switch ack.Status {
		case domain.AckError:
			g.logger.Warn("reading rejected", "kind", ack.Kind, "message", ack.Message)
		case domain.AckShutdown:
			g.logger.Info("ingress relay shutting down")
		default:
			g.logger.Debug("ack received", "status", ack.Status, "id", ack.ID)
		}
	}
}
