package ingress

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/observability"
)

// MaxFrameSize is the largest reading frame the relay accepts. Bigger frames
// get a schema error ack and the connection stays open.
const MaxFrameSize = 64 << 10

// Forwarder delivers a validated reading to the enrichment relay.
type Forwarder interface {
	Forward(ctx context.Context, raw domain.RawReading) (domain.WebhookResponse, error)
}

// Relay validates and forwards one frame at a time. Rejected frames are
// answered immediately and never forwarded.
type Relay struct {
	validator *domain.Validator
	forwarder Forwarder
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRelay creates a Relay.
func NewRelay(validator *domain.Validator, forwarder Forwarder, logger *slog.Logger, metrics *observability.Metrics) *Relay {
	return &Relay{validator: validator, forwarder: forwarder, logger: logger, metrics: metrics}
}

// Process handles one frame and returns the ack for the sender.
func (r *Relay) Process(ctx context.Context, payload []byte) domain.Ack {
	r.metrics.MessagesReceived.Inc()

	var raw domain.RawReading
	var err error
	if len(payload) > MaxFrameSize {
		err = domain.Errorf(domain.KindSchema, "frame of %d bytes exceeds %d byte limit", len(payload), MaxFrameSize)
	} else {
		raw, err = r.validator.ParseRawReading(payload)
	}
	if err != nil {
		kind := domain.KindOf(err)
		r.metrics.Rejected.WithLabelValues(string(kind)).Inc()
		r.logger.Info("frame rejected", "kind", kind, "error", err)
		return errorAck(err)
	}

	start := time.Now()
	resp, err := r.forwarder.Forward(ctx, raw)
	r.metrics.ForwardDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.Forwarded.WithLabelValues("error").Inc()
		r.logger.Warn("forward failed", "city", raw.City, "kind", domain.KindOf(err), "error", err)
		return errorAck(err)
	}
	r.metrics.Forwarded.WithLabelValues("success").Inc()

	ack := domain.Ack{
		Status:    domain.AckSuccess,
		Message:   "Data received and forwarded",
		Timestamp: timestamp(),
	}
	if resp.Data != nil {
		ack.ID = resp.Data.ID
	}
	r.logger.Debug("reading forwarded", "city", raw.City, "id", ack.ID)
	return ack
}

func errorAck(err error) domain.Ack {
	return domain.Ack{
		Status:    domain.AckError,
		Message:   domain.MessageOf(err),
		Kind:      domain.KindOf(err),
		Timestamp: timestamp(),
	}
}
