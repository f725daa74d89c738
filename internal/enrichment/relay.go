// Package enrichment turns validated raw readings into enriched readings and
// hands them to storage.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/observability"
)

// Loader stores an enriched reading downstream.
type Loader interface {
	Insert(ctx context.Context, r domain.EnrichedReading) (domain.InsertResult, json.RawMessage, error)
}

// Counters are the relay's process-lifetime outcome counts.
type Counters struct {
	processed atomic.Int64
	errors    atomic.Int64
}

// Status is a snapshot of the relay counters.
type Status struct {
	ProcessedCount int64   `json:"processedCount"`
	ErrorCount     int64   `json:"errorCount"`
	SuccessRate    float64 `json:"successRate"`
	Uptime         float64 `json:"uptime"`
}

// Snapshot returns the current counts. successRate is processed over
// processed plus errors, and 0 before any outcome.
func (c *Counters) Snapshot() (processed, errs int64, successRate float64) {
	processed = c.processed.Load()
	errs = c.errors.Load()
	if total := processed + errs; total > 0 {
		successRate = float64(processed) / float64(total)
	}
	return processed, errs, successRate
}

// Result is the outcome of a successful Ingest.
type Result struct {
	Reading     domain.EnrichedReading
	Stored      domain.InsertResult
	APIResponse json.RawMessage
}

// Relay enriches readings and forwards them to storage. It never retries a
// failed insert.
type Relay struct {
	validator *domain.Validator
	loader    Loader
	source    string
	logger    *slog.Logger
	metrics   *observability.Metrics
	counters  Counters
	started   time.Time

	storageDown atomic.Bool
}

// NewRelay creates a Relay. source is stamped on every enriched reading.
func NewRelay(validator *domain.Validator, loader Loader, source string, logger *slog.Logger, metrics *observability.Metrics) *Relay {
	return &Relay{
		validator: validator,
		loader:    loader,
		source:    source,
		logger:    logger,
		metrics:   metrics,
		started:   time.Now(),
	}
}

// Ingest re-validates raw, enriches it, and inserts it into storage. Both
// validation and storage failures count as errors.
func (r *Relay) Ingest(ctx context.Context, raw domain.RawReading) (Result, error) {
	if err := r.validator.ValidateRaw(raw); err != nil {
		r.fail(err)
		return Result{}, err
	}
	return r.forward(ctx, domain.Enrich(raw, r.validator.Registry(), r.source))
}

// IngestPayload parses and ingests a JSON-encoded raw reading.
func (r *Relay) IngestPayload(ctx context.Context, payload []byte) (Result, error) {
	raw, err := r.validator.ParseRawReading(payload)
	if err != nil {
		r.fail(err)
		return Result{}, err
	}
	return r.forward(ctx, domain.Enrich(raw, r.validator.Registry(), r.source))
}

func (r *Relay) forward(ctx context.Context, enriched domain.EnrichedReading) (Result, error) {
	start := time.Now()
	stored, apiResp, err := r.loader.Insert(ctx, enriched)
	r.metrics.StorageDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.storageDown.Store(domain.IsKind(err, domain.KindUpstreamUnavailable))
		r.fail(err)
		r.logger.Warn("storage insert failed", "id", enriched.ID, "city", enriched.City, "kind", domain.KindOf(err), "error", err)
		return Result{}, err
	}
	r.storageDown.Store(false)

	r.counters.processed.Add(1)
	r.metrics.Enriched.WithLabelValues("success").Inc()
	r.logger.Debug("reading enriched and stored",
		"id", enriched.ID,
		"city", enriched.City,
		"category", enriched.TemperatureCategory,
	)
	return Result{Reading: enriched, Stored: stored, APIResponse: apiResp}, nil
}

func (r *Relay) fail(err error) {
	r.counters.errors.Add(1)
	r.metrics.Enriched.WithLabelValues(string(domain.KindOf(err))).Inc()
}

// Status returns the relay counters and uptime.
func (r *Relay) Status() Status {
	processed, errs, rate := r.counters.Snapshot()
	return Status{
		ProcessedCount: processed,
		ErrorCount:     errs,
		SuccessRate:    rate,
		Uptime:         time.Since(r.started).Seconds(),
	}
}

// CheckReadiness fails while the last storage call found storage unreachable.
func (r *Relay) CheckReadiness(_ context.Context) error {
	if r.storageDown.Load() {
		return errors.New("storage unavailable on last insert")
	}
	return nil
}
