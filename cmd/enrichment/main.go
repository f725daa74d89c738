// Command enrichment runs the enrichment relay: it accepts raw readings on
// POST /webhook, enriches them and stores them through the storage service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/temperature-relay/internal/adapter/httpadapter"
	"github.com/couchcryptid/temperature-relay/internal/adapter/upstream"
	"github.com/couchcryptid/temperature-relay/internal/config"
	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/enrichment"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, "enrichment")
	metrics := observability.NewMetrics()

	store := upstream.NewStorageClient(upstream.Settings{
		Name:        "storage",
		URL:         cfg.StorageURL,
		Source:      cfg.EnrichmentSource,
		Timeout:     cfg.StorageTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, nil, logger)

	relay := enrichment.NewRelay(domain.DefaultValidator, store, cfg.EnrichmentSource, logger, metrics)
	handler := enrichment.NewHandler(relay, store.URL())
	srv := httpadapter.NewServer(cfg.HTTPAddr, handler.Routes(), relay, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("enrichment relay listening", "addr", cfg.HTTPAddr, "storage_url", store.URL())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("enrichment relay stopped", "error", err)
		os.Exit(1)
	}

	status := relay.Status()
	logger.Info("shutdown complete", "processed", status.ProcessedCount, "errors", status.ErrorCount, "success_rate", status.SuccessRate)
}
