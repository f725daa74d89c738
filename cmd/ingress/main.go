// Command ingress runs the ingress relay: it accepts generator websocket
// connections and forwards each reading to the enrichment relay.
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
	"github.com/couchcryptid/temperature-relay/internal/ingress"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, "ingress")
	metrics := observability.NewMetrics()

	enrichment := upstream.NewEnrichmentClient(upstream.Settings{
		Name:        "enrichment",
		URL:         cfg.EnrichmentURL,
		Source:      "ingress-relay",
		Timeout:     cfg.ForwardTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, nil, logger)

	hub := ingress.NewHub(clockwork.NewRealClock(), cfg.StatusPushInterval, logger, metrics)
	relay := ingress.NewRelay(domain.DefaultValidator, enrichment, logger, metrics)
	handler := ingress.NewHandler(hub, relay, enrichment.URL(), logger)

	// Websocket connections are long-lived; a write timeout would cut them.
	srv := httpadapter.NewServer(cfg.HTTPAddr, handler.Routes(), hub, logger, httpadapter.WithWriteTimeout(0))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("ingress relay listening", "addr", cfg.HTTPAddr, "enrichment_url", enrichment.URL())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// Let the hub tell every generator we are going away first.
		<-hub.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("ingress relay stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
