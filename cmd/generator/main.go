// Command generator synthesizes city temperature readings and streams them to
// the ingress relay over a websocket, reconnecting whenever the link drops.
package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/adapter/httpadapter"
	"github.com/couchcryptid/temperature-relay/internal/config"
	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/generator"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const handshakeTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, "generator")
	metrics := observability.NewMetrics()

	seed := uint64(time.Now().UnixNano()) //nolint:gosec // non-negative wall clock
	rng := rand.New(rand.NewPCG(seed, seed>>32))

	gen := generator.New(generator.Options{
		URL:        cfg.IngressURL,
		StartDelay: cfg.GeneratorStart,
		RetryDelay: cfg.GeneratorRetry,
		Interval:   cfg.GenerateInterval,
	}, generator.NewWebsocketDialer(handshakeTimeout), domain.DefaultRegistry, rng, clockwork.NewRealClock(), logger, metrics)

	// The generator has no application routes; the server only exposes
	// health, readiness and metrics.
	srv := httpadapter.NewServer(cfg.HTTPAddr, nil, gen, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gen.Run(gctx)
	})
	g.Go(func() error {
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
		logger.Error("generator stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
