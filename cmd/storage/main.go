// Command storage runs the storage service: it persists enriched readings and
// serves the authenticated query API.
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
	kafkaadapter "github.com/couchcryptid/temperature-relay/internal/adapter/kafka"
	"github.com/couchcryptid/temperature-relay/internal/auth"
	"github.com/couchcryptid/temperature-relay/internal/config"
	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/couchcryptid/temperature-relay/internal/storage"
	"golang.org/x/sync/errgroup"
)

const tokenIssuer = "temperature-relay"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, "storage")
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	var publisher storage.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("kafka change feed enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	service := storage.NewService(store, domain.DefaultValidator, publisher, logger, metrics)
	tokens := auth.NewTokenService(cfg.JWTSecret, tokenIssuer)
	limiter := httpadapter.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := storage.NewHandler(service, tokens, limiter, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, handler.Routes(), service, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("storage service listening", "addr", cfg.HTTPAddr, "driver", cfg.StorageDriver)
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
		service.Flush()
		if kafkaPublisher != nil {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("storage service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.StorageDriver != config.DriverPostgres {
		logger.Info("using in-memory store; readings are lost on restart")
		return storage.NewMemoryStore(), nil
	}
	pg, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return pg, nil
}
