package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
// Each process reads the whole struct and uses the fields for its own hop.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Reading generator.
	IngressURL         string
	GenerateInterval   time.Duration
	GeneratorStart     time.Duration
	GeneratorRetry     time.Duration
	StatusPushInterval time.Duration

	// Ingress relay.
	EnrichmentURL  string
	ForwardTimeout time.Duration

	// Enrichment relay.
	StorageURL       string
	StorageTimeout   time.Duration
	EnrichmentSource string

	// Circuit breaker shared by the outbound hops.
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration

	// Storage service.
	StorageDriver  string
	DatabaseURL    string
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
	KafkaBrokers   []string
	KafkaTopic     string
}

// KafkaEnabled reports whether stored readings are published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is honoured if present.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; real environment wins

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		IngressURL:       sharedcfg.EnvOrDefault("INGRESS_URL", "ws://localhost:3002/ws"),
		EnrichmentURL:    sharedcfg.EnvOrDefault("ENRICHMENT_URL", "http://localhost:3003/webhook"),
		StorageURL:       sharedcfg.EnvOrDefault("STORAGE_URL", "http://localhost:3004/api/temperature"),
		EnrichmentSource: sharedcfg.EnvOrDefault("ENRICHMENT_SOURCE", "enrichment-relay"),
		StorageDriver:    sharedcfg.EnvOrDefault("STORAGE_DRIVER", DriverMemory),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        sharedcfg.EnvOrDefault("JWT_SECRET", "dev-secret-change-in-production"),
		KafkaTopic:       sharedcfg.EnvOrDefault("KAFKA_TOPIC", "stored-temperature-readings"),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
		min time.Duration
	}{
		{"GENERATOR_INTERVAL", "10s", &cfg.GenerateInterval, time.Millisecond},
		{"GENERATOR_START_DELAY", "2s", &cfg.GeneratorStart, 0},
		{"GENERATOR_RETRY_DELAY", "5s", &cfg.GeneratorRetry, time.Millisecond},
		{"STATUS_PUSH_INTERVAL", "0s", &cfg.StatusPushInterval, 0},
		{"FORWARD_TIMEOUT", "5s", &cfg.ForwardTimeout, time.Millisecond},
		{"STORAGE_TIMEOUT", "10s", &cfg.StorageTimeout, time.Millisecond},
		{"BREAKER_OPEN_TIMEOUT", "30s", &cfg.BreakerOpenTimeout, time.Millisecond},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.def, d.min)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if cfg.BreakerMaxFailures, err = parsePositiveInt("BREAKER_MAX_FAILURES", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = parsePositiveInt("RATE_LIMIT_BURST", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = parsePositiveFloat("RATE_LIMIT_RPS", 20); err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(v)
	}

	switch cfg.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORAGE_DRIVER is postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want memory or postgres", cfg.StorageDriver)
	}

	return cfg, nil
}

func parseDuration(key, def string, minimum time.Duration) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < minimum {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}
