// Command seed backfills the storage service with synthesized history, or
// prints a development bearer token for the query API.
//
// Usage:
//
//	go run ./cmd/seed -days 7 -step 30m
//	go run ./cmd/seed -days 1 -out data/history.json
//	go run ./cmd/seed -token -role admin
//
// STORAGE_URL, JWT_SECRET and ENRICHMENT_SOURCE are read from the environment
// like the services do.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/adapter/upstream"
	"github.com/couchcryptid/temperature-relay/internal/auth"
	"github.com/couchcryptid/temperature-relay/internal/config"
	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/generator"
	"github.com/couchcryptid/temperature-relay/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	days := flag.Int("days", 7, "days of history to synthesize")
	step := flag.Duration("step", 30*time.Minute, "interval between synthesized readings per city")
	out := flag.String("out", "", "write readings to this JSON file instead of posting them")
	seed := flag.Uint64("seed", 0, "random seed (0 picks one from the clock)")
	token := flag.Bool("token", false, "print a development bearer token and exit")
	role := flag.String("role", auth.RoleAdmin, "role claim for -token (user or admin)")
	user := flag.String("user", "dev", "user_id claim for -token")
	ttl := flag.Duration("ttl", 24*time.Hour, "lifetime of the -token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if *token {
		return printToken(cfg.JWTSecret, *user, *role, *ttl)
	}

	if *days <= 0 || *step <= 0 {
		flag.Usage()
		return errors.New("-days and -step must be positive")
	}

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano()) //nolint:gosec // non-negative wall clock
	}
	rng := rand.New(rand.NewPCG(*seed, *seed>>32))

	readings := generator.Backfill(rng, domain.DefaultRegistry, cfg.EnrichmentSource,
		time.Now().UTC(), time.Duration(*days)*24*time.Hour, *step)
	log.Printf("synthesized %d readings over %d days (seed %d)", len(readings), *days, *seed)

	if *out != "" {
		if err := writeJSON(*out, readings); err != nil {
			return fmt.Errorf("writing %s: %w", *out, err)
		}
		log.Printf("wrote %s", *out)
	} else if err := post(cfg, readings); err != nil {
		return err
	}

	printStats(readings)
	return nil
}

func printToken(secret, user, role string, ttl time.Duration) error {
	if role != auth.RoleUser && role != auth.RoleAdmin {
		return fmt.Errorf("invalid -role %q: want %s or %s", role, auth.RoleUser, auth.RoleAdmin)
	}
	tok, err := auth.NewTokenService(secret, "temperature-relay").Issue(user, role, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func post(cfg *config.Config, readings []domain.EnrichedReading) error {
	client := upstream.NewStorageClient(upstream.Settings{
		Name:        "storage",
		URL:         cfg.StorageURL,
		Source:      cfg.EnrichmentSource,
		Timeout:     cfg.StorageTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, nil, observability.DiscardLogger())

	ctx := context.Background()
	var stored, duplicates int
	for i, r := range readings {
		_, _, err := client.Insert(ctx, r)
		switch {
		case err == nil:
			stored++
		case domain.IsKind(err, domain.KindDuplicateID):
			duplicates++
		default:
			return fmt.Errorf("insert %d/%d (%s): %w", i+1, len(readings), r.ID, err)
		}
		if (i+1)%100 == 0 {
			log.Printf("posted %d/%d", i+1, len(readings))
		}
	}
	log.Printf("stored %d readings at %s (%d duplicates)", stored, client.URL(), duplicates)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(readings []domain.EnrichedReading) {
	byCity := map[string][]domain.EnrichedReading{}
	for _, r := range readings {
		byCity[r.City] = append(byCity[r.City], r)
	}

	fmt.Println("\n=== Seeded history ===")
	for _, city := range domain.DefaultRegistry.Names() {
		s := domain.ComputeCityStats(city, byCity[city])
		fmt.Printf("  %-16s n=%-5d avg=%6.1f min=%6.1f max=%6.1f\n", city, s.Count, s.AvgTemp, s.MinTemp, s.MaxTemp)
	}
	fmt.Println("\nBy category:")
	for _, c := range domain.ComputeCategoryStats(readings) {
		fmt.Printf("  %-9s %d\n", c.Category, c.Count)
	}
}
