// Command checkservices probes every hop of a running pipeline and reports
// which ones are up. It exits non-zero when any required check fails.
//
// Usage:
//
//	go run ./cmd/checkservices \
//	  -generator http://localhost:3001 \
//	  -ingress http://localhost:3002 \
//	  -enrichment http://localhost:3003 \
//	  -storage http://localhost:3004
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// target is one service to probe. Health endpoints are optional for the
// generator, which only serves /healthz and /readyz.
type target struct {
	name    string
	baseURL string
	paths   []string
}

// phase tracks pass/fail for one service.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	generator := flag.String("generator", sharedcfg.EnvOrDefault("GENERATOR_BASE_URL", "http://localhost:3001"), "generator base URL (empty to skip)")
	ingress := flag.String("ingress", sharedcfg.EnvOrDefault("INGRESS_BASE_URL", "http://localhost:3002"), "ingress relay base URL")
	enrichment := flag.String("enrichment", sharedcfg.EnvOrDefault("ENRICHMENT_BASE_URL", "http://localhost:3003"), "enrichment relay base URL")
	storage := flag.String("storage", sharedcfg.EnvOrDefault("STORAGE_BASE_URL", "http://localhost:3004"), "storage service base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	targets := []target{
		{name: "generator", baseURL: *generator, paths: []string{"/healthz", "/readyz"}},
		{name: "ingress relay", baseURL: *ingress, paths: []string{"/health", "/readyz"}},
		{name: "enrichment relay", baseURL: *enrichment, paths: []string{"/health", "/readyz"}},
		{name: "storage service", baseURL: *storage, paths: []string{"/health", "/readyz"}},
	}

	os.Exit(run(context.Background(), &http.Client{Timeout: *timeout}, targets, os.Stdout))
}

func run(ctx context.Context, client *http.Client, targets []target, out io.Writer) int {
	fmt.Fprintln(out, "=== Temperature Relay Service Check ===")
	fmt.Fprintln(out)

	var phases []*phase
	for _, t := range targets {
		if t.baseURL == "" {
			continue
		}
		phases = append(phases, check(ctx, client, t))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mUP\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mDOWN (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-20s %s\n", p.name, status)
		for _, n := range p.notes {
			fmt.Fprintf(out, "      %s\n", n)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll services are up.")
		return 0
	}
	fmt.Fprintln(out, "\nService check FAILED.")
	return 1
}

func check(ctx context.Context, client *http.Client, t target) *phase {
	p := &phase{name: t.name}
	base := strings.TrimRight(t.baseURL, "/")
	for _, path := range t.paths {
		body, err := probe(ctx, client, base+path)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		if note := summarize(body); note != "" {
			p.notes = append(p.notes, path+" "+note)
		}
	}
	return p
}

// probe GETs url and returns the decoded JSON body of a 200 response. A
// non-JSON 200 body is accepted and returned as nil.
func probe(ctx context.Context, client *http.Client, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var body map[string]any
	if json.Unmarshal(data, &body) != nil {
		return nil, nil //nolint:nilnil // plain-text health bodies carry no fields
	}
	return body, nil
}

// summarize picks the counters worth printing from a health body.
func summarize(body map[string]any) string {
	var parts []string
	for _, key := range []string{"status", "connectedClients", "processedCount", "errorCount", "records"} {
		if v, ok := body[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return strings.Join(parts, " ")
}
