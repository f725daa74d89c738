// Package upstream holds the HTTP clients each relay uses to reach the next
// hop. Calls are bounded by a timeout and guarded by a circuit breaker; a
// failed call is reported, never retried.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/sony/gobreaker"
)

// maxResponseBytes bounds how much of a downstream response is read.
const maxResponseBytes = 1 << 20

// ErrUnavailable marks failures of the hop itself: unreachable, timed out,
// a 5xx without a classified body, or an open circuit. Only these trip the
// breaker; classified rejections from downstream do not.
var ErrUnavailable = errors.New("upstream unavailable")

// Settings configures a Client.
type Settings struct {
	Name        string // breaker name and log label
	URL         string
	Source      string // sent as X-Source
	Timeout     time.Duration
	MaxFailures int           // consecutive failures before the breaker opens
	OpenTimeout time.Duration // how long the breaker stays open
}

// Client posts JSON to a single downstream endpoint.
type Client struct {
	settings Settings
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient.
func NewClient(s Settings, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxFailures := uint32(max(s.MaxFailures, 1)) //nolint:gosec // bounded by config validation
	c := &Client{settings: s, http: httpClient, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// URL returns the endpoint this client posts to.
func (c *Client) URL() string { return c.settings.URL }

// PostJSON sends payload and returns the body of a 2xx response. Non-2xx
// responses carrying a classified error body are returned as that error so
// callers can report the downstream cause.
func (c *Client) PostJSON(ctx context.Context, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", c.settings.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, data)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, c.unavailable("circuit open", err)
		}
		return nil, err
	}
	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T from circuit breaker", result)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.URL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.settings.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.settings.Source != "" {
		req.Header.Set("X-Source", c.settings.Source)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, c.unavailable(fmt.Sprintf("timed out after %s", c.settings.Timeout), err)
		}
		return nil, c.unavailable("unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.unavailable("read response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	var errBody domain.ErrorResponse
	if json.Unmarshal(body, &errBody) == nil && errBody.Kind != "" {
		return nil, domain.NewError(errBody.Kind, errBody.Message)
	}
	if resp.StatusCode >= 500 {
		return nil, c.unavailable(fmt.Sprintf("responded %d", resp.StatusCode), nil)
	}
	return nil, domain.Errorf(domain.KindInternal, "%s responded %d", c.settings.Name, resp.StatusCode)
}

func (c *Client) unavailable(reason string, cause error) error {
	err := ErrUnavailable
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrUnavailable, cause)
	}
	return domain.WrapError(domain.KindUpstreamUnavailable, fmt.Sprintf("%s %s", c.settings.Name, reason), err)
}
