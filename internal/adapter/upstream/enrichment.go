package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// EnrichmentClient forwards raw readings to the enrichment relay's webhook.
type EnrichmentClient struct {
	client *Client
}

// NewEnrichmentClient creates an EnrichmentClient.
func NewEnrichmentClient(s Settings, httpClient *http.Client, logger *slog.Logger) *EnrichmentClient {
	return &EnrichmentClient{client: NewClient(s, httpClient, logger)}
}

// URL returns the webhook endpoint.
func (e *EnrichmentClient) URL() string { return e.client.URL() }

// Forward posts raw and returns the enrichment relay's response.
func (e *EnrichmentClient) Forward(ctx context.Context, raw domain.RawReading) (domain.WebhookResponse, error) {
	body, err := e.client.PostJSON(ctx, raw)
	if err != nil {
		return domain.WebhookResponse{}, err
	}
	var resp domain.WebhookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.WebhookResponse{}, fmt.Errorf("decode webhook response: %w", err)
	}
	return resp, nil
}
