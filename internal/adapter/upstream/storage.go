package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// StorageClient inserts enriched readings into the storage service.
type StorageClient struct {
	client *Client
}

// NewStorageClient creates a StorageClient.
func NewStorageClient(s Settings, httpClient *http.Client, logger *slog.Logger) *StorageClient {
	return &StorageClient{client: NewClient(s, httpClient, logger)}
}

// URL returns the insert endpoint.
func (s *StorageClient) URL() string { return s.client.URL() }

// Insert stores r and returns the insert summary along with the raw storage
// response, which the enrichment relay echoes to its caller.
func (s *StorageClient) Insert(ctx context.Context, r domain.EnrichedReading) (domain.InsertResult, json.RawMessage, error) {
	body, err := s.client.PostJSON(ctx, r)
	if err != nil {
		return domain.InsertResult{}, nil, err
	}
	var resp domain.InsertResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.InsertResult{}, nil, fmt.Errorf("decode insert response: %w", err)
	}
	if resp.Data == nil {
		return domain.InsertResult{}, nil, domain.NewError(domain.KindInternal, "storage response missing data")
	}
	return *resp.Data, json.RawMessage(body), nil
}
