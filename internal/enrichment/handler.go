package enrichment

import (
	"net/http"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/adapter/httpadapter"
	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// Handler serves the relay's webhook and status endpoints.
type Handler struct {
	relay      *Relay
	storageURL string
}

// NewHandler creates a Handler. storageURL is reported by /stats.
func NewHandler(relay *Relay, storageURL string) *Handler {
	return &Handler{relay: relay, storageURL: storageURL}
}

// Routes returns the relay's HTTP routes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", h.webhook)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /stats", h.stats)
	return mux
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := httpadapter.ReadBody(w, r)
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}

	res, err := h.relay.IngestPayload(r.Context(), body)
	if err != nil {
		httpadapter.WriteJSON(w, httpadapter.StatusFor(domain.KindOf(err)), domain.WebhookResponse{
			Success: false,
			Message: domain.MessageOf(err),
			Kind:    domain.KindOf(err),
		})
		return
	}

	httpadapter.WriteJSON(w, http.StatusOK, domain.WebhookResponse{
		Success:     true,
		Message:     "Data processed and forwarded successfully",
		Data:        &res.Reading,
		APIResponse: res.APIResponse,
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	st := h.relay.Status()
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"processedCount": st.ProcessedCount,
		"errorCount":     st.ErrorCount,
		"uptime":         st.Uptime,
		"timestamp":      domain.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	st := h.relay.Status()
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{
		"processedCount": st.ProcessedCount,
		"errorCount":     st.ErrorCount,
		"successRate":    st.SuccessRate,
		"uptime":         st.Uptime,
		"storageUrl":     h.storageURL,
	})
}
