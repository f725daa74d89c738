package storage

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/adapter/httpadapter"
	"github.com/couchcryptid/temperature-relay/internal/auth"
	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler serves the storage HTTP API.
type Handler struct {
	service *Service
	tokens  auth.Validator
	limiter *httpadapter.RateLimiter
	logger  *slog.Logger
	started time.Time
}

// NewHandler creates a Handler.
func NewHandler(service *Service, tokens auth.Validator, limiter *httpadapter.RateLimiter, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		tokens:  tokens,
		limiter: limiter,
		logger:  logger,
		started: time.Now(),
	}
}

// Routes returns the chi router for the API. Insert is anonymous; queries
// need a bearer token; analytics and delete need the admin role.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/api/temperature", func(r chi.Router) {
		r.Use(h.limiter.Middleware)
		r.Post("/", h.insert)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(h.tokens, h.logger))
			r.Get("/", h.list)
			r.Get("/stats/{city}", h.stats)
			r.Get("/range", h.rangeQuery)
			r.Get("/latest", h.latest)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/analytics", h.analytics)
				r.Delete("/{id}", h.delete)
			})
		})
	})
	return r
}

func (h *Handler) insert(w http.ResponseWriter, r *http.Request) {
	body, err := httpadapter.ReadBody(w, r)
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}
	reading, err := h.service.validator.ParseEnrichedReading(body)
	if err != nil {
		h.service.metrics.Inserts.WithLabelValues(string(domain.KindOf(err))).Inc()
		h.logger.Info("insert rejected", "kind", domain.KindOf(err), "error", err, "source", r.Header.Get("X-Source"))
		httpadapter.WriteError(w, err)
		return
	}

	result, err := h.service.Insert(r.Context(), reading)
	if err != nil {
		h.logResult("insert failed", err)
		httpadapter.WriteError(w, err)
		return
	}
	httpadapter.WriteJSON(w, http.StatusCreated, domain.InsertResponse{
		Success: true,
		Message: "Temperature data stored successfully",
		Data:    &result,
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit", DefaultListLimit)
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}
	page, err := intParam(q, "page", 1)
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}

	res, err := h.service.List(r.Context(), q.Get("city"), limit, page)
	if err != nil {
		h.logResult("list failed", err)
		httpadapter.WriteError(w, err)
		return
	}
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"data":       res.Data,
		"pagination": res.Pagination,
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	city, err := url.PathUnescape(chi.URLParam(r, "city"))
	if err != nil {
		httpadapter.WriteError(w, domain.NewError(domain.KindSchema, "malformed city"))
		return
	}
	q := r.URL.Query()
	from, err := optionalDate(q, "startDate")
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}
	to, err := optionalDate(q, "endDate")
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}

	stats, err := h.service.StatsByCity(r.Context(), city, from, to)
	if err != nil {
		h.logResult("stats failed", err)
		httpadapter.WriteError(w, err)
		return
	}
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": stats})
}

func (h *Handler) rangeQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := requiredDate(q, "startDate")
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}
	end, err := requiredDate(q, "endDate")
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}

	data, err := h.service.Range(r.Context(), start, end, q.Get("city"))
	if err != nil {
		h.logResult("range query failed", err)
		httpadapter.WriteError(w, err)
		return
	}
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": data, "count": len(data)})
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit", DefaultLatestLimit)
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}

	data, err := h.service.Latest(r.Context(), q.Get("city"), limit)
	if err != nil {
		h.logResult("latest failed", err)
		httpadapter.WriteError(w, err)
		return
	}
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query(), "days", DefaultAnalyticsDays)
	if err != nil {
		httpadapter.WriteError(w, err)
		return
	}

	res, err := h.service.Analytics(r.Context(), days)
	if err != nil {
		h.logResult("analytics failed", err)
		httpadapter.WriteError(w, err)
		return
	}
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": res})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logResult("delete failed", err)
		httpadapter.WriteError(w, err)
		return
	}
	h.logger.Info("reading deleted", "id", id, "user_id", auth.ClaimsFrom(r.Context()).UserID)
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Temperature record deleted"})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context())
	if err != nil {
		h.logger.Error("health count failed", "error", err)
		httpadapter.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"timestamp": domain.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"records":   count,
		"uptime":    time.Since(h.started).Seconds(),
		"timestamp": domain.Now().UTC().Format(time.RFC3339),
	})
}

// logResult logs client errors at info and everything else at error.
func (h *Handler) logResult(msg string, err error) {
	switch domain.KindOf(err) {
	case domain.KindInternal, domain.KindUpstreamUnavailable:
		h.logger.Error(msg, "error", err)
	default:
		h.logger.Info(msg, "kind", domain.KindOf(err), "error", err)
	}
}
