package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/couchcryptid/temperature-relay/internal/domain"
)

// maxBodyBytes bounds request bodies accepted by the JSON endpoints.
const maxBodyBytes = 64 << 10

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindSchema, domain.KindRange:
		return http.StatusBadRequest
	case domain.KindDuplicateID:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUpstreamUnavailable:
		return http.StatusBadGateway
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

// WriteError writes the standard error body for err. Unclassified errors are
// reported as internal without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	msg := domain.MessageOf(err)
	if kind == domain.KindInternal {
		msg = "internal error"
	}
	WriteJSON(w, StatusFor(kind), domain.ErrorResponse{Success: false, Message: msg, Kind: kind})
}

// ReadBody reads a bounded request body.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.Errorf(domain.KindSchema, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, domain.WrapError(domain.KindSchema, "read request body", fmt.Errorf("read body: %w", err))
	}
	return body, nil
}
