package httpadapter_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/couchcryptid/temperature-relay/internal/adapter/httpadapter"
	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := map[domain.Kind]int{
		domain.KindSchema:              http.StatusBadRequest,
		domain.KindRange:               http.StatusBadRequest,
		domain.KindDuplicateID:         http.StatusConflict,
		domain.KindNotFound:            http.StatusNotFound,
		domain.KindUpstreamUnavailable: http.StatusBadGateway,
		domain.KindAuth:                http.StatusUnauthorized,
		domain.KindForbidden:           http.StatusForbidden,
		domain.KindRateLimited:         http.StatusTooManyRequests,
		domain.KindInternal:            http.StatusInternalServerError,
		domain.Kind("unknown"):         http.StatusInternalServerError,
	}
	for kind, want := range tests {
		t.Run(string(kind), func(t *testing.T) {
			assert.Equal(t, want, httpadapter.StatusFor(kind))
		})
	}
}

func TestWriteError_Classified(t *testing.T) {
	rec := httptest.NewRecorder()
	httpadapter.WriteError(rec, domain.NewError(domain.KindDuplicateID, "reading abc already stored"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, domain.KindDuplicateID, body.Kind)
	assert.Equal(t, "reading abc already stored", body.Message)
}

func TestWriteError_UnclassifiedHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	httpadapter.WriteError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Contains(t, rec.Body.String(), `"kind":"internal_error"`)
}

func TestReadBody_TooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 70<<10)))

	_, err := httpadapter.ReadBody(rec, req)
	require.Error(t, err)
	assert.Equal(t, domain.KindSchema, domain.KindOf(err))
}
