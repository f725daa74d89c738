package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/auth"
	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/couchcryptid/temperature-relay/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestTokenService_RoundTrip(t *testing.T) {
	svc := auth.NewTokenService(testSecret, "temperature-relay")

	token, err := svc.Issue("user-1", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestTokenService_Rejects(t *testing.T) {
	svc := auth.NewTokenService(testSecret, "temperature-relay")
	other := auth.NewTokenService("other-secret", "temperature-relay")
	foreignIssuer := auth.NewTokenService(testSecret, "someone-else")

	expired, err := svc.Issue("u", auth.RoleUser, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := other.Issue("u", auth.RoleUser, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := foreignIssuer.Issue("u", auth.RoleUser, time.Hour)
	require.NoError(t, err)

	tests := map[string]struct {
		token   string
		message string
	}{
		"expired":      {expired, "token has expired"},
		"wrong key":    {wrongKey, "invalid token"},
		"wrong issuer": {wrongIssuer, "invalid token"},
		"garbage":      {"not.a.jwt", "invalid token"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(tc.token)
			require.Error(t, err)
			assert.Equal(t, domain.KindAuth, domain.KindOf(err))
			assert.Equal(t, tc.message, domain.MessageOf(err))
		})
	}
}

func protected(svc *auth.TokenService, admin bool) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-User", auth.ClaimsFrom(r.Context()).UserID)
		w.WriteHeader(http.StatusOK)
	})
	if admin {
		h = auth.RequireAdmin(h)
	}
	return auth.RequireAuth(svc, observability.DiscardLogger())(h)
}

func TestRequireAuth(t *testing.T) {
	svc := auth.NewTokenService(testSecret, "temperature-relay")
	userToken, err := svc.Issue("alice", auth.RoleUser, time.Hour)
	require.NoError(t, err)
	adminToken, err := svc.Issue("root", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	tests := map[string]struct {
		header string
		admin  bool
		want   int
		user   string
	}{
		"missing header":       {"", false, http.StatusUnauthorized, ""},
		"wrong scheme":         {"Basic abc", false, http.StatusUnauthorized, ""},
		"bad token":            {"Bearer nope", false, http.StatusUnauthorized, ""},
		"user ok":              {"Bearer " + userToken, false, http.StatusOK, "alice"},
		"user on admin route":  {"Bearer " + userToken, true, http.StatusForbidden, ""},
		"admin on admin route": {"Bearer " + adminToken, true, http.StatusOK, "root"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/temperature", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			protected(svc, tc.admin).ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			assert.Equal(t, tc.user, rec.Header().Get("X-User"))
		})
	}
}
