package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"familytree/pkg/auth"
	pkgerrors "familytree/pkg/errors"
	"familytree/pkg/observability"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newValidator(t *testing.T) *auth.JWTValidator {
	t.Helper()
	v, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: testSecret, Issuer: "familytree"})
	require.NoError(t, err)
	return v
}

func newToken(t *testing.T, userID string) string {
	t.Helper()
	g, err := auth.NewJWTGenerator(auth.JWTConfig{SecretKey: testSecret, Issuer: "familytree", Expiry: time.Hour})
	require.NoError(t, err)
	token, err := g.GenerateToken(userID, userID+"@example.com", []string{"editor"})
	require.NoError(t, err)
	return token
}

func TestAuthenticate(t *testing.T) {
	errs := pkgerrors.NewErrorHandler(zap.NewNop(), false)
	var seen *auth.UserContext
	handler := Authenticate(newValidator(t), errs, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v2/tree", nil)
		req.Header.Set("Authorization", "Bearer "+newToken(t, "user-1"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "user-1", seen.UserID)
		assert.True(t, seen.HasRole("editor"))
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v2/tree", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestAuthenticate_DisabledWithoutValidator(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	handler := Authenticate(nil, nil, zap.NewNop())(next)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestRateLimit(t *testing.T) {
	errs := pkgerrors.NewErrorHandler(zap.NewNop(), false)
	limiter := auth.NewTokenBucketLimiter(0, 1)
	handler := RateLimit(limiter, 0, errs, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:5678"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234"), "buckets are per client")
}

func TestRateLimit_KeysByUser(t *testing.T) {
	errs := pkgerrors.NewErrorHandler(zap.NewNop(), false)
	limiter := auth.NewTokenBucketLimiter(0, 1)
	handler := RateLimit(limiter, 0, errs, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := auth.SetUserInContext(context.Background(), &auth.UserContext{UserID: userID})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req.WithContext(ctx))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("a"))
	assert.Equal(t, http.StatusOK, send("b"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	collector := observability.NewCollector("test")
	r := chi.NewRouter()
	r.Use(Metrics(collector))
	r.Get("/persons/{personID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/persons/abc", nil))

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `route="/persons/{personID}"`), body)
	assert.Contains(t, body, `status="4xx"`)
	assert.NotContains(t, body, "/persons/abc")
}

func TestLogger_PassesThrough(t *testing.T) {
	handler := Logger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v2/persons", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
}
