package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/tenant-gateway/services/ratelimit"
	"go.uber.org/zap"
)

func newTestRateLimitMiddleware(authLimit, unauthLimit int, exempt ...string) *RateLimitMiddleware {
	limiter := ratelimit.NewService(time.Minute, zap.NewNop())
	return NewRateLimitMiddleware(limiter, RateLimitConfig{
		AuthenticatedLimit:   authLimit,
		UnauthenticatedLimit: unauthLimit,
		ExemptPaths:          exempt,
	}, zap.NewNop())
}

func okHandlerFunc() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func anonymousRequest(peer string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations", nil)
	req.RemoteAddr = peer + ":54321"
	return req
}

func tenantRequest(tenantID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations", nil)
	req.RemoteAddr = "192.0.2.1:54321"
	return req.WithContext(WithIdentity(req.Context(), &Identity{
		TenantID: tenantID,
		UserID:   "user-123",
	}))
}

func TestLimit_AnonymousBudget(t *testing.T) {
	middleware := newTestRateLimitMiddleware(100, 10)
	handler := middleware.Limit(okHandlerFunc())

	for i := 1; i <= 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, anonymousRequest("10.0.0.5"))

		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(10-i), w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	// The 11th request within the window is rejected
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, anonymousRequest("10.0.0.5"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.Equal(t, float64(60), body["retryAfter"])
}

func TestLimit_TenantKeyedIndependentOfAddress(t *testing.T) {
	middleware := newTestRateLimitMiddleware(3, 10)
	handler := middleware.Limit(okHandlerFunc())

	// Same tenant from different peer addresses shares one budget
	for i, peer := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		req := tenantRequest("acme")
		req.RemoteAddr = peer + ":54321"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, tenantRequest("acme"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Another tenant is unaffected
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, tenantRequest("globex"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))

	// Anonymous traffic is keyed separately from tenant traffic
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, anonymousRequest("10.0.0.1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
}

func TestLimit_ExemptPaths(t *testing.T) {
	middleware := newTestRateLimitMiddleware(100, 1, "/healthz", "/readyz")
	handler := middleware.Limit(okHandlerFunc())

	// Exempt paths are never counted and carry no rate limit headers
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.5:54321"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}

	// The exempt traffic did not consume the address budget
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, anonymousRequest("10.0.0.5"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLimit_RejectedRequestNeverReachesHandler(t *testing.T) {
	middleware := newTestRateLimitMiddleware(100, 1)

	calls := 0
	handler := middleware.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), anonymousRequest("10.0.0.5"))
	handler.ServeHTTP(httptest.NewRecorder(), anonymousRequest("10.0.0.5"))
	handler.ServeHTTP(httptest.NewRecorder(), anonymousRequest("10.0.0.5"))

	assert.Equal(t, 1, calls)
}

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		expected   string
	}{
		{"remote addr with port", "", "192.0.2.1:54321", "192.0.2.1"},
		{"remote addr without port", "", "192.0.2.1", "192.0.2.1"},
		{"xff single entry", "203.0.113.7", "192.0.2.1:54321", "203.0.113.7"},
		{"xff first of several", "203.0.113.7, 198.51.100.2, 192.0.2.1", "192.0.2.1:54321", "203.0.113.7"},
		{"xff entries trimmed", "  203.0.113.7 , 198.51.100.2", "192.0.2.1:54321", "203.0.113.7"},
		{"empty everything", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.expected, clientAddress(req))
		})
	}
}
