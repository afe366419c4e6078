package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/upb/tenant-gateway/services/ratelimit"
	"go.uber.org/zap"
)

// retryAfterSeconds is the fixed retry hint returned with every 429
const retryAfterSeconds = 60

// RateLimiter is the admission check consumed by the middleware
type RateLimiter interface {
	Admit(key string, limit int) ratelimit.Decision
}

// RateLimitConfig holds the per-identity limits and exemptions
type RateLimitConfig struct {
	// AuthenticatedLimit applies to requests keyed by tenant
	AuthenticatedLimit int

	// UnauthenticatedLimit applies to requests keyed by client address
	UnauthenticatedLimit int

	// ExemptPaths are matched exactly and skip rate limiting entirely
	ExemptPaths []string
}

// RateLimitMiddleware enforces per-identity admission control. Authenticated
// requests are counted per tenant; anonymous requests per client address.
type RateLimitMiddleware struct {
	limiter              RateLimiter
	authenticatedLimit   int
	unauthenticatedLimit int
	exempt               map[string]struct{}
	logger               *zap.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware
func NewRateLimitMiddleware(limiter RateLimiter, cfg RateLimitConfig, logger *zap.Logger) *RateLimitMiddleware {
	exempt := make(map[string]struct{}, len(cfg.ExemptPaths))
	for _, p := range cfg.ExemptPaths {
		exempt[p] = struct{}{}
	}
	return &RateLimitMiddleware{
		limiter:              limiter,
		authenticatedLimit:   cfg.AuthenticatedLimit,
		unauthenticatedLimit: cfg.UnauthenticatedLimit,
		exempt:               exempt,
		logger:               logger,
	}
}

// rateLimitExceededBody is the machine-readable 429 response
type rateLimitExceededBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// Limit is the admission middleware. It must run after Authenticate so that
// authenticated traffic is keyed by tenant. Rate limit headers are set on
// every non-exempt response, admitted or not.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.exempt[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		key, limit := m.keyFor(r)
		decision := m.limiter.Admit(key, limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			m.logger.Warn("rate limit exceeded",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("key", key),
				zap.Int("limit", limit),
				zap.String("path", r.URL.Path))

			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(rateLimitExceededBody{
				Error:      "Rate limit exceeded",
				RetryAfter: retryAfterSeconds,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// keyFor derives the rate limit key and applicable limit for a request:
// the tenant for authenticated callers, the client address otherwise.
func (m *RateLimitMiddleware) keyFor(r *http.Request) (string, int) {
	if identity := IdentityFromContext(r.Context()); identity != nil && identity.TenantID != "" {
		return "tenant:" + identity.TenantID, m.authenticatedLimit
	}
	return "ip:" + clientAddress(r), m.unauthenticatedLimit
}

// clientAddress resolves the caller's network address: the first entry of
// X-Forwarded-For when present, otherwise the direct peer address.
func clientAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
