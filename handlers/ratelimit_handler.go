package handlers

import (
	"net/http"

	"github.com/upb/tenant-gateway/services/ratelimit"
	"github.com/upb/tenant-gateway/utils"
	"go.uber.org/zap"
)

// RateLimitHandler exposes limiter introspection for operators
type RateLimitHandler struct {
	limiter *ratelimit.Service
	logger  *zap.Logger
}

// NewRateLimitHandler creates a new RateLimitHandler
func NewRateLimitHandler(limiter *ratelimit.Service, logger *zap.Logger) *RateLimitHandler {
	return &RateLimitHandler{
		limiter: limiter,
		logger:  logger,
	}
}

// UsageResponse is the response body for GET /ratelimit/usage
type UsageResponse struct {
	TrackedKeys int                  `json:"tracked_keys"`
	Usage       *ratelimit.UsageStats `json:"usage,omitempty"`
}

// HandleUsage handles GET /ratelimit/usage?key=<key>
// Without a key it reports only the number of tracked keys.
func (h *RateLimitHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	response := UsageResponse{TrackedKeys: h.limiter.Size()}

	if key := r.URL.Query().Get("key"); key != "" {
		stats, ok := h.limiter.Usage(key)
		if !ok {
			_ = utils.WriteNotFound(w, "No window tracked for key")
			return
		}
		response.Usage = &stats
	}

	_ = utils.WriteOK(w, response)
}
