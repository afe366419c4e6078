package handlers

import (
	"net/http"

	"github.com/upb/tenant-gateway/middleware"
	"github.com/upb/tenant-gateway/utils"
)

// CurrentIdentityResponse is the response body for GET /api/v1/identity
type CurrentIdentityResponse struct {
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	Roles    []string `json:"roles"`
}

// HandleCurrentIdentity returns the authenticated caller's identity as seen
// by the gateway. Useful for debugging token claims.
func HandleCurrentIdentity(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	roles := identity.Roles
	if roles == nil {
		roles = []string{}
	}

	respondJSON(w, http.StatusOK, SuccessResponse{
		Data: CurrentIdentityResponse{
			TenantID: identity.TenantID,
			UserID:   identity.UserID,
			Roles:    roles,
		},
	})
}
