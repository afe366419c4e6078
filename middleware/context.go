package middleware

import (
	"context"
	"errors"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// identityKey is the context key for the authenticated identity
	identityKey contextKey = "identity"
)

// ErrNoIdentity is returned by RequireIdentity when no identity has been
// attached to the request. Hitting it means a handler that assumes an
// authenticated caller was wired onto an anonymous route.
var ErrNoIdentity = errors.New("no identity in request context")

// Identity is the authenticated caller for a single request. Roles keep the
// order they appeared in the token; duplicates are allowed.
type Identity struct {
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the identity carries the given role (exact match).
// A nil identity (anonymous request) never has a role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithIdentity attaches the authenticated identity to the request context.
// The identity lives exactly as long as the request: it is never visible to
// another request and needs no explicit teardown.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity from context. Returns nil for
// anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	if val := ctx.Value(identityKey); val != nil {
		if id, ok := val.(*Identity); ok {
			return id
		}
	}
	return nil
}

// RequireIdentity is the strict accessor: it returns ErrNoIdentity when the
// request is anonymous. Use IdentityFromContext for the nil-tolerant read.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return nil, ErrNoIdentity
	}
	return id, nil
}

// HasRole reports whether the request context carries an identity with the
// given role. False for anonymous requests.
func HasRole(ctx context.Context, role string) bool {
	return IdentityFromContext(ctx).HasRole(role)
}
