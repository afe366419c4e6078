package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the raw claims carried by a gateway token.
type Claims struct {
	jwt.RegisteredClaims

	// TenantID is the tenant the caller belongs to
	TenantID string `json:"tid"`

	// RolesRaw is the comma-separated role list as issued
	RolesRaw string `json:"roles"`
}

// ParsedClaims represents validated claims in their usable form
type ParsedClaims struct {
	Subject   string
	TenantID  string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// parseClaims converts raw Claims into ParsedClaims
func parseClaims(claims *Claims) *ParsedClaims {
	parsed := &ParsedClaims{
		Subject:  claims.Subject,
		TenantID: claims.TenantID,
		Roles:    SplitRoles(claims.RolesRaw),
	}

	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}

	return parsed
}

// SplitRoles splits a comma-separated role claim into individual roles.
// Entries are whitespace-trimmed and empty segments are dropped; order and
// duplicates are preserved.
func SplitRoles(raw string) []string {
	if raw == "" {
		return nil
	}

	var roles []string
	for _, part := range strings.Split(raw, ",") {
		role := strings.TrimSpace(part)
		if role == "" {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}
