package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		identity := &Identity{
			TenantID: "acme",
			UserID:   "user-123",
			Roles:    []string{"admin"},
		}

		ctx := WithIdentity(context.Background(), identity)
		got := IdentityFromContext(ctx)

		require.NotNil(t, got)
		assert.Equal(t, identity, got)
	})

	t.Run("empty context is anonymous", func(t *testing.T) {
		assert.Nil(t, IdentityFromContext(context.Background()))
	})

	t.Run("contexts are isolated", func(t *testing.T) {
		base := context.Background()
		ctxA := WithIdentity(base, &Identity{TenantID: "acme"})
		ctxB := WithIdentity(base, &Identity{TenantID: "globex"})

		assert.Equal(t, "acme", IdentityFromContext(ctxA).TenantID)
		assert.Equal(t, "globex", IdentityFromContext(ctxB).TenantID)
		assert.Nil(t, IdentityFromContext(base))
	})
}

func TestRequireIdentity(t *testing.T) {
	t.Run("returns identity when present", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{TenantID: "acme"})

		identity, err := RequireIdentity(ctx)
		require.NoError(t, err)
		assert.Equal(t, "acme", identity.TenantID)
	})

	t.Run("returns ErrNoIdentity for anonymous context", func(t *testing.T) {
		_, err := RequireIdentity(context.Background())
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}

func TestHasRole(t *testing.T) {
	t.Run("nil identity never has a role", func(t *testing.T) {
		var identity *Identity
		assert.False(t, identity.HasRole("admin"))
	})

	t.Run("exact match only", func(t *testing.T) {
		identity := &Identity{Roles: []string{"admin", "analyst"}}

		assert.True(t, identity.HasRole("admin"))
		assert.True(t, identity.HasRole("analyst"))
		assert.False(t, identity.HasRole("Admin"))
		assert.False(t, identity.HasRole("viewer"))
	})

	t.Run("context helper", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{Roles: []string{"admin"}})

		assert.True(t, HasRole(ctx, "admin"))
		assert.False(t, HasRole(ctx, "viewer"))
		assert.False(t, HasRole(context.Background(), "admin"))
	})
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")

	assert.Equal(t, "req-123", GetRequestIDFromContext(ctx))
	assert.Equal(t, "", GetRequestIDFromContext(context.Background()))
}
