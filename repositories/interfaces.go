package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/tenant-gateway/models"
)

// ErrNotFound is returned when a row does not exist within the caller's tenant
var ErrNotFound = errors.New("not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// RecommendationRepository handles recommendation data operations.
// Every read and write is scoped by tenant: a repository call can never
// return or touch another tenant's rows.
type RecommendationRepository interface {
	// Create creates a new recommendation
	Create(ctx context.Context, rec *models.Recommendation) error

	// GetByID retrieves a recommendation by ID within a tenant
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Recommendation, error)

	// ListByTenant retrieves recommendations for a tenant with pagination,
	// highest score first
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*models.Recommendation, error)

	// Update updates a recommendation within a tenant
	Update(ctx context.Context, rec *models.Recommendation) error

	// Delete deletes a recommendation within a tenant
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) RecommendationRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Recommendations RecommendationRepository
}
