package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/tenant-gateway/models"
	"github.com/upb/tenant-gateway/repositories"
	"go.uber.org/zap"
)

// RecommendationRepository implements the repositories.RecommendationRepository interface
type RecommendationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRecommendationRepository creates a new recommendation repository
func NewRecommendationRepository(db *DB, logger *zap.Logger) repositories.RecommendationRepository {
	return &RecommendationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new recommendation
func (r *RecommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	query := `
		INSERT INTO recommendations (id, tenant_id, title, body, score, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		rec.ID,
		rec.TenantID,
		rec.Title,
		rec.Body,
		rec.Score,
		rec.CreatedBy,
		rec.CreatedAt,
		rec.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create recommendation: %w", err)
	}

	r.logger.Debug("recommendation created",
		zap.String("id", rec.ID.String()),
		zap.String("tenant_id", rec.TenantID))
	return nil
}

// GetByID retrieves a recommendation by ID within a tenant
func (r *RecommendationRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Recommendation, error) {
	query := `
		SELECT id, tenant_id, title, body, score, created_by, created_at, updated_at
		FROM recommendations
		WHERE id = $1 AND tenant_id = $2
	`

	executor := GetExecutor(ctx, r.db)
	rec := &models.Recommendation{}

	err := executor.QueryRowContext(ctx, query, id, tenantID).Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.Title,
		&rec.Body,
		&rec.Score,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: recommendation %s", repositories.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get recommendation: %w", err)
	}

	return rec, nil
}

// ListByTenant retrieves recommendations for a tenant with pagination, highest score first
func (r *RecommendationRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*models.Recommendation, error) {
	query := `
		SELECT id, tenant_id, title, body, score, created_by, created_at, updated_at
		FROM recommendations
		WHERE tenant_id = $1
		ORDER BY score DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []*models.Recommendation
	for rows.Next() {
		rec := &models.Recommendation{}
		err := rows.Scan(
			&rec.ID,
			&rec.TenantID,
			&rec.Title,
			&rec.Body,
			&rec.Score,
			&rec.CreatedBy,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendation rows: %w", err)
	}

	return recs, nil
}

// Update updates a recommendation within a tenant
func (r *RecommendationRepository) Update(ctx context.Context, rec *models.Recommendation) error {
	query := `
		UPDATE recommendations
		SET title = $3,
		    body = $4,
		    score = $5,
		    updated_at = $6
		WHERE id = $1 AND tenant_id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		rec.ID,
		rec.TenantID,
		rec.Title,
		rec.Body,
		rec.Score,
		rec.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update recommendation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: recommendation %s", repositories.ErrNotFound, rec.ID)
	}

	r.logger.Debug("recommendation updated", zap.String("id", rec.ID.String()))
	return nil
}

// Delete deletes a recommendation within a tenant
func (r *RecommendationRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	query := `DELETE FROM recommendations WHERE id = $1 AND tenant_id = $2`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete recommendation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: recommendation %s", repositories.ErrNotFound, id)
	}

	r.logger.Debug("recommendation deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *RecommendationRepository) WithTx(tx repositories.Transaction) repositories.RecommendationRepository {
	return &RecommendationRepository{
		db:     r.db,
		logger: r.logger,
	}
}
