package models

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation represents a tenant-scoped recommendation entry served by
// the business layer behind the gateway pipeline.
type Recommendation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Score     float64   `json:"score" db:"score"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Recommendation model
func (Recommendation) TableName() string {
	return "recommendations"
}

// NewRecommendation creates a new Recommendation instance
func NewRecommendation(tenantID, title, body string, score float64, createdBy string) *Recommendation {
	now := time.Now()
	return &Recommendation{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Title:     title,
		Body:      body,
		Score:     score,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
