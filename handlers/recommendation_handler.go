package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/tenant-gateway/middleware"
	"github.com/upb/tenant-gateway/models"
	"github.com/upb/tenant-gateway/repositories"
	"github.com/upb/tenant-gateway/utils"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// RecommendationHandler serves the tenant-scoped recommendation API.
// Every operation reads the tenant from the request identity; a caller can
// only ever see its own tenant's rows.
type RecommendationHandler struct {
	repo   repositories.RecommendationRepository
	logger *zap.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler
func NewRecommendationHandler(repo repositories.RecommendationRepository, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		repo:   repo,
		logger: logger,
	}
}

// CreateRecommendationRequest is the request body for POST /recommendations
type CreateRecommendationRequest struct {
	Title string  `json:"title" validate:"required,max=255"`
	Body  string  `json:"body" validate:"required"`
	Score float64 `json:"score" validate:"gte=0,lte=1"`
}

// UpdateRecommendationRequest is the request body for PUT /recommendations/{id}
type UpdateRecommendationRequest struct {
	Title string  `json:"title" validate:"required,max=255"`
	Body  string  `json:"body" validate:"required"`
	Score float64 `json:"score" validate:"gte=0,lte=1"`
}

// HandleCreate handles POST /recommendations
func (h *RecommendationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateRecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}

	rec := models.NewRecommendation(identity.TenantID, req.Title, req.Body, req.Score, identity.UserID)
	if err := h.repo.Create(r.Context(), rec); err != nil {
		h.logger.Error("failed to create recommendation",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("tenant_id", identity.TenantID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteCreated(w, rec)
}

// HandleList handles GET /recommendations
func (h *RecommendationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit, offset := paginationParams(r)
	recs, err := h.repo.ListByTenant(r.Context(), identity.TenantID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list recommendations",
			zap.String("tenant_id", identity.TenantID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	if recs == nil {
		recs = []*models.Recommendation{}
	}
	_ = utils.WriteOK(w, recs)
}

// HandleGet handles GET /recommendations/{id}
func (h *RecommendationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid recommendation ID", nil)
		return
	}

	rec, err := h.repo.GetByID(r.Context(), identity.TenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = utils.WriteNotFound(w, "Recommendation not found")
			return
		}
		h.logger.Error("failed to get recommendation",
			zap.String("tenant_id", identity.TenantID),
			zap.String("id", id.String()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteOK(w, rec)
}

// HandleUpdate handles PUT /recommendations/{id}
func (h *RecommendationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid recommendation ID", nil)
		return
	}

	var req UpdateRecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), toDetails(utils.GetValidationFields(err)))
		return
	}

	rec := &models.Recommendation{
		ID:        id,
		TenantID:  identity.TenantID,
		Title:     req.Title,
		Body:      req.Body,
		Score:     req.Score,
		UpdatedAt: time.Now(),
	}

	if err := h.repo.Update(r.Context(), rec); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = utils.WriteNotFound(w, "Recommendation not found")
			return
		}
		h.logger.Error("failed to update recommendation",
			zap.String("tenant_id", identity.TenantID),
			zap.String("id", id.String()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteOK(w, rec)
}

// HandleDelete handles DELETE /recommendations/{id}
func (h *RecommendationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.RequireIdentity(r.Context())
	if err != nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid recommendation ID", nil)
		return
	}

	if err := h.repo.Delete(r.Context(), identity.TenantID, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = utils.WriteNotFound(w, "Recommendation not found")
			return
		}
		h.logger.Error("failed to delete recommendation",
			zap.String("tenant_id", identity.TenantID),
			zap.String("id", id.String()),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	utils.WriteNoContent(w)
}

// paginationParams reads limit/offset query parameters with defaults
func paginationParams(r *http.Request) (limit, offset int) {
	limit = defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// toDetails converts validation field errors to response details
func toDetails(fields map[string]string) map[string]interface{} {
	if fields == nil {
		return nil
	}
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return details
}
