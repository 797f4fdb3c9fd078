package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type recommender interface {
	Recommend(ctx context.Context, studentID string, req dto.RecommendationRequest) (*dto.RecommendationResponse, bool, error)
}

type warmupEnqueuer interface {
	Enqueue(ctx context.Context, req dto.WarmupRequest) (*dto.WarmupResponse, error)
}

// RecommendationHandler exposes student recommendation endpoints.
type RecommendationHandler struct {
	service recommender
	warmup  warmupEnqueuer
	logger  *zap.Logger
}

// NewRecommendationHandler constructs the handler.
func NewRecommendationHandler(svc recommender, warmup warmupEnqueuer, logger *zap.Logger) *RecommendationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationHandler{service: svc, warmup: warmup, logger: logger}
}

// Recommend godoc
// @Summary Rank conflict-free section combinations for a student
// @Description Returns the academic excellence, balanced and teacher evaluation sets. An empty body uses the configured defaults.
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.RecommendationRequest false "Search and scoring overrides"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/recommendations [post]
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req dto.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recommendation payload"))
		return
	}
	result, cached, err := h.service.Recommend(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Warmup godoc
// @Summary Queue background recommendation refreshes
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param payload body dto.WarmupRequest true "Students to warm"
// @Success 202 {object} response.Envelope
// @Router /recommendations/warmup [post]
func (h *RecommendationHandler) Warmup(c *gin.Context) {
	var req dto.WarmupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid warmup payload"))
		return
	}
	result, err := h.warmup.Enqueue(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	response.Accepted(c, result)
}
