package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

const maxPlannerProfessors = 500

type timetablePlanner interface {
	Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error)
	Save(ctx context.Context, req dto.SavePlanRequest) (string, error)
	List(ctx context.Context, query dto.PlanQuery) ([]models.TimetablePlan, error)
	GetAssignments(ctx context.Context, planID string) ([]models.TimetablePlanAssignment, error)
	ExportProposal(ctx context.Context, proposalID string) (string, []byte, error)
}

// PlannerHandler exposes the institutional block planner.
type PlannerHandler struct {
	service timetablePlanner
	logger  *zap.Logger
}

// NewPlannerHandler constructs the handler.
func NewPlannerHandler(svc timetablePlanner, logger *zap.Logger) *PlannerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlannerHandler{service: svc, logger: logger}
}

// Generate godoc
// @Summary Assign weekly teaching blocks to every professor of a term
// @Description The proposal is kept in memory until saved or expired. Under-allocated subjects are reported as warnings.
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.GeneratePlanRequest true "Planner payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /planner/generate [post]
func (h *PlannerHandler) Generate(c *gin.Context) {
	var req dto.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid planner payload"))
		return
	}
	if len(req.ProfessorIDs) > maxPlannerProfessors {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "professorIds exceeds supported limit"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Persist a generated proposal as a draft timetable plan
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.SavePlanRequest true "Save payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /planner/save [post]
func (h *PlannerHandler) Save(c *gin.Context) {
	var req dto.SavePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	id, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	response.Created(c, dto.SavePlanResponse{PlanID: id})
}

// List godoc
// @Summary List saved timetable plans of a term
// @Tags Planner
// @Produce json
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /planner/plans [get]
func (h *PlannerHandler) List(c *gin.Context) {
	var query dto.PlanQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Assignments godoc
// @Summary Get booked blocks of a saved plan
// @Tags Planner
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /planner/plans/{id}/assignments [get]
func (h *PlannerHandler) Assignments(c *gin.Context) {
	items, err := h.service.GetAssignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Export godoc
// @Summary Download a proposal as CSV
// @Tags Planner
// @Produce text/csv
// @Param id path string true "Proposal ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /planner/proposals/{id}/export [get]
func (h *PlannerHandler) Export(c *gin.Context) {
	filename, payload, err := h.service.ExportProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	response.Attachment(c, filename, export.ContentTypeCSV, payload)
}
