package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

// JobTypeRecommendationWarmup tags queued recommendation refreshes.
const JobTypeRecommendationWarmup = "RECOMMENDATION_WARMUP"

type jobSubmitter interface {
	Submit(jobType string, payload interface{}) (string, error)
}

// WarmupService queues background recommendation refreshes.
type WarmupService struct {
	queue     jobSubmitter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWarmupService constructs the service.
func NewWarmupService(queue jobSubmitter, validate *validator.Validate, logger *zap.Logger) *WarmupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarmupService{queue: queue, validator: validate, logger: logger}
}

// Enqueue submits one job per distinct student id.
func (s *WarmupService) Enqueue(ctx context.Context, req dto.WarmupRequest) (*dto.WarmupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid warmup payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "warmup queue unavailable")
	}
	students := lo.Compact(lo.Uniq(lo.Map(req.StudentIDs, func(id string, _ int) string { return strings.TrimSpace(id) })))
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentIds must contain a non-blank id")
	}
	resp := &dto.WarmupResponse{JobIDs: make([]string, 0, len(students))}
	for _, studentID := range students {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := s.queue.Submit(JobTypeRecommendationWarmup, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue warmup job")
		}
		resp.JobIDs = append(resp.JobIDs, id)
	}
	s.logger.Info("recommendation warmup queued", zap.Int("students", len(students)))
	return resp, nil
}

type recommendationRefresher interface {
	Refresh(ctx context.Context, studentID string) error
}

// RecommendationWorker bridges queue jobs to RecommendationService.
type RecommendationWorker struct {
	recommendations recommendationRefresher
	metrics         *MetricsService
	logger          *zap.Logger
}

// NewRecommendationWorker constructs a worker.
func NewRecommendationWorker(recommendations recommendationRefresher, metrics *MetricsService, logger *zap.Logger) *RecommendationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationWorker{recommendations: recommendations, metrics: metrics, logger: logger}
}

// Handle processes a queue job.
func (w *RecommendationWorker) Handle(ctx context.Context, job jobs.Job) error {
	studentID, ok := job.Payload.(string)
	if !ok || studentID == "" {
		w.metrics.RecordWarmupJob(fmt.Errorf("bad payload"))
		w.logger.Warn("dropping warmup job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	err := w.recommendations.Refresh(ctx, studentID)
	w.metrics.RecordWarmupJob(err)
	if err != nil {
		return fmt.Errorf("refresh recommendations for %s: %w", studentID, err)
	}
	w.logger.Debug("recommendations warmed", zap.String("job_id", job.ID), zap.String("student_id", studentID))
	return nil
}
