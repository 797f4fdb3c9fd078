package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

const recommendationCachePrefix = "timetable:recommendations"

// keyPatternEscaper quotes Redis glob metacharacters so an id only ever matches itself.
var keyPatternEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

type catalogReader interface {
	ListEligibleSubjects(ctx context.Context, studentID string) ([]models.Subject, error)
	ListSectionsBySubjects(ctx context.Context, subjectCodes []string) ([]models.Section, error)
	ListBlocksBySections(ctx context.Context, sectionIDs []string) ([]models.SectionBlock, error)
}

type performanceReader interface {
	ListPassRates(ctx context.Context, professorIDs []string) ([]models.SubjectPassRate, error)
	ListEvaluations(ctx context.Context, professorIDs []string) ([]models.TeacherEvaluation, error)
}

// RecommendationService builds ranked section combinations for a student.
type RecommendationService struct {
	catalog     catalogReader
	performance performanceReader
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	settings    TimetableSettings
}

// NewRecommendationService wires the student recommendation pipeline.
func NewRecommendationService(
	catalog catalogReader,
	performance performanceReader,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	settings TimetableSettings,
) *RecommendationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.MaxNodes <= 0 {
		settings.MaxNodes = timetable.DefaultMaxNodes
	}
	if settings.Weights == (timetable.Weights{}) {
		settings.Weights = timetable.DefaultWeights()
	}
	return &RecommendationService{
		catalog:     catalog,
		performance: performance,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		settings:    settings,
	}
}

type recommendationOptions struct {
	maxNodes int
	topN     int
	weights  timetable.Weights
	parallel bool
}

func (o recommendationOptions) cacheKey(studentID string) string {
	return fmt.Sprintf("%s:%s:n%d:t%d:w%g-%g:p%t", recommendationCachePrefix, studentID, o.maxNodes, o.topN, o.weights.PassRate, o.weights.Evaluation, o.parallel)
}

// Recommend returns the three ranked recommendation sets. The boolean reports a cache hit.
func (s *RecommendationService) Recommend(ctx context.Context, studentID string, req dto.RecommendationRequest) (*dto.RecommendationResponse, bool, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recommendation payload")
	}
	opts, err := s.resolveOptions(req)
	if err != nil {
		return nil, false, err
	}

	key := opts.cacheKey(studentID)
	var cached dto.RecommendationResponse
	if hit, cacheErr := s.cache.Get(ctx, key, &cached); cacheErr == nil && hit {
		return &cached, true, nil
	}

	resp, err := s.compute(ctx, studentID, opts)
	if err != nil {
		return nil, false, err
	}
	// cache failures are already logged by CacheService
	_ = s.cache.Set(ctx, key, resp, 0)
	return resp, false, nil
}

// Refresh drops cached results for a student and recomputes them with default options.
func (s *RecommendationService) Refresh(ctx context.Context, studentID string) error {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("%s:%s:*", recommendationCachePrefix, keyPatternEscaper.Replace(studentID))); err != nil {
		return err
	}
	_, _, err := s.Recommend(ctx, studentID, dto.RecommendationRequest{})
	return err
}

func (s *RecommendationService) resolveOptions(req dto.RecommendationRequest) (recommendationOptions, error) {
	opts := recommendationOptions{
		maxNodes: s.settings.MaxNodes,
		topN:     s.settings.TopN,
		weights:  s.settings.Weights,
		parallel: s.settings.Parallel,
	}
	if req.MaxNodes > 0 {
		opts.maxNodes = req.MaxNodes
	}
	if req.TopN > 0 {
		opts.topN = req.TopN
	}
	if req.Parallel != nil {
		opts.parallel = *req.Parallel
	}
	if req.Weights != nil {
		opts.weights = timetable.Weights{PassRate: req.Weights.PassRate, Evaluation: req.Weights.Evaluation}
	}
	if err := opts.weights.Validate(); err != nil {
		return recommendationOptions{}, mapTimetableError(err)
	}
	return opts, nil
}

func (s *RecommendationService) compute(ctx context.Context, studentID string, opts recommendationOptions) (*dto.RecommendationResponse, error) {
	resp := &dto.RecommendationResponse{StudentID: studentID, Warnings: []dto.Warning{}}

	subjects, sections, blocks, err := s.loadCatalog(ctx, studentID)
	if err != nil {
		return nil, err
	}
	resp.TotalEligibleSubjects = len(subjects)
	if len(subjects) == 0 {
		resp.Warnings = append(resp.Warnings, dto.Warning{Code: dto.WarningNoEligibleSubjects, Message: "student has no eligible subjects"})
	}

	options, err := buildSubjectOptions(s.settings.Schedule, subjects, sections, blocks)
	if err != nil {
		return nil, mapTimetableError(err)
	}

	professorIDs := lo.Uniq(lo.Map(sections, func(sec models.Section, _ int) string { return sec.ProfessorID }))
	index, err := s.loadPerformance(ctx, professorIDs)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	generator := timetable.NewCandidateGenerator(timetable.GeneratorOptions{MaxNodes: opts.maxNodes, Parallel: opts.parallel}, index.Rating)
	result := generator.Generate(options)
	s.metrics.ObserveSearch(result.Explored, result.Partial, time.Since(started))

	resp.TotalCombinationsExplored = result.Explored
	resp.Partial = result.Partial
	if result.Partial {
		s.logger.Warn("candidate search truncated",
			zap.String("student_id", studentID),
			zap.Int("max_nodes", opts.maxNodes),
			zap.Int("combinations", len(result.Combinations)),
		)
		resp.Warnings = append(resp.Warnings, dto.Warning{
			Code:    dto.WarningSearchBoundExceeded,
			Message: timetable.ErrSearchBoundExceeded.Error(),
			Meta:    map[string]any{"maxNodes": opts.maxNodes, "explored": result.Explored},
		})
	}

	scorer, err := timetable.NewScorer(opts.weights, index)
	if err != nil {
		return nil, mapTimetableError(err)
	}
	scored, err := scorer.ScoreAll(result.Combinations)
	if err != nil {
		return nil, mapTimetableError(err)
	}
	for _, set := range timetable.NewRanker(opts.topN).Rank(scored) {
		switch set.Criterion {
		case timetable.CriterionAcademicExcellence:
			resp.RecommendationSets.AcademicExcellence = set
		case timetable.CriterionBalanced:
			resp.RecommendationSets.Balanced = set
		case timetable.CriterionTeacherEvaluation:
			resp.RecommendationSets.TeacherEvaluation = set
		}
	}

	s.logger.Debug("recommendations computed",
		zap.String("student_id", studentID),
		zap.Int("subjects", len(subjects)),
		zap.Int("explored", result.Explored),
		zap.Int("combinations", len(result.Combinations)),
	)
	return resp, nil
}

func (s *RecommendationService) loadCatalog(ctx context.Context, studentID string) ([]models.Subject, []models.Section, []models.SectionBlock, error) {
	start := time.Now()
	subjects, err := s.catalog.ListEligibleSubjects(ctx, studentID)
	s.metrics.ObserveDBQuery("eligible_subjects", time.Since(start))
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load eligible subjects")
	}
	if len(subjects) == 0 {
		return subjects, nil, nil, nil
	}

	codes := lo.Map(subjects, func(sub models.Subject, _ int) string { return sub.Code })
	start = time.Now()
	sections, err := s.catalog.ListSectionsBySubjects(ctx, codes)
	s.metrics.ObserveDBQuery("sections", time.Since(start))
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}

	ids := lo.Map(sections, func(sec models.Section, _ int) string { return sec.ID })
	start = time.Now()
	blocks, err := s.catalog.ListBlocksBySections(ctx, ids)
	s.metrics.ObserveDBQuery("section_blocks", time.Since(start))
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section blocks")
	}
	return subjects, sections, blocks, nil
}

func (s *RecommendationService) loadPerformance(ctx context.Context, professorIDs []string) (*timetable.PerformanceIndex, error) {
	if len(professorIDs) == 0 || s.performance == nil {
		return timetable.NewPerformanceIndex(), nil
	}
	start := time.Now()
	rates, err := s.performance.ListPassRates(ctx, professorIDs)
	s.metrics.ObserveDBQuery("pass_rates", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass rates")
	}
	start = time.Now()
	evaluations, err := s.performance.ListEvaluations(ctx, professorIDs)
	s.metrics.ObserveDBQuery("teacher_evaluations", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher evaluations")
	}
	return buildPerformanceIndex(rates, evaluations), nil
}
