package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

type facultyReader interface {
	ListLoads(ctx context.Context, termID string, professorIDs []string) ([]models.ProfessorLoad, error)
	ListAvailability(ctx context.Context, termID string, professorIDs []string) ([]models.ProfessorAvailability, error)
	ListActiveRooms(ctx context.Context) ([]string, error)
}

type planRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, plan *models.TimetablePlan) error
	InsertAssignments(ctx context.Context, exec sqlx.ExtContext, assignments []models.TimetablePlanAssignment) error
	ListByTerm(ctx context.Context, termID string) ([]models.TimetablePlan, error)
	FindByID(ctx context.Context, id string) (*models.TimetablePlan, error)
	ListAssignments(ctx context.Context, planID string) ([]models.TimetablePlanAssignment, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// PlannerConfig governs proposal retention.
type PlannerConfig struct {
	ProposalTTL time.Duration
}

// PlannerService assigns weekly blocks to every professor of a term and persists chosen proposals.
type PlannerService struct {
	faculty   facultyReader
	plans     planRepository
	tx        txProvider
	exporter  *export.CSVExporter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	settings  TimetableSettings
	store     *proposalStore
}

// NewPlannerService wires planner dependencies.
func NewPlannerService(
	faculty facultyReader,
	plans planRepository,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	settings TimetableSettings,
	cfg PlannerConfig,
) *PlannerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	return &PlannerService{
		faculty:   faculty,
		plans:     plans,
		tx:        tx,
		exporter:  export.NewCSVExporter(),
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		settings:  settings,
		store:     newProposalStore(cfg.ProposalTTL),
	}
}

// Generate runs the global block assigner over the term's loads and stores the proposal.
func (s *PlannerService) Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid planner payload")
	}
	professorIDs := lo.Uniq(req.ProfessorIDs)

	start := time.Now()
	loadRows, err := s.faculty.ListLoads(ctx, req.TermID, professorIDs)
	s.metrics.ObserveDBQuery("professor_loads", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor loads")
	}
	if len(loadRows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no professor loads defined for this term")
	}

	start = time.Now()
	availability, err := s.faculty.ListAvailability(ctx, req.TermID, professorIDs)
	s.metrics.ObserveDBQuery("professor_availability", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor availability")
	}

	rooms, err := s.resolveRooms(ctx, req.Rooms)
	if err != nil {
		return nil, err
	}

	loads, err := buildProfessorLoads(loadRows, availability)
	if err != nil {
		return nil, mapTimetableError(err)
	}

	started := time.Now()
	assignments, err := timetable.NewGlobalAssigner(s.settings.Schedule).Assign(loads, rooms)
	if err != nil {
		s.logger.Error("block assignment failed", zap.String("term_id", req.TermID), zap.Error(err))
		return nil, mapTimetableError(err)
	}

	warnings := underAllocationWarnings(assignments)
	s.metrics.ObserveAssignment(len(warnings), time.Since(started))
	for _, warning := range warnings {
		s.logger.Warn("subject under-allocated",
			zap.String("term_id", req.TermID),
			zap.Any("professor_id", warning.Meta["professorId"]),
			zap.Any("subject_code", warning.Meta["subjectCode"]),
			zap.Any("shortfall_hours", warning.Meta["shortfallHours"]),
		)
	}

	proposal := planProposal{
		ProposalID:    uuid.NewString(),
		TermID:        req.TermID,
		Professors:    assignments,
		Rooms:         rooms,
		HoursPerBlock: s.settings.Schedule.HoursPerBlock(),
		RequestedAt:   time.Now().UTC(),
	}
	s.store.Save(proposal)
	s.metrics.SetProposalCount(s.store.Len())

	return &dto.GeneratePlanResponse{
		ProposalID:     proposal.ProposalID,
		TermID:         req.TermID,
		Professors:     assignments,
		UnderAllocated: len(warnings),
		Warnings:       warnings,
	}, nil
}

// Save persists a stored proposal and its booked blocks in one transaction.
func (s *PlannerService) Save(ctx context.Context, req dto.SavePlanRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save plan payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	metaBytes, marshalErr := json.Marshal(proposal.meta())
	if marshalErr != nil {
		return "", appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode plan metadata")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := &models.TimetablePlan{
		TermID: proposal.TermID,
		Status: models.TimetablePlanStatusDraft,
		Meta:   types.JSONText(metaBytes),
	}
	if err = s.plans.Create(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable plan")
		return "", err
	}
	if err = s.plans.InsertAssignments(ctx, tx, proposal.rows(record.ID)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist plan assignments")
		return "", err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit plan transaction")
		return "", err
	}

	s.store.Delete(req.ProposalID)
	s.metrics.SetProposalCount(s.store.Len())
	s.logger.Info("timetable plan saved", zap.String("plan_id", record.ID), zap.String("term_id", record.TermID))
	return record.ID, nil
}

// List returns saved plans of a term.
func (s *PlannerService) List(ctx context.Context, query dto.PlanQuery) ([]models.TimetablePlan, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "termId is required")
	}
	plans, err := s.plans.ListByTerm(ctx, query.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable plans")
	}
	if plans == nil {
		plans = []models.TimetablePlan{}
	}
	return plans, nil
}

// GetAssignments returns the booked blocks of a saved plan.
func (s *PlannerService) GetAssignments(ctx context.Context, planID string) ([]models.TimetablePlanAssignment, error) {
	if strings.TrimSpace(planID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "plan id is required")
	}
	if _, err := s.plans.FindByID(ctx, planID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable plan")
	}
	items, err := s.plans.ListAssignments(ctx, planID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plan assignments")
	}
	if items == nil {
		items = []models.TimetablePlanAssignment{}
	}
	return items, nil
}

// ExportProposal renders a stored proposal as CSV, one row per booked block. Subjects with no
// block at all still get a row so shortfalls stay visible.
func (s *PlannerService) ExportProposal(ctx context.Context, proposalID string) (string, []byte, error) {
	proposal, ok := s.store.Get(proposalID)
	if !ok {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	dataset := export.NewDataset("professor_id", "subject_code", "day", "start", "end", "room", "weekly_hours", "assigned_hours", "under_allocated", "shortfall_hours")
	for _, professor := range proposal.Professors {
		for _, subject := range professor.Assignments {
			tail := []string{
				subject.Room,
				formatHours(subject.WeeklyHours),
				formatHours(subject.AssignedHours),
				strconv.FormatBool(subject.UnderAllocated),
				formatHours(subject.ShortfallHours),
			}
			if len(subject.Blocks) == 0 {
				dataset.Append(append([]string{professor.ProfessorID, subject.SubjectCode, "", "", ""}, tail...)...)
				continue
			}
			for _, block := range subject.Blocks {
				dataset.Append(append([]string{professor.ProfessorID, subject.SubjectCode, block.Day.String(), block.Start.String(), block.End.String()}, tail...)...)
			}
		}
	}
	payload, err := s.exporter.Render(*dataset)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render proposal export")
	}
	return fmt.Sprintf("timetable-%s-%s.csv", proposal.TermID, proposal.ProposalID[:8]), payload, nil
}

func (s *PlannerService) resolveRooms(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return lo.Uniq(requested), nil
	}
	start := time.Now()
	rooms, err := s.faculty.ListActiveRooms(ctx)
	s.metrics.ObserveDBQuery("rooms", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	return rooms, nil
}

func underAllocationWarnings(assignments []timetable.ProfessorAssignment) []dto.Warning {
	warnings := []dto.Warning{}
	for _, professor := range assignments {
		for _, subject := range professor.UnderAllocated() {
			warnings = append(warnings, dto.Warning{
				Code:    dto.WarningUnderAllocatedSubject,
				Message: subject.Err().Error(),
				Meta: map[string]any{
					"professorId":    professor.ProfessorID,
					"subjectCode":    subject.SubjectCode,
					"shortfallHours": subject.ShortfallHours,
				},
			})
		}
	}
	return warnings
}

func formatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// --- Proposal cache ---

type planProposal struct {
	ProposalID    string
	TermID        string
	Professors    []timetable.ProfessorAssignment
	Rooms         []string
	HoursPerBlock int
	RequestedAt   time.Time
}

func (p planProposal) meta() map[string]any {
	short := []map[string]any{}
	for _, professor := range p.Professors {
		for _, subject := range professor.UnderAllocated() {
			short = append(short, map[string]any{
				"professorId":    professor.ProfessorID,
				"subjectCode":    subject.SubjectCode,
				"shortfallHours": subject.ShortfallHours,
			})
		}
	}
	return map[string]any{
		"proposalId":     p.ProposalID,
		"generated":      p.RequestedAt,
		"professors":     len(p.Professors),
		"rooms":          p.Rooms,
		"hoursPerBlock":  p.HoursPerBlock,
		"underAllocated": short,
		"algorithm":      "greedy_block_v1",
	}
}

func (p planProposal) rows(planID string) []models.TimetablePlanAssignment {
	var rows []models.TimetablePlanAssignment
	for _, professor := range p.Professors {
		for _, subject := range professor.Assignments {
			var room *string
			if subject.Room != "" {
				r := subject.Room
				room = &r
			}
			for _, block := range subject.Blocks {
				rows = append(rows, models.TimetablePlanAssignment{
					PlanID:         planID,
					ProfessorID:    professor.ProfessorID,
					SubjectCode:    subject.SubjectCode,
					DayOfWeek:      int(block.Day),
					StartTime:      block.Start.String(),
					EndTime:        block.End.String(),
					Room:           room,
					UnderAllocated: subject.UnderAllocated,
					ShortfallHours: subject.ShortfallHours,
				})
			}
		}
	}
	return rows
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]planProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{ttl: ttl, items: make(map[string]planProposal)}
}

func (s *proposalStore) Save(proposal planProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (planProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return planProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return planProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *proposalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *proposalStore) evictExpiredLocked() {
	for id, proposal := range s.items {
		if time.Since(proposal.RequestedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}
