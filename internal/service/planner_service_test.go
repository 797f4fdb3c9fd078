package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestPlannerServiceGenerateAssignsBlocks(t *testing.T) {
	svc, _ := newPlannerFixture(t, plannerFixtureConfig{})

	resp, err := svc.Generate(context.Background(), dto.GeneratePlanRequest{TermID: "2025-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ProposalID)
	require.Len(t, resp.Professors, 2)

	first := resp.Professors[0]
	assert.Equal(t, "prof-1", first.ProfessorID)
	require.Len(t, first.Assignments, 2)
	assert.Equal(t, "MAT", first.Assignments[0].SubjectCode, "larger weekly load goes first")
	assert.Equal(t, "A-101", first.Assignments[0].Room)
	assert.Len(t, first.Assignments[0].Blocks, 2)
	assert.False(t, first.Assignments[0].UnderAllocated)
	assert.Equal(t, "FIS", first.Assignments[1].SubjectCode)
	assert.Equal(t, timetable.Clock(11, 10), first.Assignments[1].Blocks[0].Start)

	second := resp.Professors[1]
	require.Len(t, second.Assignments, 1)
	assert.Equal(t, "B-202", second.Assignments[0].Room, "A-101 is taken on Monday morning")
	assert.True(t, second.Assignments[0].UnderAllocated)
	assert.Equal(t, 2.0, second.Assignments[0].ShortfallHours)

	assert.Equal(t, 1, resp.UnderAllocated)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, dto.WarningUnderAllocatedSubject, resp.Warnings[0].Code)
	assert.Equal(t, "SOC", resp.Warnings[0].Meta["subjectCode"])
}

func TestPlannerServiceGenerateUsesRequestedRooms(t *testing.T) {
	svc, _ := newPlannerFixture(t, plannerFixtureConfig{})

	resp, err := svc.Generate(context.Background(), dto.GeneratePlanRequest{TermID: "2025-1", Rooms: []string{"LAB-1"}})
	require.NoError(t, err)
	assert.Equal(t, "LAB-1", resp.Professors[0].Assignments[0].Room)
	// only one room, so the second professor cannot be placed at all
	assert.Empty(t, resp.Professors[1].Assignments[0].Blocks)
	assert.Equal(t, 4.0, resp.Professors[1].Assignments[0].ShortfallHours)
}

func TestPlannerServiceGenerateRejectsFractionalHours(t *testing.T) {
	svc, _ := newPlannerFixture(t, plannerFixtureConfig{loads: []models.ProfessorLoad{
		{ProfessorID: "prof-1", TermID: "2025-1", SubjectCode: "MAT", WeeklyHours: 3},
	}})

	_, err := svc.Generate(context.Background(), dto.GeneratePlanRequest{TermID: "2025-1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrFractionalHours.Code, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
}

func TestPlannerServiceGenerateRequiresLoads(t *testing.T) {
	svc, _ := newPlannerFixture(t, plannerFixtureConfig{loads: []models.ProfessorLoad{}})

	_, err := svc.Generate(context.Background(), dto.GeneratePlanRequest{TermID: "2025-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	_, err = svc.Generate(context.Background(), dto.GeneratePlanRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPlannerServiceSavePersistsProposal(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	svc, plans := newPlannerFixture(t, plannerFixtureConfig{tx: tx})

	resp, err := svc.Generate(context.Background(), dto.GeneratePlanRequest{TermID: "2025-1"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	planID, err := svc.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	assert.Equal(t, "plan-1", planID)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, plans.created, 1)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(plans.created[0].Meta, &meta))
	assert.Equal(t, resp.ProposalID, meta["proposalId"])
	assert.Len(t, meta["underAllocated"], 1)

	// three blocks for prof-1 and one for prof-2
	require.Len(t, plans.assignments, 4)
	assert.Equal(t, "plan-1", plans.assignments[0].PlanID)
	assert.Equal(t, 1, plans.assignments[0].DayOfWeek)
	assert.Equal(t, "08:10", plans.assignments[0].StartTime)
	require.NotNil(t, plans.assignments[0].Room)
	assert.Equal(t, "A-101", *plans.assignments[0].Room)

	_, err = svc.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code, "saved proposals leave the store")
}

func TestPlannerServiceSaveRollsBackOnFailure(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	svc, plans := newPlannerFixture(t, plannerFixtureConfig{tx: tx})
	plans.insertErr = errors.New("unique violation")

	resp, err := svc.Generate(context.Background(), dto.GeneratePlanRequest{TermID: "2025-1"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = svc.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlannerServiceProposalExpires(t *testing.T) {
	svc, _ := newPlannerFixture(t, plannerFixtureConfig{ttl: time.Nanosecond})

	resp, err := svc.Generate(context.Background(), dto.GeneratePlanRequest{TermID: "2025-1"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	_, err = svc.Save(context.Background(), dto.SavePlanRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPlannerServiceExportProposal(t *testing.T) {
	svc, _ := newPlannerFixture(t, plannerFixtureConfig{})

	resp, err := svc.Generate(context.Background(), dto.GeneratePlanRequest{TermID: "2025-1"})
	require.NoError(t, err)

	filename, payload, err := svc.ExportProposal(context.Background(), resp.ProposalID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "timetable-2025-1-"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "professor_id,subject_code,day,start,end,room,weekly_hours,assigned_hours,under_allocated,shortfall_hours", lines[0])
	assert.Equal(t, "prof-1,MAT,MONDAY,08:10,09:30,A-101,4,4,false,0", lines[1])
	assert.Equal(t, "prof-2,SOC,MONDAY,08:10,09:30,B-202,4,2,true,2", lines[4])

	_, _, err = svc.ExportProposal(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPlannerServiceListAndAssignments(t *testing.T) {
	svc, plans := newPlannerFixture(t, plannerFixtureConfig{})
	plans.created = []models.TimetablePlan{{ID: "plan-7", TermID: "2025-1", Status: models.TimetablePlanStatusDraft}}
	plans.assignments = []models.TimetablePlanAssignment{{PlanID: "plan-7", ProfessorID: "prof-1", SubjectCode: "MAT"}}

	list, err := svc.List(context.Background(), dto.PlanQuery{TermID: "2025-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.List(context.Background(), dto.PlanQuery{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	items, err := svc.GetAssignments(context.Background(), "plan-7")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = svc.GetAssignments(context.Background(), "plan-404")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMapTimetableErrorCarriesConflictDetails(t *testing.T) {
	conflict := &timetable.ConflictError{Conflicts: []timetable.OwnedConflict{{
		Owner:  timetable.Owner{Kind: timetable.OwnerRoom, ID: "A-101"},
		First:  timetable.OwnedBlock{Label: "prof-1/MAT"},
		Second: timetable.OwnedBlock{Label: "prof-2/SOC"},
	}}}

	err := mapTimetableError(conflict)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConsistencyViolation.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["conflicts"], 1)
	assert.True(t, errors.Is(err, timetable.ErrInternalConflict))
}

// --- Fixtures ---

type plannerFixtureConfig struct {
	loads []models.ProfessorLoad
	tx    txProvider
	ttl   time.Duration
}

func newPlannerFixture(t *testing.T, cfg plannerFixtureConfig) (*PlannerService, *planRepoStub) {
	t.Helper()
	loads := cfg.loads
	if loads == nil {
		loads = []models.ProfessorLoad{
			{ProfessorID: "prof-2", TermID: "2025-1", SubjectCode: "SOC", WeeklyHours: 4},
			{ProfessorID: "prof-1", TermID: "2025-1", SubjectCode: "FIS", WeeklyHours: 2},
			{ProfessorID: "prof-1", TermID: "2025-1", SubjectCode: "MAT", WeeklyHours: 4},
		}
	}
	faculty := facultyStub{
		loads: loads,
		availability: []models.ProfessorAvailability{
			{ProfessorID: "prof-1", TermID: "2025-1", DayOfWeek: 1, StartTime: "08:10", EndTime: "12:30"},
			{ProfessorID: "prof-2", TermID: "2025-1", DayOfWeek: 1, StartTime: "08:10", EndTime: "09:30"},
		},
		rooms: []string{"A-101", "B-202"},
	}
	plans := &planRepoStub{}
	svc := NewPlannerService(faculty, plans, cfg.tx, NewMetricsService(), nil, zap.NewNop(), DefaultTimetableSettings(), PlannerConfig{ProposalTTL: cfg.ttl})
	return svc, plans
}

type facultyStub struct {
	loads        []models.ProfessorLoad
	availability []models.ProfessorAvailability
	rooms        []string
}

func (s facultyStub) ListLoads(ctx context.Context, termID string, professorIDs []string) ([]models.ProfessorLoad, error) {
	return s.loads, nil
}

func (s facultyStub) ListAvailability(ctx context.Context, termID string, professorIDs []string) ([]models.ProfessorAvailability, error) {
	return s.availability, nil
}

func (s facultyStub) ListActiveRooms(ctx context.Context) ([]string, error) {
	return s.rooms, nil
}

type planRepoStub struct {
	created     []models.TimetablePlan
	assignments []models.TimetablePlanAssignment
	insertErr   error
}

func (s *planRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, plan *models.TimetablePlan) error {
	plan.ID = "plan-" + string(rune('1'+len(s.created)))
	s.created = append(s.created, *plan)
	return nil
}

func (s *planRepoStub) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, assignments []models.TimetablePlanAssignment) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.assignments = append(s.assignments, assignments...)
	return nil
}

func (s *planRepoStub) ListByTerm(ctx context.Context, termID string) ([]models.TimetablePlan, error) {
	return s.created, nil
}

func (s *planRepoStub) FindByID(ctx context.Context, id string) (*models.TimetablePlan, error) {
	for _, plan := range s.created {
		if plan.ID == id {
			return &plan, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *planRepoStub) ListAssignments(ctx context.Context, planID string) ([]models.TimetablePlanAssignment, error) {
	return s.assignments, nil
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock"), mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
