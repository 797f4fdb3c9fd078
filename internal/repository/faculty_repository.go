package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// FacultyRepository reads professor availability, loads, and performance history.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs the repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// ListLoads returns the weekly loads of a term, optionally restricted to some professors.
func (r *FacultyRepository) ListLoads(ctx context.Context, termID string, professorIDs []string) ([]models.ProfessorLoad, error) {
	where, args := termFilter(termID, professorIDs)
	query := fmt.Sprintf(`SELECT professor_id, term_id, subject_code, weekly_hours
FROM professor_loads WHERE %s ORDER BY professor_id ASC, subject_code ASC`, where)
	var loads []models.ProfessorLoad
	if err := r.db.SelectContext(ctx, &loads, query, args...); err != nil {
		return nil, fmt.Errorf("list professor loads: %w", err)
	}
	return loads, nil
}

// ListAvailability returns declared availability for a term, optionally restricted to some professors.
func (r *FacultyRepository) ListAvailability(ctx context.Context, termID string, professorIDs []string) ([]models.ProfessorAvailability, error) {
	where, args := termFilter(termID, professorIDs)
	query := fmt.Sprintf(`SELECT professor_id, term_id, day_of_week, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time
FROM professor_availability WHERE %s ORDER BY professor_id ASC, day_of_week ASC, start_time ASC`, where)
	var rows []models.ProfessorAvailability
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list professor availability: %w", err)
	}
	return rows, nil
}

// ListPassRates returns historical pass rates for the given professors.
func (r *FacultyRepository) ListPassRates(ctx context.Context, professorIDs []string) ([]models.SubjectPassRate, error) {
	if len(professorIDs) == 0 {
		return []models.SubjectPassRate{}, nil
	}
	const query = `SELECT professor_id, subject_code, pass_rate_percent FROM subject_pass_rates WHERE professor_id = ANY($1)`
	var rates []models.SubjectPassRate
	if err := r.db.SelectContext(ctx, &rates, query, pq.Array(professorIDs)); err != nil {
		return nil, fmt.Errorf("list pass rates: %w", err)
	}
	return rates, nil
}

// ListEvaluations returns aggregate ratings for the given professors.
func (r *FacultyRepository) ListEvaluations(ctx context.Context, professorIDs []string) ([]models.TeacherEvaluation, error) {
	if len(professorIDs) == 0 {
		return []models.TeacherEvaluation{}, nil
	}
	const query = `SELECT professor_id, average_rating FROM teacher_evaluations WHERE professor_id = ANY($1)`
	var evaluations []models.TeacherEvaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, pq.Array(professorIDs)); err != nil {
		return nil, fmt.Errorf("list teacher evaluations: %w", err)
	}
	return evaluations, nil
}

// ListActiveRooms returns the codes of bookable rooms in code order.
func (r *FacultyRepository) ListActiveRooms(ctx context.Context) ([]string, error) {
	const query = `SELECT code FROM rooms WHERE active = TRUE ORDER BY code ASC`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return codes, nil
}

func termFilter(termID string, professorIDs []string) (string, []interface{}) {
	where := []string{"term_id = $1"}
	args := []interface{}{termID}
	if len(professorIDs) > 0 {
		where = append(where, fmt.Sprintf("professor_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(professorIDs))
	}
	return strings.Join(where, " AND "), args
}
