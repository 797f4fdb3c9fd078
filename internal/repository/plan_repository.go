package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// PlanRepository persists saved planner proposals and their booked blocks.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs the repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a plan header.
func (r *PlanRepository) Create(ctx context.Context, exec sqlx.ExtContext, plan *models.TimetablePlan) error {
	if plan == nil {
		return fmt.Errorf("plan payload is nil")
	}
	if plan.TermID == "" {
		return fmt.Errorf("term_id is required")
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.Status == "" {
		plan.Status = models.TimetablePlanStatusDraft
	}
	if len(plan.Meta) == 0 {
		plan.Meta = types.JSONText(`{}`)
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO timetable_plans (id, term_id, status, meta, created_at)
VALUES (:id, :term_id, :status, :meta, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, plan); err != nil {
		return fmt.Errorf("insert timetable plan: %w", err)
	}
	return nil
}

// InsertAssignments stores the booked blocks of a plan.
func (r *PlanRepository) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, assignments []models.TimetablePlanAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO timetable_plan_assignments (id, plan_id, professor_id, subject_code, day_of_week, start_time, end_time, room, under_allocated, shortfall_hours, created_at)
VALUES (:id, :plan_id, :professor_id, :subject_code, :day_of_week, :start_time, :end_time, :room, :under_allocated, :shortfall_hours, :created_at)`

	for i := range assignments {
		item := &assignments[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, item); err != nil {
			return fmt.Errorf("insert timetable plan assignment: %w", err)
		}
	}
	return nil
}

// ListByTerm returns saved plans of a term, newest first.
func (r *PlanRepository) ListByTerm(ctx context.Context, termID string) ([]models.TimetablePlan, error) {
	const query = `SELECT id, term_id, status, meta, created_at FROM timetable_plans WHERE term_id = $1 ORDER BY created_at DESC`
	var plans []models.TimetablePlan
	if err := r.db.SelectContext(ctx, &plans, query, termID); err != nil {
		return nil, fmt.Errorf("list timetable plans: %w", err)
	}
	return plans, nil
}

// FindByID loads a plan header.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*models.TimetablePlan, error) {
	const query = `SELECT id, term_id, status, meta, created_at FROM timetable_plans WHERE id = $1`
	var plan models.TimetablePlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListAssignments returns the booked blocks of a plan in professor, day, time order.
func (r *PlanRepository) ListAssignments(ctx context.Context, planID string) ([]models.TimetablePlanAssignment, error) {
	const query = `SELECT id, plan_id, professor_id, subject_code, day_of_week, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, room, under_allocated, shortfall_hours, created_at
FROM timetable_plan_assignments WHERE plan_id = $1 ORDER BY professor_id ASC, day_of_week ASC, start_time ASC`
	var items []models.TimetablePlanAssignment
	if err := r.db.SelectContext(ctx, &items, query, planID); err != nil {
		return nil, fmt.Errorf("list timetable plan assignments: %w", err)
	}
	return items, nil
}
