package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetablePlanStatus represents lifecycle phases for saved plans.
type TimetablePlanStatus string

const (
	TimetablePlanStatusDraft     TimetablePlanStatus = "DRAFT"
	TimetablePlanStatusPublished TimetablePlanStatus = "PUBLISHED"
)

// TimetablePlan is a saved planner proposal for a term.
type TimetablePlan struct {
	ID        string              `db:"id" json:"id"`
	TermID    string              `db:"term_id" json:"term_id"`
	Status    TimetablePlanStatus `db:"status" json:"status"`
	Meta      types.JSONText      `db:"meta" json:"meta"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
}

// TimetablePlanAssignment is one booked block of a saved plan.
type TimetablePlanAssignment struct {
	ID             string    `db:"id" json:"id"`
	PlanID         string    `db:"plan_id" json:"plan_id"`
	ProfessorID    string    `db:"professor_id" json:"professor_id"`
	SubjectCode    string    `db:"subject_code" json:"subject_code"`
	DayOfWeek      int       `db:"day_of_week" json:"day_of_week"`
	StartTime      string    `db:"start_time" json:"start_time"`
	EndTime        string    `db:"end_time" json:"end_time"`
	Room           *string   `db:"room" json:"room,omitempty"`
	UnderAllocated bool      `db:"under_allocated" json:"under_allocated"`
	ShortfallHours float64   `db:"shortfall_hours" json:"shortfall_hours"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
