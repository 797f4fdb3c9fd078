package models

// ProfessorAvailability is a declared free interval for a term.
type ProfessorAvailability struct {
	ProfessorID string `db:"professor_id" json:"professor_id"`
	TermID      string `db:"term_id" json:"term_id"`
	DayOfWeek   int    `db:"day_of_week" json:"day_of_week"`
	StartTime   string `db:"start_time" json:"start_time"`
	EndTime     string `db:"end_time" json:"end_time"`
}

// ProfessorLoad is the weekly hours a professor must teach for a subject in a term.
type ProfessorLoad struct {
	ProfessorID string  `db:"professor_id" json:"professor_id"`
	TermID      string  `db:"term_id" json:"term_id"`
	SubjectCode string  `db:"subject_code" json:"subject_code"`
	WeeklyHours float64 `db:"weekly_hours" json:"weekly_hours"`
}

// SubjectPassRate is the historical pass percentage of a professor in a subject.
type SubjectPassRate struct {
	ProfessorID     string  `db:"professor_id" json:"professor_id"`
	SubjectCode     string  `db:"subject_code" json:"subject_code"`
	PassRatePercent float64 `db:"pass_rate_percent" json:"pass_rate_percent"`
}

// TeacherEvaluation is the aggregate student rating of a professor (1-7).
type TeacherEvaluation struct {
	ProfessorID   string  `db:"professor_id" json:"professor_id"`
	AverageRating float64 `db:"average_rating" json:"average_rating"`
}

// Room is a bookable classroom.
type Room struct {
	Code   string `db:"code" json:"code"`
	Active bool   `db:"active" json:"active"`
}
