package models

import "database/sql"

// Subject is a catalog row.
type Subject struct {
	Code    string `db:"code" json:"code"`
	Name    string `db:"name" json:"name"`
	Credits int    `db:"credits" json:"credits"`
}

// Section is one offering of a subject taught by a professor.
type Section struct {
	ID            string         `db:"id" json:"id"`
	SubjectCode   string         `db:"subject_code" json:"subject_code"`
	SectionNumber int            `db:"section_number" json:"section_number"`
	ProfessorID   string         `db:"professor_id" json:"professor_id"`
	Room          sql.NullString `db:"room" json:"-"`
	Capacity      int            `db:"capacity" json:"capacity"`
}

// SectionBlock is a weekly meeting of a section. Times are stored as TIME columns.
type SectionBlock struct {
	SectionID string `db:"section_id" json:"section_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// StudentEligibility lists a subject the student may currently enrol in.
type StudentEligibility struct {
	StudentID   string `db:"student_id" json:"student_id"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
}
