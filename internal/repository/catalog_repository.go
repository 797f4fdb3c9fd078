package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// CatalogRepository reads subjects, sections and student eligibility.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListEligibleSubjects returns the subjects a student may enrol in, ordered by code.
func (r *CatalogRepository) ListEligibleSubjects(ctx context.Context, studentID string) ([]models.Subject, error) {
	const query = `SELECT s.code, s.name, s.credits
FROM student_eligibility e JOIN subjects s ON s.code = e.subject_code
WHERE e.student_id = $1 ORDER BY s.code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, studentID); err != nil {
		return nil, fmt.Errorf("list eligible subjects: %w", err)
	}
	return subjects, nil
}

// ListSectionsBySubjects returns sections of the given subjects in catalog order.
func (r *CatalogRepository) ListSectionsBySubjects(ctx context.Context, subjectCodes []string) ([]models.Section, error) {
	if len(subjectCodes) == 0 {
		return []models.Section{}, nil
	}
	const query = `SELECT id, subject_code, section_number, professor_id, room, capacity
FROM sections WHERE subject_code = ANY($1) ORDER BY subject_code ASC, section_number ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, pq.Array(subjectCodes)); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// ListBlocksBySections returns the weekly meetings of the given sections.
func (r *CatalogRepository) ListBlocksBySections(ctx context.Context, sectionIDs []string) ([]models.SectionBlock, error) {
	if len(sectionIDs) == 0 {
		return []models.SectionBlock{}, nil
	}
	const query = `SELECT section_id, day_of_week, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time
FROM section_blocks WHERE section_id = ANY($1) ORDER BY section_id ASC, day_of_week ASC, start_time ASC`
	var blocks []models.SectionBlock
	if err := r.db.SelectContext(ctx, &blocks, query, pq.Array(sectionIDs)); err != nil {
		return nil, fmt.Errorf("list section blocks: %w", err)
	}
	return blocks, nil
}
