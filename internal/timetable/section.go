package timetable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Subject is a catalog entry.
type Subject struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
}

// Section is one schedulable offering of a subject.
type Section struct {
	SubjectCode   string      `json:"subjectCode"`
	SectionNumber int         `json:"sectionNumber"`
	ProfessorID   string      `json:"professorId"`
	Room          string      `json:"room"`
	Blocks        []TimeBlock `json:"blocks"`
	Capacity      int         `json:"capacity"`
	Credits       int         `json:"credits"`
}

// NewSection validates that the section's own blocks never overlap.
func NewSection(subject Subject, number int, professorID, room string, capacity int, blocks []TimeBlock) (Section, error) {
	if strings.TrimSpace(subject.Code) == "" {
		return Section{}, fmt.Errorf("section %d: subject code required", number)
	}
	if report := DetectConflicts(blocks); report.HasConflict {
		pair := report.Pairs[0]
		return Section{}, fmt.Errorf("%w: section %s-%d blocks %s and %s overlap", ErrInvalidTimeBlock,
			subject.Code, number, blocks[pair[0]], blocks[pair[1]])
	}
	sorted := make([]TimeBlock, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	return Section{
		SubjectCode:   subject.Code,
		SectionNumber: number,
		ProfessorID:   professorID,
		Room:          room,
		Blocks:        sorted,
		Capacity:      capacity,
		Credits:       subject.Credits,
	}, nil
}

// Key identifies the section as "CODE/NUMBER".
func (s Section) Key() string {
	return fmt.Sprintf("%s/%d", s.SubjectCode, s.SectionNumber)
}

// SubjectOptions pairs a subject with its candidate sections in catalog order.
type SubjectOptions struct {
	Subject  Subject   `json:"subject"`
	Sections []Section `json:"sections"`
}

// Combination is one section per subject, in subject order.
type Combination struct {
	Sections     []Section `json:"sections"`
	TotalBlocks  int       `json:"totalBlocks"`
	TotalCredits int       `json:"totalCredits"`
	HasConflict  bool      `json:"hasConflict"`
}

// NewCombination derives totals and the conflict flag from the sections.
func NewCombination(sections []Section) Combination {
	copied := make([]Section, len(sections))
	copy(copied, sections)
	blocks := lo.FlatMap(copied, func(s Section, _ int) []TimeBlock { return s.Blocks })
	return Combination{
		Sections:     copied,
		TotalBlocks:  len(blocks),
		TotalCredits: lo.SumBy(copied, func(s Section) int { return s.Credits }),
		HasConflict:  DetectConflicts(blocks).HasConflict,
	}
}

// Blocks flattens every section block.
func (c Combination) Blocks() []TimeBlock {
	return lo.FlatMap(c.Sections, func(s Section, _ int) []TimeBlock { return s.Blocks })
}

// SortKey orders combinations lexicographically by subject code then section number.
func (c Combination) SortKey() string {
	keys := lo.Map(c.Sections, func(s Section, _ int) string { return fmt.Sprintf("%s/%06d", s.SubjectCode, s.SectionNumber) })
	sort.Strings(keys)
	return strings.Join(keys, "|")
}
