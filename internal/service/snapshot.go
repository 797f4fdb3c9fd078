package service

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

// buildSubjectOptions validates catalog rows into generator input. Subjects keep their given
// order and sections keep catalog order. Block times are snapped to the nearest bell boundary;
// a block that still does not form a valid teaching block rejects the whole snapshot.
func buildSubjectOptions(schedule timetable.BellSchedule, subjects []models.Subject, sections []models.Section, blocks []models.SectionBlock) ([]timetable.SubjectOptions, error) {
	blocksBySection := lo.GroupBy(blocks, func(b models.SectionBlock) string { return b.SectionID })
	sectionsBySubject := lo.GroupBy(sections, func(s models.Section) string { return s.SubjectCode })

	options := make([]timetable.SubjectOptions, 0, len(subjects))
	for _, row := range subjects {
		subject := timetable.Subject{Code: row.Code, Name: row.Name, Credits: row.Credits}
		opt := timetable.SubjectOptions{Subject: subject, Sections: []timetable.Section{}}
		for _, sectionRow := range sectionsBySubject[row.Code] {
			meetings, err := sectionBlocks(schedule, sectionRow, blocksBySection[sectionRow.ID])
			if err != nil {
				return nil, err
			}
			section, err := timetable.NewSection(subject, sectionRow.SectionNumber, sectionRow.ProfessorID, sectionRow.Room.String, sectionRow.Capacity, meetings)
			if err != nil {
				return nil, err
			}
			opt.Sections = append(opt.Sections, section)
		}
		options = append(options, opt)
	}
	return options, nil
}

func sectionBlocks(schedule timetable.BellSchedule, section models.Section, rows []models.SectionBlock) ([]timetable.TimeBlock, error) {
	out := make([]timetable.TimeBlock, 0, len(rows))
	for _, row := range rows {
		block, err := parseRowBlock(schedule, row.DayOfWeek, row.StartTime, row.EndTime)
		if err != nil {
			return nil, fmt.Errorf("section %s-%d: %w", section.SubjectCode, section.SectionNumber, err)
		}
		out = append(out, block)
	}
	return out, nil
}

func parseRowBlock(schedule timetable.BellSchedule, day int, start, end string) (timetable.TimeBlock, error) {
	from, err := timetable.ParseTimeOfDay(start)
	if err != nil {
		return timetable.TimeBlock{}, err
	}
	to, err := timetable.ParseTimeOfDay(end)
	if err != nil {
		return timetable.TimeBlock{}, err
	}
	return schedule.NewBlock(timetable.Day(day), schedule.Normalize(from), schedule.Normalize(to))
}

// parseWindow reads a declared availability window. Windows may span several slots and
// need not align to the bell schedule; the assigner only books teaching blocks inside them.
func parseWindow(row models.ProfessorAvailability) (timetable.TimeBlock, error) {
	day := timetable.Day(row.DayOfWeek)
	if !day.Valid() {
		return timetable.TimeBlock{}, fmt.Errorf("%w: professor %s availability day %d", timetable.ErrInvalidTimeBlock, row.ProfessorID, row.DayOfWeek)
	}
	from, err := timetable.ParseTimeOfDay(row.StartTime)
	if err != nil {
		return timetable.TimeBlock{}, err
	}
	to, err := timetable.ParseTimeOfDay(row.EndTime)
	if err != nil {
		return timetable.TimeBlock{}, err
	}
	if from >= to {
		return timetable.TimeBlock{}, fmt.Errorf("%w: professor %s availability %s-%s", timetable.ErrInvalidTimeBlock, row.ProfessorID, from, to)
	}
	return timetable.TimeBlock{Day: day, Start: from, End: to}, nil
}

// buildPerformanceIndex indexes pass rates and ratings; absent rows stay absent.
func buildPerformanceIndex(rates []models.SubjectPassRate, evaluations []models.TeacherEvaluation) *timetable.PerformanceIndex {
	index := timetable.NewPerformanceIndex()
	for _, rate := range rates {
		index.SetPassRate(rate.ProfessorID, rate.SubjectCode, rate.PassRatePercent)
	}
	for _, evaluation := range evaluations {
		index.SetRating(evaluation.ProfessorID, evaluation.AverageRating)
	}
	return index
}

// buildProfessorLoads groups requirements and availability per professor. Professors with
// requirements but no declared availability get an empty grid.
func buildProfessorLoads(loads []models.ProfessorLoad, availability []models.ProfessorAvailability) ([]timetable.ProfessorLoad, error) {
	windows := make(map[string][]timetable.TimeBlock)
	for _, row := range availability {
		window, err := parseWindow(row)
		if err != nil {
			return nil, err
		}
		windows[row.ProfessorID] = append(windows[row.ProfessorID], window)
	}

	byProfessor := lo.GroupBy(loads, func(l models.ProfessorLoad) string { return l.ProfessorID })
	professorIDs := lo.Uniq(lo.Map(loads, func(l models.ProfessorLoad, _ int) string { return l.ProfessorID }))

	out := make([]timetable.ProfessorLoad, 0, len(professorIDs))
	for _, professorID := range professorIDs {
		requirements := lo.Map(byProfessor[professorID], func(l models.ProfessorLoad, _ int) timetable.SubjectRequirement {
			return timetable.SubjectRequirement{ProfessorID: professorID, SubjectCode: l.SubjectCode, WeeklyHours: l.WeeklyHours}
		})
		out = append(out, timetable.ProfessorLoad{
			ProfessorID:  professorID,
			Requirements: requirements,
			Grid:         timetable.NewAvailabilityGrid(professorID, windows[professorID]),
		})
	}
	return out, nil
}
