package service

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

func TestBuildSubjectOptionsGroupsSections(t *testing.T) {
	schedule := timetable.DefaultBellSchedule()
	subjects := []models.Subject{{Code: "MAT", Name: "Matematica", Credits: 6}, {Code: "ART", Name: "Arte", Credits: 2}}
	sections := []models.Section{
		{ID: "s1", SubjectCode: "MAT", SectionNumber: 1, ProfessorID: "p1", Room: sql.NullString{String: "A-101", Valid: true}, Capacity: 30},
		{ID: "s2", SubjectCode: "MAT", SectionNumber: 2, ProfessorID: "p2", Capacity: 25},
	}
	blocks := []models.SectionBlock{
		{SectionID: "s1", DayOfWeek: 1, StartTime: "08:10:00", EndTime: "09:30:00"},
		{SectionID: "s2", DayOfWeek: 2, StartTime: "14:00", EndTime: "15:20"},
	}

	options, err := buildSubjectOptions(schedule, subjects, sections, blocks)
	require.NoError(t, err)
	require.Len(t, options, 2)
	require.Len(t, options[0].Sections, 2)
	assert.Equal(t, "A-101", options[0].Sections[0].Room)
	assert.Len(t, options[0].Sections[0].Blocks, 1)
	assert.Equal(t, timetable.Clock(9, 30), options[0].Sections[0].Blocks[0].End)
	assert.Empty(t, options[1].Sections, "subject without sections is kept so the generator can skip it")
}

func TestBuildSubjectOptionsSnapsNearBellTimes(t *testing.T) {
	options, err := buildSubjectOptions(timetable.DefaultBellSchedule(),
		[]models.Subject{{Code: "MAT"}},
		[]models.Section{{ID: "s1", SubjectCode: "MAT", SectionNumber: 1, ProfessorID: "p1"}},
		[]models.SectionBlock{
			{SectionID: "s1", DayOfWeek: 1, StartTime: "08:00", EndTime: "09:30"},
			{SectionID: "s1", DayOfWeek: 3, StartTime: "14:05", EndTime: "15:15"},
		},
	)
	require.NoError(t, err)
	require.Len(t, options[0].Sections, 1)
	assert.Equal(t, []timetable.TimeBlock{
		{Day: timetable.Monday, Start: timetable.Clock(8, 10), End: timetable.Clock(9, 30)},
		{Day: timetable.Wednesday, Start: timetable.Clock(14, 0), End: timetable.Clock(15, 20)},
	}, options[0].Sections[0].Blocks)
}

func TestBuildSubjectOptionsRejectsMisalignedBlock(t *testing.T) {
	_, err := buildSubjectOptions(timetable.DefaultBellSchedule(),
		[]models.Subject{{Code: "MAT"}},
		[]models.Section{{ID: "s1", SubjectCode: "MAT", SectionNumber: 1, ProfessorID: "p1"}},
		[]models.SectionBlock{{SectionID: "s1", DayOfWeek: 1, StartTime: "08:10", EndTime: "11:00"}},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, timetable.ErrInvalidTimeBlock))
	assert.Contains(t, err.Error(), "MAT-1")
}

func TestBuildProfessorLoads(t *testing.T) {
	loads := []models.ProfessorLoad{
		{ProfessorID: "p2", SubjectCode: "SOC", WeeklyHours: 2},
		{ProfessorID: "p1", SubjectCode: "MAT", WeeklyHours: 4},
		{ProfessorID: "p1", SubjectCode: "FIS", WeeklyHours: 2},
	}
	availability := []models.ProfessorAvailability{
		{ProfessorID: "p1", DayOfWeek: 1, StartTime: "08:00", EndTime: "12:45"},
	}

	out, err := buildProfessorLoads(loads, availability)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "p2", out[0].ProfessorID)
	assert.Equal(t, 0, out[0].Grid.Len())
	assert.Equal(t, "p1", out[1].ProfessorID)
	assert.Len(t, out[1].Requirements, 2)
	assert.Equal(t, 1, out[1].Grid.Len(), "windows are kept as declared")

	_, err = buildProfessorLoads(loads, []models.ProfessorAvailability{{ProfessorID: "p1", DayOfWeek: 6, StartTime: "08:10", EndTime: "09:30"}})
	assert.True(t, errors.Is(err, timetable.ErrInvalidTimeBlock))

	_, err = buildProfessorLoads(loads, []models.ProfessorAvailability{{ProfessorID: "p1", DayOfWeek: 1, StartTime: "10:00", EndTime: "09:00"}})
	assert.True(t, errors.Is(err, timetable.ErrInvalidTimeBlock))
}

func TestBuildPerformanceIndex(t *testing.T) {
	index := buildPerformanceIndex(
		[]models.SubjectPassRate{{ProfessorID: "p1", SubjectCode: "MAT", PassRatePercent: 88}},
		[]models.TeacherEvaluation{{ProfessorID: "p1", AverageRating: 6.5}},
	)
	rating, ok := index.Rating("p1")
	assert.True(t, ok)
	assert.Equal(t, 6.5, rating)
	_, ok = index.Rating("p2")
	assert.False(t, ok)
}
