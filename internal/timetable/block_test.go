package timetable

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBlock(t *testing.T, day Day, start, end string) TimeBlock {
	t.Helper()
	from, err := ParseTimeOfDay(start)
	require.NoError(t, err)
	to, err := ParseTimeOfDay(end)
	require.NoError(t, err)
	block, err := DefaultBellSchedule().NewBlock(day, from, to)
	require.NoError(t, err)
	return block
}

func TestOverlapsHalfOpen(t *testing.T) {
	first := TimeBlock{Day: Monday, Start: Clock(8, 10), End: Clock(9, 30)}
	touching := TimeBlock{Day: Monday, Start: Clock(9, 30), End: Clock(9, 40)}
	inside := TimeBlock{Day: Monday, Start: Clock(9, 0), End: Clock(9, 20)}
	otherDay := TimeBlock{Day: Tuesday, Start: Clock(8, 10), End: Clock(9, 30)}

	assert.False(t, Overlaps(first, touching))
	assert.True(t, Overlaps(first, inside))
	assert.True(t, Overlaps(inside, first))
	assert.True(t, Overlaps(first, first))
	assert.False(t, Overlaps(first, otherDay))
}

func TestBellScheduleNewBlock(t *testing.T) {
	schedule := DefaultBellSchedule()

	block, err := schedule.NewBlock(Monday, Clock(8, 10), Clock(9, 30))
	require.NoError(t, err)
	assert.Equal(t, 80, block.Minutes())

	cases := []struct {
		name       string
		day        Day
		start, end TimeOfDay
	}{
		{"unaligned start", Monday, Clock(8, 0), Clock(9, 30)},
		{"unaligned end", Monday, Clock(8, 10), Clock(9, 0)},
		{"break slot", Monday, Clock(12, 30), Clock(14, 0)},
		{"spans a break", Monday, Clock(8, 10), Clock(11, 0)},
		{"inverted", Monday, Clock(9, 30), Clock(8, 10)},
		{"weekend", Day(6), Clock(8, 10), Clock(9, 30)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schedule.NewBlock(tc.day, tc.start, tc.end)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTimeBlock))
		})
	}
}

func TestBellScheduleJoinsAdjacentSlotsWithoutBreak(t *testing.T) {
	schedule, err := ParseBellSchedule("08:00-09:00,09:00-10:00,!10:00-10:15,10:15-11:15", 1)
	require.NoError(t, err)

	block, err := schedule.NewBlock(Wednesday, Clock(8, 0), Clock(10, 0))
	require.NoError(t, err)
	assert.Equal(t, 120, block.Minutes())

	_, err = schedule.NewBlock(Wednesday, Clock(9, 0), Clock(11, 15))
	assert.ErrorIs(t, err, ErrInvalidTimeBlock)
	assert.Equal(t, 60, schedule.BlockMinutes())
}

func TestBellScheduleNormalize(t *testing.T) {
	schedule := DefaultBellSchedule()

	assert.Equal(t, Clock(8, 10), schedule.Normalize(Clock(7, 0)))
	assert.Equal(t, Clock(9, 30), schedule.Normalize(Clock(9, 28)))
	assert.Equal(t, Clock(9, 30), schedule.Normalize(Clock(9, 35)), "ties resolve toward the earlier slot")
	assert.Equal(t, Clock(12, 30), schedule.Normalize(Clock(13, 15)))
	assert.Equal(t, Clock(8, 10), schedule.Normalize(Clock(8, 50)))
	assert.Equal(t, Clock(18, 20), schedule.Normalize(Clock(21, 0)))
	assert.Equal(t, schedule.Normalize(Clock(10, 3)), schedule.Normalize(Clock(10, 3)))
}

func TestBellScheduleBlocksForHours(t *testing.T) {
	schedule := DefaultBellSchedule()

	blocks, err := schedule.BlocksForHours(4)
	require.NoError(t, err)
	assert.Equal(t, 2, blocks)

	_, err = schedule.BlocksForHours(3)
	assert.ErrorIs(t, err, ErrFractionalHours)
	_, err = schedule.BlocksForHours(0)
	assert.ErrorIs(t, err, ErrFractionalHours)
	assert.Equal(t, 6.0, schedule.HoursForBlocks(3))
}

func TestParseBellScheduleRejectsOverlap(t *testing.T) {
	_, err := ParseBellSchedule("08:00-09:00,08:30-09:30", 2)
	assert.ErrorIs(t, err, ErrInvalidTimeBlock)

	_, err = ParseBellSchedule("!08:00-09:00", 2)
	assert.ErrorIs(t, err, ErrInvalidTimeBlock)
}

func TestParseDayAliases(t *testing.T) {
	for raw, want := range map[string]Day{"monday": Monday, "Mon": Monday, "martes": Tuesday, "3": Wednesday, " FRIDAY ": Friday} {
		got, err := ParseDay(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseDay("SATURDAY")
	assert.ErrorIs(t, err, ErrInvalidTimeBlock)
}

func TestTimeBlockJSONRoundTrip(t *testing.T) {
	block := mustBlock(t, Thursday, "14:00", "15:20")
	raw, err := json.Marshal(block)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"THURSDAY","start":"14:00","end":"15:20"}`, string(raw))

	var decoded TimeBlock
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, block, decoded)
}
