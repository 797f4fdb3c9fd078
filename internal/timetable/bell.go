package timetable

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// DefaultHoursPerBlock is the number of academic hours credited per teaching block.
const DefaultHoursPerBlock = 2

// BellSlot is one entry of the institution's bell schedule.
type BellSlot struct {
	Start TimeOfDay
	End   TimeOfDay
	Break bool
}

// BellSchedule is the ordered list of valid instants. Break slots are never assignable.
type BellSchedule struct {
	slots         []BellSlot
	hoursPerBlock int
}

// DefaultBellSchedule returns the standard 80 minute block schedule.
func DefaultBellSchedule() BellSchedule {
	schedule, _ := NewBellSchedule([]BellSlot{
		{Start: Clock(8, 10), End: Clock(9, 30)},
		{Start: Clock(9, 30), End: Clock(9, 40), Break: true},
		{Start: Clock(9, 40), End: Clock(11, 0)},
		{Start: Clock(11, 0), End: Clock(11, 10), Break: true},
		{Start: Clock(11, 10), End: Clock(12, 30)},
		{Start: Clock(12, 30), End: Clock(14, 0), Break: true},
		{Start: Clock(14, 0), End: Clock(15, 20)},
		{Start: Clock(15, 20), End: Clock(15, 30), Break: true},
		{Start: Clock(15, 30), End: Clock(16, 50)},
		{Start: Clock(16, 50), End: Clock(17, 0), Break: true},
		{Start: Clock(17, 0), End: Clock(18, 20)},
	}, DefaultHoursPerBlock)
	return schedule
}

// NewBellSchedule validates slot ordering and returns a schedule.
func NewBellSchedule(slots []BellSlot, hoursPerBlock int) (BellSchedule, error) {
	if hoursPerBlock <= 0 {
		hoursPerBlock = DefaultHoursPerBlock
	}
	sorted := make([]BellSlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, slot := range sorted {
		if slot.Start >= slot.End {
			return BellSchedule{}, fmt.Errorf("%w: bell slot %s-%s", ErrInvalidTimeBlock, slot.Start, slot.End)
		}
		if i > 0 && sorted[i-1].End > slot.Start {
			return BellSchedule{}, fmt.Errorf("%w: bell slots %s-%s and %s-%s overlap", ErrInvalidTimeBlock,
				sorted[i-1].Start, sorted[i-1].End, slot.Start, slot.End)
		}
	}
	if !lo.ContainsBy(sorted, func(slot BellSlot) bool { return !slot.Break }) {
		return BellSchedule{}, fmt.Errorf("%w: bell schedule has no teaching slots", ErrInvalidTimeBlock)
	}
	return BellSchedule{slots: sorted, hoursPerBlock: hoursPerBlock}, nil
}

// ParseBellSchedule reads "08:10-09:30,!09:30-09:40,…" where a leading "!" marks a break.
func ParseBellSchedule(raw string, hoursPerBlock int) (BellSchedule, error) {
	var slots []BellSlot
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		isBreak := strings.HasPrefix(part, "!")
		part = strings.TrimPrefix(part, "!")
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return BellSchedule{}, fmt.Errorf("%w: bell slot %q", ErrInvalidTimeBlock, part)
		}
		start, err := ParseTimeOfDay(bounds[0])
		if err != nil {
			return BellSchedule{}, err
		}
		end, err := ParseTimeOfDay(bounds[1])
		if err != nil {
			return BellSchedule{}, err
		}
		slots = append(slots, BellSlot{Start: start, End: end, Break: isBreak})
	}
	return NewBellSchedule(slots, hoursPerBlock)
}

// Slots returns a copy of the configured slots.
func (s BellSchedule) Slots() []BellSlot {
	out := make([]BellSlot, len(s.slots))
	copy(out, s.slots)
	return out
}

// HoursPerBlock is the academic-hour value of one standard block.
func (s BellSchedule) HoursPerBlock() int {
	return s.hoursPerBlock
}

// BlockMinutes is the length of the standard block (the first teaching slot).
func (s BellSchedule) BlockMinutes() int {
	for _, slot := range s.slots {
		if !slot.Break {
			return int(slot.End - slot.Start)
		}
	}
	return 0
}

// BlocksForHours converts weekly hours to a block count; fractional blocks are rejected.
func (s BellSchedule) BlocksForHours(hours float64) (int, error) {
	if hours <= 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0, fmt.Errorf("%w: %.2f hours", ErrFractionalHours, hours)
	}
	blocks := hours / float64(s.hoursPerBlock)
	rounded := math.Round(blocks)
	if math.Abs(blocks-rounded) > 1e-9 {
		return 0, fmt.Errorf("%w: %.2f hours with %d hours per block", ErrFractionalHours, hours, s.hoursPerBlock)
	}
	return int(rounded), nil
}

// HoursForBlocks converts a block count back to academic hours.
func (s BellSchedule) HoursForBlocks(blocks int) float64 {
	return float64(blocks * s.hoursPerBlock)
}

// NewBlock validates a block against the schedule. Start must open a teaching slot, end must
// close one, and the covered teaching slots must be back to back with no break between them.
func (s BellSchedule) NewBlock(day Day, start, end TimeOfDay) (TimeBlock, error) {
	if !day.Valid() {
		return TimeBlock{}, fmt.Errorf("%w: day %d", ErrInvalidTimeBlock, int(day))
	}
	if start >= end {
		return TimeBlock{}, fmt.Errorf("%w: start %s not before end %s", ErrInvalidTimeBlock, start, end)
	}
	first := -1
	for i, slot := range s.slots {
		if slot.Start == start {
			first = i
			break
		}
	}
	if first < 0 || s.slots[first].Break {
		return TimeBlock{}, fmt.Errorf("%w: %s is not a teaching slot start", ErrInvalidTimeBlock, start)
	}
	for i := first; i < len(s.slots); i++ {
		slot := s.slots[i]
		if slot.Break {
			break
		}
		if i > first && s.slots[i-1].End != slot.Start {
			break
		}
		if slot.End == end {
			return TimeBlock{Day: day, Start: start, End: end}, nil
		}
		if slot.End > end {
			break
		}
	}
	return TimeBlock{}, fmt.Errorf("%w: %s-%s does not align to the bell schedule", ErrInvalidTimeBlock, start, end)
}

// ParseBlock parses textual day and times and validates them against the schedule.
func (s BellSchedule) ParseBlock(day, start, end string) (TimeBlock, error) {
	d, err := ParseDay(day)
	if err != nil {
		return TimeBlock{}, err
	}
	from, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeBlock{}, err
	}
	to, err := ParseTimeOfDay(end)
	if err != nil {
		return TimeBlock{}, err
	}
	return s.NewBlock(d, from, to)
}

// Normalize snaps t to the nearest teaching-slot boundary, ties resolved toward the earlier one.
func (s BellSchedule) Normalize(t TimeOfDay) TimeOfDay {
	boundaries := s.boundaries()
	best := boundaries[0]
	bestDist := absMinutes(t - best)
	for _, candidate := range boundaries[1:] {
		dist := absMinutes(t - candidate)
		if dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	return best
}

// TeachingBlocks enumerates the single-slot assignable blocks of a day in order.
func (s BellSchedule) TeachingBlocks(day Day) []TimeBlock {
	blocks := make([]TimeBlock, 0, len(s.slots))
	for _, slot := range s.slots {
		if slot.Break {
			continue
		}
		blocks = append(blocks, TimeBlock{Day: day, Start: slot.Start, End: slot.End})
	}
	return blocks
}

func (s BellSchedule) boundaries() []TimeOfDay {
	var out []TimeOfDay
	for _, slot := range s.slots {
		if slot.Break {
			continue
		}
		out = append(out, slot.Start, slot.End)
	}
	out = lo.Uniq(out)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func absMinutes(t TimeOfDay) TimeOfDay {
	if t < 0 {
		return -t
	}
	return t
}
