package timetable

import (
	"fmt"
	"strconv"
	"strings"
)

// Day is a teaching day of the week.
type Day int

const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

// Weekdays lists the teaching days in calendar order.
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

var dayNames = map[Day]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
}

var dayAliases = map[string]Day{
	"MONDAY":    Monday,
	"MON":       Monday,
	"LUNES":     Monday,
	"TUESDAY":   Tuesday,
	"TUE":       Tuesday,
	"MARTES":    Tuesday,
	"WEDNESDAY": Wednesday,
	"WED":       Wednesday,
	"MIERCOLES": Wednesday,
	"MIÉRCOLES": Wednesday,
	"THURSDAY":  Thursday,
	"THU":       Thursday,
	"JUEVES":    Thursday,
	"FRIDAY":    Friday,
	"FRI":       Friday,
	"VIERNES":   Friday,
}

// Valid reports whether d is one of the five teaching days.
func (d Day) Valid() bool {
	return d >= Monday && d <= Friday
}

func (d Day) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Day(%d)", int(d))
}

// ParseDay accepts English or Spanish day names (full or abbreviated) and 1-5 indexes.
func ParseDay(raw string) (Day, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if day, ok := dayAliases[key]; ok {
		return day, nil
	}
	if idx, err := strconv.Atoi(key); err == nil && Day(idx).Valid() {
		return Day(idx), nil
	}
	return 0, fmt.Errorf("%w: unknown day %q", ErrInvalidTimeBlock, raw)
}

// TimeOfDay is a wall-clock instant expressed in minutes since midnight.
type TimeOfDay int

// Clock builds a TimeOfDay from hours and minutes.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" (seconds, if present, must be zero).
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: malformed time %q", ErrInvalidTimeBlock, raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: malformed hour in %q", ErrInvalidTimeBlock, raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: malformed minute in %q", ErrInvalidTimeBlock, raw)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec != 0 {
			return 0, fmt.Errorf("%w: seconds not supported in %q", ErrInvalidTimeBlock, raw)
		}
	}
	return Clock(hour, minute), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// TimeBlock is a half-open [Start, End) interval on one teaching day.
type TimeBlock struct {
	Day   Day       `json:"day"`
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Minutes returns the block length.
func (b TimeBlock) Minutes() int {
	return int(b.End - b.Start)
}

// Overlaps reports whether two blocks share any instant on the same day.
func Overlaps(a, b TimeBlock) bool {
	if a.Day != b.Day {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// Contains reports whether inner lies entirely within b.
func (b TimeBlock) Contains(inner TimeBlock) bool {
	return b.Day == inner.Day && b.Start <= inner.Start && inner.End <= b.End
}

// Less orders blocks by day, start, then end.
func (b TimeBlock) Less(other TimeBlock) bool {
	if b.Day != other.Day {
		return b.Day < other.Day
	}
	if b.Start != other.Start {
		return b.Start < other.Start
	}
	return b.End < other.End
}

func (b TimeBlock) String() string {
	return fmt.Sprintf("%s %s-%s", b.Day, b.Start, b.End)
}

// MarshalText renders the day name.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: day %d", ErrInvalidTimeBlock, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts anything ParseDay does.
func (d *Day) UnmarshalText(text []byte) error {
	day, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// MarshalText renders HH:MM.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses HH:MM.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
