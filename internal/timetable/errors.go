package timetable

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTimeBlock marks malformed or bell-schedule unaligned input.
	ErrInvalidTimeBlock = errors.New("invalid time block")
	// ErrUnavailableBlock is returned when reserving outside declared availability.
	ErrUnavailableBlock = errors.New("unavailable block reservation")
	// ErrNoFeasibleCombination is reported as a recommendation set status, never returned.
	ErrNoFeasibleCombination = errors.New("no feasible combination")
	// ErrUnderAllocatedSubject flags a subject whose weekly hours could not be covered.
	ErrUnderAllocatedSubject = errors.New("under-allocated subject")
	// ErrSearchBoundExceeded flags a truncated candidate search.
	ErrSearchBoundExceeded = errors.New("search bound exceeded")
	// ErrInternalConflict means a composed schedule double-books an owner.
	ErrInternalConflict = errors.New("internal schedule conflict")
	// ErrFractionalHours rejects weekly hours that are not whole blocks.
	ErrFractionalHours = errors.New("weekly hours not a whole number of blocks")
	// ErrInvalidWeights rejects negative or all-zero scoring weights.
	ErrInvalidWeights = errors.New("invalid scoring weights")
	// ErrConflictingCombination is returned when scoring a combination that overlaps.
	ErrConflictingCombination = errors.New("combination has overlapping blocks")
)

// ConflictError carries the overlapping entries found by the final consistency pass.
type ConflictError struct {
	Conflicts []OwnedConflict
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("%s: %s", ErrInternalConflict, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrInternalConflict.
func (e *ConflictError) Unwrap() error {
	return ErrInternalConflict
}
