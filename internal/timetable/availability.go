package timetable

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// AvailabilityGrid is a professor's set of free blocks. It is an immutable value: Reserve
// returns a new grid so a search can undo a reservation by dropping the copy.
type AvailabilityGrid struct {
	professorID string
	blocks      []TimeBlock
}

// NewAvailabilityGrid orders the declared blocks and merges overlapping or touching ones, so
// 08:00-09:00 and 09:00-10:00 become a single 08:00-10:00 window.
func NewAvailabilityGrid(professorID string, blocks []TimeBlock) AvailabilityGrid {
	sorted := lo.Uniq(blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	merged := make([]TimeBlock, 0, len(sorted))
	for _, b := range sorted {
		if n := len(merged); n > 0 && merged[n-1].Day == b.Day && b.Start <= merged[n-1].End {
			if b.End > merged[n-1].End {
				merged[n-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return AvailabilityGrid{professorID: professorID, blocks: merged}
}

// ProfessorID returns the grid owner.
func (g AvailabilityGrid) ProfessorID() string {
	return g.professorID
}

// Blocks returns the remaining available blocks in (day, start) order.
func (g AvailabilityGrid) Blocks() []TimeBlock {
	out := make([]TimeBlock, len(g.blocks))
	copy(out, g.blocks)
	return out
}

// Len is the number of available blocks.
func (g AvailabilityGrid) Len() int {
	return len(g.blocks)
}

// TotalMinutes sums the available time.
func (g AvailabilityGrid) TotalMinutes() int {
	return lo.SumBy(g.blocks, func(b TimeBlock) int { return b.Minutes() })
}

// IsAvailable reports whether block fits entirely inside one available block.
func (g AvailabilityGrid) IsAvailable(block TimeBlock) bool {
	return g.indexOf(block) >= 0
}

// Reserve returns a grid without the given block. A block that is not available yields
// ErrUnavailableBlock and the receiver is left untouched.
func (g AvailabilityGrid) Reserve(block TimeBlock) (AvailabilityGrid, error) {
	idx := g.indexOf(block)
	if idx < 0 {
		return g, fmt.Errorf("%w: professor %s has no availability at %s", ErrUnavailableBlock, g.professorID, block)
	}
	host := g.blocks[idx]
	next := make([]TimeBlock, 0, len(g.blocks)+1)
	next = append(next, g.blocks[:idx]...)
	if host.Start < block.Start {
		next = append(next, TimeBlock{Day: host.Day, Start: host.Start, End: block.Start})
	}
	if block.End < host.End {
		next = append(next, TimeBlock{Day: host.Day, Start: block.End, End: host.End})
	}
	next = append(next, g.blocks[idx+1:]...)
	return AvailabilityGrid{professorID: g.professorID, blocks: next}, nil
}

func (g AvailabilityGrid) indexOf(block TimeBlock) int {
	for i, b := range g.blocks {
		if b.Contains(block) {
			return i
		}
	}
	return -1
}
