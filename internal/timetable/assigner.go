package timetable

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// SubjectRequirement is a professor's weekly teaching need for one subject.
type SubjectRequirement struct {
	ProfessorID string  `json:"professorId"`
	SubjectCode string  `json:"subjectCode"`
	WeeklyHours float64 `json:"weeklyHours"`
}

// ProfessorLoad bundles a professor's requirements with their availability.
type ProfessorLoad struct {
	ProfessorID  string
	Requirements []SubjectRequirement
	Grid         AvailabilityGrid
}

// SubjectAssignment is the concrete outcome for one requirement.
type SubjectAssignment struct {
	SubjectCode    string      `json:"subjectCode"`
	Blocks         []TimeBlock `json:"blocks"`
	Room           string      `json:"room"`
	WeeklyHours    float64     `json:"weeklyHours"`
	AssignedHours  float64     `json:"assignedHours"`
	UnderAllocated bool        `json:"underAllocated"`
	ShortfallHours float64     `json:"shortfallHours"`
}

// Err reports the shortfall as ErrUnderAllocatedSubject, or nil when fully allocated.
func (s SubjectAssignment) Err() error {
	if !s.UnderAllocated {
		return nil
	}
	return fmt.Errorf("%w: %s short by %.0f hours", ErrUnderAllocatedSubject, s.SubjectCode, s.ShortfallHours)
}

// ProfessorAssignment is one professor's conflict-free weekly schedule.
type ProfessorAssignment struct {
	ProfessorID string              `json:"professorId"`
	Assignments []SubjectAssignment `json:"assignments"`
}

// UnderAllocated lists the assignments that fell short.
func (p ProfessorAssignment) UnderAllocated() []SubjectAssignment {
	return lo.Filter(p.Assignments, func(a SubjectAssignment, _ int) bool { return a.UnderAllocated })
}

// GlobalAssigner places every professor's subjects into their availability without
// double-booking professors or rooms.
type GlobalAssigner struct {
	schedule BellSchedule
}

// NewGlobalAssigner binds the assigner to a bell schedule.
func NewGlobalAssigner(schedule BellSchedule) *GlobalAssigner {
	return &GlobalAssigner{schedule: schedule}
}

// Assign processes professors by ascending id and their subjects by descending weekly hours.
// Rooms are taken from the pool in order; an empty pool disables room tracking. Shortfalls are
// flagged, never padded. A conflict in the composed result is returned as *ConflictError.
func (a *GlobalAssigner) Assign(loads []ProfessorLoad, rooms []string) ([]ProfessorAssignment, error) {
	needs, err := a.validate(loads)
	if err != nil {
		return nil, err
	}

	ordered := make([]ProfessorLoad, len(loads))
	copy(ordered, loads)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ProfessorID < ordered[j].ProfessorID })

	bookings := make(map[string][]TimeBlock)
	result := make([]ProfessorAssignment, 0, len(ordered))
	for _, load := range ordered {
		assignment, err := a.assignProfessor(load, needs, rooms, bookings)
		if err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}

	if conflicts := DetectOwnedConflicts(ownedBlocks(result)); len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}
	return result, nil
}

func (a *GlobalAssigner) validate(loads []ProfessorLoad) (map[SubjectRequirement]int, error) {
	needs := make(map[SubjectRequirement]int)
	seen := make(map[string]bool, len(loads))
	for _, load := range loads {
		if load.ProfessorID == "" {
			return nil, fmt.Errorf("professor id required")
		}
		if seen[load.ProfessorID] {
			return nil, fmt.Errorf("professor %s listed more than once", load.ProfessorID)
		}
		seen[load.ProfessorID] = true
		for _, req := range load.Requirements {
			blocks, err := a.schedule.BlocksForHours(req.WeeklyHours)
			if err != nil {
				return nil, fmt.Errorf("professor %s subject %s: %w", load.ProfessorID, req.SubjectCode, err)
			}
			needs[req] = blocks
		}
	}
	return needs, nil
}

func (a *GlobalAssigner) assignProfessor(load ProfessorLoad, needs map[SubjectRequirement]int, rooms []string, bookings map[string][]TimeBlock) (ProfessorAssignment, error) {
	reqs := make([]SubjectRequirement, len(load.Requirements))
	copy(reqs, load.Requirements)
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].WeeklyHours != reqs[j].WeeklyHours {
			return reqs[i].WeeklyHours > reqs[j].WeeklyHours
		}
		return reqs[i].SubjectCode < reqs[j].SubjectCode
	})

	grid := load.Grid
	out := ProfessorAssignment{ProfessorID: load.ProfessorID, Assignments: make([]SubjectAssignment, 0, len(reqs))}
	for _, req := range reqs {
		need := needs[req]
		chosen, room := a.pickBlocks(a.candidates(grid), need, rooms, bookings)
		for _, block := range chosen {
			next, err := grid.Reserve(block)
			if err != nil {
				return ProfessorAssignment{}, err
			}
			grid = next
			if room != "" {
				bookings[room] = append(bookings[room], block)
			}
		}

		assigned := a.schedule.HoursForBlocks(len(chosen))
		out.Assignments = append(out.Assignments, SubjectAssignment{
			SubjectCode:    req.SubjectCode,
			Blocks:         append([]TimeBlock{}, chosen...),
			Room:           room,
			WeeklyHours:    req.WeeklyHours,
			AssignedHours:  assigned,
			UnderAllocated: len(chosen) < need,
			ShortfallHours: req.WeeklyHours - assigned,
		})
	}
	return out, nil
}

// pickBlocks takes the first need candidates. With a room pool the subject keeps a single room:
// the earliest pool room that is free at the most candidate blocks. No room is reported when no
// block could be placed.
func (a *GlobalAssigner) pickBlocks(candidates []TimeBlock, need int, rooms []string, bookings map[string][]TimeBlock) ([]TimeBlock, string) {
	if len(rooms) == 0 {
		return lo.Slice(candidates, 0, need), ""
	}
	var best []TimeBlock
	bestRoom := ""
	for _, room := range rooms {
		free := lo.Filter(candidates, func(block TimeBlock, _ int) bool { return roomFree(bookings[room], block) })
		free = lo.Slice(free, 0, need)
		if len(free) > len(best) {
			best, bestRoom = free, room
		}
		if len(best) == need {
			break
		}
	}
	return best, bestRoom
}

// candidates lists the teaching blocks still inside the grid, in (day, start) order.
func (a *GlobalAssigner) candidates(grid AvailabilityGrid) []TimeBlock {
	var out []TimeBlock
	for _, free := range grid.Blocks() {
		for _, block := range a.schedule.TeachingBlocks(free.Day) {
			if free.Contains(block) {
				out = append(out, block)
			}
		}
	}
	return lo.Uniq(out)
}

func roomFree(booked []TimeBlock, block TimeBlock) bool {
	return !lo.ContainsBy(booked, func(b TimeBlock) bool { return Overlaps(b, block) })
}

func ownedBlocks(assignments []ProfessorAssignment) []OwnedBlock {
	var entries []OwnedBlock
	for _, professor := range assignments {
		for _, subject := range professor.Assignments {
			label := fmt.Sprintf("%s/%s", professor.ProfessorID, subject.SubjectCode)
			for _, block := range subject.Blocks {
				entries = append(entries, OwnedBlock{Owner: Owner{Kind: OwnerProfessor, ID: professor.ProfessorID}, Block: block, Label: label})
				if subject.Room != "" {
					entries = append(entries, OwnedBlock{Owner: Owner{Kind: OwnerRoom, ID: subject.Room}, Block: block, Label: label})
				}
			}
		}
	}
	return entries
}
