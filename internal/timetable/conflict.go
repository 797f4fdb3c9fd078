package timetable

import (
	"fmt"
	"sort"
)

// ConflictReport lists every overlapping index pair of a block set.
type ConflictReport struct {
	HasConflict bool     `json:"hasConflict"`
	Pairs       [][2]int `json:"pairs"`
}

// DetectConflicts compares all pairs. Combinations are small so O(n²) is fine.
func DetectConflicts(blocks []TimeBlock) ConflictReport {
	report := ConflictReport{Pairs: [][2]int{}}
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			if Overlaps(blocks[i], blocks[j]) {
				report.Pairs = append(report.Pairs, [2]int{i, j})
			}
		}
	}
	report.HasConflict = len(report.Pairs) > 0
	return report
}

// conflictsWith checks candidate blocks against already accepted ones only.
func conflictsWith(accepted, candidate []TimeBlock) bool {
	for _, c := range candidate {
		for _, a := range accepted {
			if Overlaps(a, c) {
				return true
			}
		}
	}
	return false
}

// OwnerKind identifies what a block is booked against.
type OwnerKind string

const (
	OwnerProfessor OwnerKind = "PROFESSOR"
	OwnerRoom      OwnerKind = "ROOM"
)

// Owner is a bookable resource.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

func (o Owner) String() string {
	return fmt.Sprintf("%s:%s", o.Kind, o.ID)
}

// OwnedBlock is a block booked against an owner, labelled with what it was booked for.
type OwnedBlock struct {
	Owner Owner     `json:"owner"`
	Block TimeBlock `json:"block"`
	Label string    `json:"label"`
}

// OwnedConflict describes two bookings of the same owner that overlap.
type OwnedConflict struct {
	Owner  Owner      `json:"owner"`
	First  OwnedBlock `json:"first"`
	Second OwnedBlock `json:"second"`
}

func (c OwnedConflict) String() string {
	return fmt.Sprintf("%s double-booked: %s (%s) vs %s (%s)", c.Owner, c.First.Block, c.First.Label, c.Second.Block, c.Second.Label)
}

// DetectOwnedConflicts reports same-owner overlaps. Blocks of different owners never conflict.
func DetectOwnedConflicts(entries []OwnedBlock) []OwnedConflict {
	byOwner := make(map[Owner][]OwnedBlock)
	var owners []Owner
	for _, entry := range entries {
		if entry.Owner.ID == "" {
			continue
		}
		if _, ok := byOwner[entry.Owner]; !ok {
			owners = append(owners, entry.Owner)
		}
		byOwner[entry.Owner] = append(byOwner[entry.Owner], entry)
	}
	sort.Slice(owners, func(i, j int) bool {
		if owners[i].Kind != owners[j].Kind {
			return owners[i].Kind < owners[j].Kind
		}
		return owners[i].ID < owners[j].ID
	})

	var conflicts []OwnedConflict
	for _, owner := range owners {
		group := byOwner[owner]
		blocks := make([]TimeBlock, len(group))
		for i, entry := range group {
			blocks[i] = entry.Block
		}
		for _, pair := range DetectConflicts(blocks).Pairs {
			conflicts = append(conflicts, OwnedConflict{Owner: owner, First: group[pair[0]], Second: group[pair[1]]})
		}
	}
	return conflicts
}
