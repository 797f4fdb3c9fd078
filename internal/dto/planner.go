package dto

import "github.com/noah-isme/sma-timetable-api/internal/timetable"

// GeneratePlanRequest asks the planner to assign blocks for every professor load of a term.
type GeneratePlanRequest struct {
	TermID       string   `json:"termId" validate:"required"`
	ProfessorIDs []string `json:"professorIds" validate:"omitempty,dive,required"`
	Rooms        []string `json:"rooms" validate:"omitempty,dive,required"`
}

// GeneratePlanResponse returns an unsaved planner proposal.
type GeneratePlanResponse struct {
	ProposalID     string                          `json:"proposalId"`
	TermID         string                          `json:"termId"`
	Professors     []timetable.ProfessorAssignment `json:"professors"`
	UnderAllocated int                             `json:"underAllocated"`
	Warnings       []Warning                       `json:"warnings"`
}

// SavePlanRequest persists a stored proposal.
type SavePlanRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

// SavePlanResponse carries the identifier of the stored plan.
type SavePlanResponse struct {
	PlanID string `json:"planId"`
}

// PlanQuery filters saved plans by term.
type PlanQuery struct {
	TermID string `form:"termId" json:"termId" validate:"required"`
}
