package dto

import "github.com/noah-isme/sma-timetable-api/internal/timetable"

// WeightsRequest overrides the blended score weights.
type WeightsRequest struct {
	PassRate   float64 `json:"passRate" validate:"gte=0"`
	Evaluation float64 `json:"evaluation" validate:"gte=0"`
}

// RecommendationRequest tunes a student recommendation run. Zero values fall back to configuration.
type RecommendationRequest struct {
	MaxNodes int             `json:"maxNodes" validate:"omitempty,min=1,max=5000000"`
	TopN     int             `json:"topN" validate:"omitempty,min=1,max=100"`
	Weights  *WeightsRequest `json:"weights" validate:"omitempty"`
	Parallel *bool           `json:"parallel"`
}

// Warning is a non-fatal condition surfaced alongside a result.
type Warning struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Warning codes.
const (
	WarningSearchBoundExceeded   = "SEARCH_BOUND_EXCEEDED"
	WarningUnderAllocatedSubject = "UNDER_ALLOCATED_SUBJECT"
	WarningNoEligibleSubjects    = "NO_ELIGIBLE_SUBJECTS"
)

// RecommendationSets groups the ranked output by criterion.
type RecommendationSets struct {
	AcademicExcellence timetable.RecommendationSet `json:"academicExcellence"`
	Balanced           timetable.RecommendationSet `json:"balanced"`
	TeacherEvaluation  timetable.RecommendationSet `json:"teacherEvaluation"`
}

// RecommendationResponse is returned by the student recommendation endpoint.
type RecommendationResponse struct {
	StudentID                 string             `json:"studentId"`
	TotalEligibleSubjects     int                `json:"totalEligibleSubjects"`
	TotalCombinationsExplored int                `json:"totalCombinationsExplored"`
	Partial                   bool               `json:"partial"`
	Warnings                  []Warning          `json:"warnings"`
	RecommendationSets        RecommendationSets `json:"recommendationSets"`
}

// WarmupRequest schedules background recommendation runs for the listed students.
type WarmupRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,max=500,dive,required"`
}

// WarmupResponse lists the queued job identifiers.
type WarmupResponse struct {
	JobIDs []string `json:"jobIds"`
}
