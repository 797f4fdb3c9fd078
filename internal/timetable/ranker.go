package timetable

import (
	"sort"

	"github.com/samber/lo"
)

// CriterionName names a recommendation set.
type CriterionName string

const (
	CriterionAcademicExcellence CriterionName = "academicExcellence"
	CriterionBalanced           CriterionName = "balanced"
	CriterionTeacherEvaluation  CriterionName = "teacherEvaluation"
)

// SetStatus tells the caller whether a set has any combination.
type SetStatus string

const (
	StatusOK                    SetStatus = "OK"
	StatusNoFeasibleCombination SetStatus = "NO_FEASIBLE_COMBINATION"
)

// Criterion pairs a set name with the score it ranks by.
type Criterion struct {
	Name   CriterionName
	Metric func(ScoredCombination) *float64
}

// Criteria is the closed set of ranking criteria, in output order.
var Criteria = []Criterion{
	{Name: CriterionAcademicExcellence, Metric: func(s ScoredCombination) *float64 { return s.PassRateScore }},
	{Name: CriterionBalanced, Metric: func(s ScoredCombination) *float64 { return s.BlendedScore }},
	{Name: CriterionTeacherEvaluation, Metric: func(s ScoredCombination) *float64 { return s.EvaluationScore }},
}

// SetDetail aggregates the top combination of a set.
type SetDetail struct {
	TotalSubjects  int      `json:"totalSubjects"`
	TotalBlocks    int      `json:"totalBlocks"`
	TotalCredits   int      `json:"totalCredits"`
	MeanPassRate   *float64 `json:"meanPassRate"`
	MeanEvaluation *float64 `json:"meanEvaluation"`
	MeanBlended    *float64 `json:"meanBlended"`
}

// RecommendationSet is the ranked output for one criterion.
type RecommendationSet struct {
	Criterion CriterionName       `json:"criterion"`
	Status    SetStatus           `json:"status"`
	Ranked    []ScoredCombination `json:"ranked"`
	Detail    SetDetail           `json:"detail"`
}

// Ranker orders scored combinations per criterion.
type Ranker struct {
	criteria []Criterion
	topN     int
}

// NewRanker keeps the first topN combinations per set; topN <= 0 keeps all.
func NewRanker(topN int) *Ranker {
	return &Ranker{criteria: Criteria, topN: topN}
}

// Rank returns one set per criterion, in Criteria order, even when scored is empty.
func (r *Ranker) Rank(scored []ScoredCombination) []RecommendationSet {
	sets := make([]RecommendationSet, 0, len(r.criteria))
	for _, criterion := range r.criteria {
		sets = append(sets, r.rankOne(criterion, scored))
	}
	return sets
}

func (r *Ranker) rankOne(criterion Criterion, scored []ScoredCombination) RecommendationSet {
	set := RecommendationSet{Criterion: criterion.Name, Status: StatusNoFeasibleCombination, Ranked: []ScoredCombination{}}
	if len(scored) == 0 {
		return set
	}
	entries := lo.Map(scored, func(s ScoredCombination, _ int) rankEntry {
		return rankEntry{combination: s, metric: criterion.Metric(s), key: s.SortKey()}
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].before(entries[j]) })
	if r.topN > 0 && len(entries) > r.topN {
		entries = entries[:r.topN]
	}
	set.Status = StatusOK
	set.Ranked = lo.Map(entries, func(e rankEntry, _ int) ScoredCombination { return e.combination })
	set.Detail = detailFor(set.Ranked[0])
	return set
}

type rankEntry struct {
	combination ScoredCombination
	metric      *float64
	key         string
}

// before orders by metric descending (missing last), fewer blocks, then section key.
func (e rankEntry) before(other rankEntry) bool {
	a, b := e.metric, other.metric
	switch {
	case a != nil && b == nil:
		return true
	case a == nil && b != nil:
		return false
	case a != nil && b != nil && *a != *b:
		return *a > *b
	}
	if e.combination.TotalBlocks != other.combination.TotalBlocks {
		return e.combination.TotalBlocks < other.combination.TotalBlocks
	}
	return e.key < other.key
}

func detailFor(top ScoredCombination) SetDetail {
	return SetDetail{
		TotalSubjects:  len(lo.UniqBy(top.Sections, func(s Section) string { return s.SubjectCode })),
		TotalBlocks:    top.TotalBlocks,
		TotalCredits:   top.TotalCredits,
		MeanPassRate:   top.PassRateScore,
		MeanEvaluation: top.EvaluationScore,
		MeanBlended:    top.BlendedScore,
	}
}
