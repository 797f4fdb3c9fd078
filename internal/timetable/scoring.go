package timetable

import (
	"fmt"
)

const (
	// RatingMin and RatingMax bound the institution's teacher evaluation scale.
	RatingMin = 1.0
	RatingMax = 7.0
)

// Weights blends the pass-rate and evaluation scores.
type Weights struct {
	PassRate   float64 `json:"passRate"`
	Evaluation float64 `json:"evaluation"`
}

// DefaultWeights is an even split.
func DefaultWeights() Weights {
	return Weights{PassRate: 0.5, Evaluation: 0.5}
}

// Validate rejects negative weights and an all-zero pair.
func (w Weights) Validate() error {
	if w.PassRate < 0 || w.Evaluation < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidWeights)
	}
	if w.PassRate+w.Evaluation == 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidWeights)
	}
	return nil
}

// PerformanceIndex holds historical pass rates per (professor, subject) and ratings per
// professor. Missing entries mean "no record", not zero.
type PerformanceIndex struct {
	passRates map[passRateKey]float64
	ratings   map[string]float64
}

type passRateKey struct {
	professorID string
	subjectCode string
}

// NewPerformanceIndex builds an empty index.
func NewPerformanceIndex() *PerformanceIndex {
	return &PerformanceIndex{
		passRates: make(map[passRateKey]float64),
		ratings:   make(map[string]float64),
	}
}

// SetPassRate records a pass-rate percentage, clamped to 0-100.
func (p *PerformanceIndex) SetPassRate(professorID, subjectCode string, percent float64) {
	p.passRates[passRateKey{professorID: professorID, subjectCode: subjectCode}] = clamp(percent, 0, 100)
}

// SetRating records an evaluation average, clamped to the rating scale.
func (p *PerformanceIndex) SetRating(professorID string, rating float64) {
	p.ratings[professorID] = clamp(rating, RatingMin, RatingMax)
}

// PassRate looks up a pass rate.
func (p *PerformanceIndex) PassRate(professorID, subjectCode string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.passRates[passRateKey{professorID: professorID, subjectCode: subjectCode}]
	return v, ok
}

// Rating looks up an evaluation average. It satisfies RatingLookup.
func (p *PerformanceIndex) Rating(professorID string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.ratings[professorID]
	return v, ok
}

// ScoredCombination annotates a conflict-free combination. A nil score means no section in
// the combination had data for it.
type ScoredCombination struct {
	Combination
	PassRateScore   *float64 `json:"passRateScore"`
	EvaluationScore *float64 `json:"evaluationScore"`
	BlendedScore    *float64 `json:"blendedScore"`
}

// Scorer computes the three scores for combinations.
type Scorer struct {
	weights Weights
	index   *PerformanceIndex
}

// NewScorer validates the weights.
func NewScorer(weights Weights, index *PerformanceIndex) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if index == nil {
		index = NewPerformanceIndex()
	}
	return &Scorer{weights: weights, index: index}, nil
}

// Score annotates one combination.
func (s *Scorer) Score(c Combination) (ScoredCombination, error) {
	if c.HasConflict {
		return ScoredCombination{}, ErrConflictingCombination
	}
	var passSum, ratingSum float64
	var passN, ratingN int
	for _, section := range c.Sections {
		if v, ok := s.index.PassRate(section.ProfessorID, section.SubjectCode); ok {
			passSum += v
			passN++
		}
		if v, ok := s.index.Rating(section.ProfessorID); ok {
			ratingSum += v
			ratingN++
		}
	}

	scored := ScoredCombination{Combination: c}
	if passN > 0 {
		scored.PassRateScore = floatPtr(passSum / float64(passN))
	}
	if ratingN > 0 {
		scored.EvaluationScore = floatPtr(ratingSum / float64(ratingN))
	}
	scored.BlendedScore = s.blend(scored.PassRateScore, scored.EvaluationScore)
	return scored, nil
}

// ScoreAll scores every combination, preserving order.
func (s *Scorer) ScoreAll(combinations []Combination) ([]ScoredCombination, error) {
	out := make([]ScoredCombination, 0, len(combinations))
	for _, c := range combinations {
		scored, err := s.Score(c)
		if err != nil {
			return nil, err
		}
		out = append(out, scored)
	}
	return out, nil
}

func (s *Scorer) blend(passRate, evaluation *float64) *float64 {
	switch {
	case passRate != nil && evaluation != nil:
		total := s.weights.PassRate + s.weights.Evaluation
		v := (s.weights.PassRate*(*passRate) + s.weights.Evaluation*NormalizeRating(*evaluation)) / total
		return floatPtr(v)
	case passRate != nil:
		return floatPtr(*passRate)
	case evaluation != nil:
		return floatPtr(NormalizeRating(*evaluation))
	default:
		return nil
	}
}

// NormalizeRating maps the 1-7 scale onto 0-100.
func NormalizeRating(rating float64) float64 {
	return (clamp(rating, RatingMin, RatingMax) - RatingMin) / (RatingMax - RatingMin) * 100
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func floatPtr(v float64) *float64 {
	return &v
}
