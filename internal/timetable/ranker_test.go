package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredFixture(t *testing.T, number int, blocks int, pass, eval, blended *float64) ScoredCombination {
	t.Helper()
	teaching := DefaultBellSchedule().TeachingBlocks(Monday)
	section := mustSection(t, "MAT", number, "p-1", teaching[:blocks]...)
	return ScoredCombination{
		Combination:     NewCombination([]Section{section}),
		PassRateScore:   pass,
		EvaluationScore: eval,
		BlendedScore:    blended,
	}
}

func rankedKeys(set RecommendationSet) []string {
	var keys []string
	for _, s := range set.Ranked {
		keys = append(keys, sectionKeys(s.Combination)...)
	}
	return keys
}

func TestRankEmptyInputReportsNoFeasibleCombination(t *testing.T) {
	sets := NewRanker(0).Rank(nil)

	require.Len(t, sets, 3)
	assert.Equal(t, CriterionAcademicExcellence, sets[0].Criterion)
	assert.Equal(t, CriterionBalanced, sets[1].Criterion)
	assert.Equal(t, CriterionTeacherEvaluation, sets[2].Criterion)
	for _, set := range sets {
		assert.Equal(t, StatusNoFeasibleCombination, set.Status)
		assert.Empty(t, set.Ranked)
		assert.NotNil(t, set.Ranked)
	}
}

func TestRankSingleCombinationFirstEverywhere(t *testing.T) {
	only := scoredFixture(t, 1, 1, floatPtr(70), nil, floatPtr(70))

	for _, set := range NewRanker(5).Rank([]ScoredCombination{only}) {
		assert.Equal(t, StatusOK, set.Status)
		require.Len(t, set.Ranked, 1)
		assert.Equal(t, only, set.Ranked[0])
		assert.Equal(t, 1, set.Detail.TotalSubjects)
		assert.Equal(t, 1, set.Detail.TotalBlocks)
	}
}

func TestRankOrdersPerCriterion(t *testing.T) {
	a := scoredFixture(t, 1, 1, floatPtr(90), floatPtr(3), floatPtr(60))
	b := scoredFixture(t, 2, 1, floatPtr(60), floatPtr(6.5), floatPtr(80))
	c := scoredFixture(t, 3, 1, nil, floatPtr(5), floatPtr(70))

	sets := NewRanker(0).Rank([]ScoredCombination{a, b, c})

	assert.Equal(t, []string{"MAT/1", "MAT/2", "MAT/3"}, rankedKeys(sets[0]), "missing pass rate sorts last")
	assert.Equal(t, []string{"MAT/2", "MAT/3", "MAT/1"}, rankedKeys(sets[1]))
	assert.Equal(t, []string{"MAT/2", "MAT/3", "MAT/1"}, rankedKeys(sets[2]))
	assert.Equal(t, floatPtr(90), sets[0].Detail.MeanPassRate)
}

func TestRankTieBreaks(t *testing.T) {
	wide := scoredFixture(t, 1, 2, floatPtr(75), nil, floatPtr(75))
	narrowLate := scoredFixture(t, 3, 1, floatPtr(75), nil, floatPtr(75))
	narrowEarly := scoredFixture(t, 2, 1, floatPtr(75), nil, floatPtr(75))

	sets := NewRanker(0).Rank([]ScoredCombination{wide, narrowLate, narrowEarly})
	assert.Equal(t, []string{"MAT/2", "MAT/3", "MAT/1"}, rankedKeys(sets[0]))

	again := NewRanker(0).Rank([]ScoredCombination{narrowEarly, wide, narrowLate})
	assert.Equal(t, sets, again, "ranking does not depend on input order")
}

func TestRankTopNIsAPrefix(t *testing.T) {
	var scored []ScoredCombination
	for i := 1; i <= 6; i++ {
		v := float64(i * 10)
		scored = append(scored, scoredFixture(t, i, 1, &v, nil, &v))
	}

	all := NewRanker(0).Rank(scored)
	top := NewRanker(3).Rank(scored)
	for i := range all {
		require.Len(t, top[i].Ranked, 3)
		assert.Equal(t, all[i].Ranked[:3], top[i].Ranked)
	}
}

func TestRankIsMonotonicInMetric(t *testing.T) {
	low := scoredFixture(t, 1, 1, floatPtr(50), nil, floatPtr(50))
	high := scoredFixture(t, 2, 1, floatPtr(40), nil, floatPtr(40))

	before := NewRanker(0).Rank([]ScoredCombination{low, high})
	assert.Equal(t, []string{"MAT/1", "MAT/2"}, rankedKeys(before[0]))

	high.PassRateScore = floatPtr(95)
	after := NewRanker(0).Rank([]ScoredCombination{low, high})
	assert.Equal(t, []string{"MAT/2", "MAT/1"}, rankedKeys(after[0]))
	assert.Equal(t, []string{"MAT/1", "MAT/2"}, rankedKeys(after[1]), "other criteria unaffected")
}
