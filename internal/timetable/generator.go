package timetable

import (
	"runtime"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxNodes bounds the number of section trials in one search.
const DefaultMaxNodes = 50000

// RatingLookup returns a professor's aggregate evaluation when one exists.
type RatingLookup func(professorID string) (float64, bool)

// GeneratorOptions tunes the candidate search.
type GeneratorOptions struct {
	MaxNodes int
	Parallel bool
}

// GenerationResult holds every conflict-free combination found.
type GenerationResult struct {
	Combinations []Combination `json:"combinations"`
	Explored     int           `json:"explored"`
	Partial      bool          `json:"partial"`
}

// CandidateGenerator enumerates non-overlapping section combinations by backtracking.
type CandidateGenerator struct {
	opts    GeneratorOptions
	ratings RatingLookup
}

// NewCandidateGenerator applies defaults; ratings may be nil.
func NewCandidateGenerator(opts GeneratorOptions, ratings RatingLookup) *CandidateGenerator {
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if ratings == nil {
		ratings = func(string) (float64, bool) { return 0, false }
	}
	return &CandidateGenerator{opts: opts, ratings: ratings}
}

// Generate walks subjects in the given order. Sections are tried highest rated professor
// first, then in catalog order. Reaching MaxNodes stops the search with Partial set.
func (g *CandidateGenerator) Generate(subjects []SubjectOptions) GenerationResult {
	result := GenerationResult{Combinations: []Combination{}}
	if len(subjects) == 0 {
		return result
	}
	ordered := make([][]Section, len(subjects))
	for i, subject := range subjects {
		ordered[i] = g.orderSections(subject.Sections)
	}

	if g.opts.Parallel && len(ordered) > 1 && len(ordered[0]) > 1 {
		return g.generateParallel(ordered)
	}

	state := newSearchState(ordered, g.opts.MaxNodes)
	state.explore(0)
	for _, e := range state.emitted {
		result.Combinations = append(result.Combinations, NewCombination(e.sections))
	}
	result.Explored = state.nodes
	result.Partial = state.partial
	return result
}

// generateParallel explores each top-level section in its own goroutine, then replays the
// global node budget over the branches in order so the output matches a sequential run.
func (g *CandidateGenerator) generateParallel(ordered [][]Section) GenerationResult {
	maxNodes := g.opts.MaxNodes
	top := ordered[0]
	branches := g.exploreBranches(ordered)

	result := GenerationResult{Combinations: []Combination{}}
	used := 0
	for i := range top {
		if used >= maxNodes {
			result.Partial = true
			break
		}
		used++
		branch := branches[i]
		for _, e := range branch.emitted {
			if used+e.at <= maxNodes {
				result.Combinations = append(result.Combinations, NewCombination(e.sections))
			}
		}
		if branch.partial || used+branch.nodes > maxNodes {
			used = maxNodes
			result.Partial = true
			break
		}
		used += branch.nodes
	}
	result.Explored = used
	return result
}

// exploreBranches runs one search per top-level section. Branch i starts after i+1 top-level
// nodes and stops once the nodes already spent by the branches before it exhaust the budget,
// so each running worker spends at most one budget.
func (g *CandidateGenerator) exploreBranches(ordered [][]Section) []*searchState {
	maxNodes := g.opts.MaxNodes
	top := ordered[0]
	branches := make([]*searchState, len(top))
	spent := make([]atomic.Int64, len(top))

	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, section := range top {
		i, section := i, section
		group.Go(func() error {
			state := newSearchState(ordered, maxNodes-(i+1))
			state.exhausted = func(nodes int) bool {
				spent[i].Store(int64(nodes))
				floor := i + 1 + nodes
				for j := 0; j < i; j++ {
					floor += int(spent[j].Load())
				}
				return floor >= maxNodes
			}
			state.chosen = append(state.chosen, section)
			state.accepted = append(state.accepted, section.Blocks...)
			state.explore(1)
			spent[i].Store(int64(state.nodes))
			branches[i] = state
			return nil
		})
	}
	_ = group.Wait()
	return branches
}

func (g *CandidateGenerator) orderSections(sections []Section) []Section {
	out := make([]Section, len(sections))
	copy(out, sections)
	sort.SliceStable(out, func(i, j int) bool {
		ri, okI := g.ratings(out[i].ProfessorID)
		rj, okJ := g.ratings(out[j].ProfessorID)
		if okI != okJ {
			return okI
		}
		return okI && ri > rj
	})
	return out
}

type emission struct {
	at       int
	sections []Section
}

// budgetCheckInterval is how many nodes a parallel branch visits between reads of the shared
// budget.
const budgetCheckInterval = 256

type searchState struct {
	subjects  [][]Section
	maxNodes  int
	nodes     int
	partial   bool
	chosen    []Section
	accepted  []TimeBlock
	emitted   []emission
	exhausted func(nodes int) bool
}

func newSearchState(subjects [][]Section, maxNodes int) *searchState {
	return &searchState{subjects: subjects, maxNodes: maxNodes}
}

func (s *searchState) explore(depth int) {
	for _, section := range s.subjects[depth] {
		if s.nodes >= s.maxNodes || s.sharedBudgetSpent() {
			s.partial = true
			return
		}
		s.nodes++
		if conflictsWith(s.accepted, section.Blocks) {
			continue
		}
		mark := len(s.accepted)
		s.chosen = append(s.chosen, section)
		s.accepted = append(s.accepted, section.Blocks...)
		if depth == len(s.subjects)-1 {
			picked := make([]Section, len(s.chosen))
			copy(picked, s.chosen)
			s.emitted = append(s.emitted, emission{at: s.nodes, sections: picked})
		} else {
			s.explore(depth + 1)
		}
		s.chosen = s.chosen[:len(s.chosen)-1]
		s.accepted = s.accepted[:mark]
		if s.partial {
			return
		}
	}
}

// sharedBudgetSpent consults the cross-branch budget every budgetCheckInterval nodes. The nodes
// counted by earlier branches only grow, so a true answer is final.
func (s *searchState) sharedBudgetSpent() bool {
	if s.exhausted == nil || s.nodes%budgetCheckInterval != 0 {
		return false
	}
	return s.exhausted(s.nodes)
}
