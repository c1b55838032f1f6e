package progression

import (
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"
)

const (
	DiagnosticSize   = 10
	NotSureOption    = "Not sure"
	HighPlacementMin = 0.8
	MidPlacementMin  = 0.4
)

// LevelRef is a level's identity plus its order.
type LevelRef struct {
	ID    uuid.UUID
	Title string
	Order int
}

// SamplePlan splits DiagnosticSize across n levels (lowest order first).
// Three levels get 3/4/3; otherwise the split is even with the remainder
// handed to the middle levels first. Every level gets at least one slot
// while n <= DiagnosticSize.
func SamplePlan(n int) []int {
	if n <= 0 {
		return nil
	}
	if n == 3 {
		return []int{3, 4, 3}
	}
	if n > DiagnosticSize {
		plan := make([]int, n)
		for i := 0; i < DiagnosticSize; i++ {
			plan[i*n/DiagnosticSize]++
		}
		return plan
	}
	plan := make([]int, n)
	base, rem := DiagnosticSize/n, DiagnosticSize%n
	for i := range plan {
		plan[i] = base
	}
	for _, idx := range middleOut(n) {
		if rem == 0 {
			break
		}
		plan[idx]++
		rem--
	}
	return plan
}

func middleOut(n int) []int {
	out := make([]int, 0, n)
	lo, hi := (n-1)/2, (n-1)/2+1
	for lo >= 0 || hi < n {
		if lo >= 0 {
			out = append(out, lo)
			lo--
		}
		if hi < n {
			out = append(out, hi)
			hi++
		}
	}
	return out
}

// Candidate is a question eligible for the diagnostic sample.
type Candidate struct {
	QuestionID uuid.UUID
	QuizID     uuid.UUID
	LevelID    uuid.UUID
}

// Sample draws up to DiagnosticSize candidates. pools are keyed by level in
// the same order as plan. Each level draw picks a random quiz then a random
// question from it, without repeats; if a level runs dry the remainder is
// topped up from whatever is left anywhere.
func Sample(rng *rand.Rand, plan []int, pools [][]Candidate) []Candidate {
	remaining := make([][]Candidate, len(pools))
	for i, p := range pools {
		remaining[i] = append([]Candidate(nil), p...)
	}

	var out []Candidate
	for li, want := range plan {
		if li >= len(remaining) {
			break
		}
		for k := 0; k < want && len(remaining[li]) > 0; k++ {
			var pick Candidate
			pick, remaining[li] = drawByQuiz(rng, remaining[li])
			out = append(out, pick)
		}
	}

	var rest []Candidate
	for _, p := range remaining {
		rest = append(rest, p...)
	}
	for len(out) < DiagnosticSize && len(rest) > 0 {
		i := rng.IntN(len(rest))
		out = append(out, rest[i])
		rest = append(rest[:i], rest[i+1:]...)
	}
	return out
}

func drawByQuiz(rng *rand.Rand, pool []Candidate) (Candidate, []Candidate) {
	quizzes := make([]uuid.UUID, 0)
	seen := map[uuid.UUID]bool{}
	for _, c := range pool {
		if !seen[c.QuizID] {
			seen[c.QuizID] = true
			quizzes = append(quizzes, c.QuizID)
		}
	}
	quiz := quizzes[rng.IntN(len(quizzes))]
	var idx []int
	for i, c := range pool {
		if c.QuizID == quiz {
			idx = append(idx, i)
		}
	}
	at := idx[rng.IntN(len(idx))]
	pick := pool[at]
	return pick, append(pool[:at], pool[at+1:]...)
}

// WithNotSure appends the "Not sure" option unless it is already present.
func WithNotSure(options []string) []string {
	out := append([]string(nil), options...)
	for _, o := range options {
		if o == NotSureOption {
			return out
		}
	}
	return append(out, NotSureOption)
}

// DiagnosticScore divides by the fixed sample size, not by answers given.
func DiagnosticScore(correct int) float64 {
	return float64(correct) / float64(DiagnosticSize)
}

// AssignLevel maps a diagnostic score onto the ordered levels:
// >= 0.8 highest, >= 0.4 middle, otherwise lowest.
func AssignLevel(score float64, levels []LevelRef) (LevelRef, bool) {
	if len(levels) == 0 {
		return LevelRef{}, false
	}
	ordered := append([]LevelRef(nil), levels...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	switch {
	case score >= HighPlacementMin:
		return ordered[len(ordered)-1], true
	case score >= MidPlacementMin:
		return ordered[(len(ordered)-1)/2], true
	default:
		return ordered[0], true
	}
}

// LevelsAtOrBelow returns the levels whose order does not exceed target's.
func LevelsAtOrBelow(levels []LevelRef, target LevelRef) []LevelRef {
	var out []LevelRef
	for _, l := range levels {
		if l.Order <= target.Order {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
