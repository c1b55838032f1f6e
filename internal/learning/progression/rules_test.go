package progression

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func questions(keys ...string) []Question {
	out := make([]Question, len(keys))
	for i, k := range keys {
		out[i] = Question{ID: uuid.New(), CorrectAnswer: k}
	}
	return out
}

func TestScorePositional(t *testing.T) {
	qs := questions("a", "b", "c", "d", "e")

	cases := []struct {
		name    string
		answers []string
		score   float64
		passed  bool
		correct int
	}{
		{"three right two wrong", []string{"a", "b", "c", "x", "y"}, 0.6, false, 3},
		{"all right", []string{"a", "b", "c", "d", "e"}, 1.0, true, 5},
		{"exactly passing", []string{"a", "b", "c", "d", "x"}, 0.8, true, 4},
		{"case sensitive", []string{"A", "b", "c", "d", "e"}, 0.8, true, 4},
		{"no trimming", []string{" a", "b", "c", "d", "e"}, 0.8, true, 4},
		{"right answers wrong order", []string{"b", "a", "c", "d", "e"}, 0.6, false, 3},
		{"short answer list", []string{"a", "b"}, 0.4, false, 2},
		{"extra answers ignored", []string{"a", "b", "c", "d", "e", "f"}, 1.0, true, 5},
	}
	for _, tc := range cases {
		got := Score(qs, tc.answers)
		if math.Abs(got.Score-tc.score) > 1e-9 || got.Passed != tc.passed || got.CorrectCount != tc.correct {
			t.Fatalf("%s: want=%v/%v/%d got=%v/%v/%d", tc.name, tc.score, tc.passed, tc.correct, got.Score, got.Passed, got.CorrectCount)
		}
		if len(got.PerQuestion) != len(qs) {
			t.Fatalf("%s: per-question length want=%d got=%d", tc.name, len(qs), len(got.PerQuestion))
		}
		for i, pq := range got.PerQuestion {
			if pq.QuestionID != qs[i].ID {
				t.Fatalf("%s: result %d mapped to wrong question", tc.name, i)
			}
		}
	}
}

func TestScoreEmptyQuiz(t *testing.T) {
	got := Score(nil, []string{"a"})
	if got.Score != 0 || got.Passed || got.TotalQuestions != 0 {
		t.Fatalf("empty quiz: want 0/false/0 got %+v", got)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	qs := questions("a", "b", "c")
	answers := []string{"a", "x", "c"}
	first := Score(qs, answers)
	for i := 0; i < 20; i++ {
		again := Score(qs, answers)
		if again.Score != first.Score || again.Passed != first.Passed {
			t.Fatalf("iteration %d diverged: %+v vs %+v", i, again, first)
		}
	}
}

func TestNextModuleAndFinal(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	mods := SortModules([]ModuleRef{{ID: c, Order: 3}, {ID: a, Order: 1}, {ID: b, Order: 2}})

	next, ok := NextModule(mods, a)
	if !ok || next.ID != b {
		t.Fatalf("NextModule(a): want b got %v,%v", next.ID, ok)
	}
	if _, ok := NextModule(mods, c); ok {
		t.Fatalf("NextModule(c): want none")
	}
	if _, ok := NextModule(mods, uuid.New()); ok {
		t.Fatalf("NextModule(unknown): want none")
	}
	if !IsFinalModule(3, 3) || IsFinalModule(2, 3) || IsFinalModule(0, 0) {
		t.Fatalf("IsFinalModule: unexpected result")
	}
	if ShouldEvaluateMastery(false, 3, 3) || !ShouldEvaluateMastery(true, 3, 3) || ShouldEvaluateMastery(true, 2, 3) {
		t.Fatalf("ShouldEvaluateMastery: unexpected result")
	}
}

func TestEvaluateMastery(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	with := func(vals ...float64) map[uuid.UUID]float64 {
		m := map[uuid.UUID]float64{}
		for i, v := range vals {
			m[ids[i]] = v
		}
		return m
	}

	cases := []struct {
		name    string
		prog    map[uuid.UUID]float64
		promote bool
		floor   bool
	}{
		{"floor and mean both fail", with(0.9, 0.9, 0.55), false, false},
		{"uniform 0.85 promotes", with(0.85, 0.85, 0.85), true, true},
		{"mean fails with floor ok", with(0.7, 0.8, 0.8), false, true},
		{"floor fails with mean ok", with(1.0, 1.0, 0.5), false, false},
		{"unattempted module counts as zero", with(1.0, 1.0), false, false},
	}
	for _, tc := range cases {
		got := EvaluateMastery(ids, tc.prog)
		if got.Promote != tc.promote || got.AllModulesPassing != tc.floor {
			t.Fatalf("%s: want promote=%v floor=%v got %+v", tc.name, tc.promote, tc.floor, got)
		}
	}
	if got := EvaluateMastery(nil, nil); got.Promote {
		t.Fatalf("empty level must not promote")
	}
}
