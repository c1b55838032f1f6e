package progression

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
)

func TestSamplePlan(t *testing.T) {
	cases := map[int][]int{
		1: {10},
		2: {5, 5},
		3: {3, 4, 3},
		4: {2, 3, 3, 2},
		5: {2, 2, 2, 2, 2},
	}
	for n, want := range cases {
		got := SamplePlan(n)
		if len(got) != len(want) {
			t.Fatalf("SamplePlan(%d): want=%v got=%v", n, want, got)
		}
		total := 0
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("SamplePlan(%d): want=%v got=%v", n, want, got)
			}
			total += got[i]
		}
		if total != DiagnosticSize {
			t.Fatalf("SamplePlan(%d): total want=%d got=%d", n, DiagnosticSize, total)
		}
	}
	if SamplePlan(0) != nil {
		t.Fatalf("SamplePlan(0): want nil")
	}
	total := 0
	for _, v := range SamplePlan(12) {
		total += v
	}
	if total != DiagnosticSize {
		t.Fatalf("SamplePlan(12): total want=%d got=%d", DiagnosticSize, total)
	}
}

func pool(levelID uuid.UUID, quizzes, perQuiz int) []Candidate {
	var out []Candidate
	for q := 0; q < quizzes; q++ {
		quizID := uuid.New()
		for i := 0; i < perQuiz; i++ {
			out = append(out, Candidate{QuestionID: uuid.New(), QuizID: quizID, LevelID: levelID})
		}
	}
	return out
}

func TestSampleRespectsPlanWithoutRepeats(t *testing.T) {
	l1, l2, l3 := uuid.New(), uuid.New(), uuid.New()
	pools := [][]Candidate{pool(l1, 3, 5), pool(l2, 3, 5), pool(l3, 3, 5)}
	rng := rand.New(rand.NewPCG(1, 2))

	got := Sample(rng, SamplePlan(3), pools)
	if len(got) != DiagnosticSize {
		t.Fatalf("want %d got %d", DiagnosticSize, len(got))
	}
	perLevel := map[uuid.UUID]int{}
	seen := map[uuid.UUID]bool{}
	for _, c := range got {
		if seen[c.QuestionID] {
			t.Fatalf("question %s drawn twice", c.QuestionID)
		}
		seen[c.QuestionID] = true
		perLevel[c.LevelID]++
	}
	if perLevel[l1] != 3 || perLevel[l2] != 4 || perLevel[l3] != 3 {
		t.Fatalf("per-level counts want 3/4/3 got %d/%d/%d", perLevel[l1], perLevel[l2], perLevel[l3])
	}
}

func TestSampleTopsUpWhenALevelRunsDry(t *testing.T) {
	l1, l2, l3 := uuid.New(), uuid.New(), uuid.New()
	pools := [][]Candidate{pool(l1, 1, 1), pool(l2, 2, 5), pool(l3, 2, 5)}
	rng := rand.New(rand.NewPCG(7, 7))

	got := Sample(rng, SamplePlan(3), pools)
	if len(got) != DiagnosticSize {
		t.Fatalf("want %d got %d", DiagnosticSize, len(got))
	}
	count := 0
	for _, c := range got {
		if c.LevelID == l1 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("level 1 has one question, want 1 drawn got %d", count)
	}
}

func TestSampleSmallPool(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	got := Sample(rng, SamplePlan(1), [][]Candidate{pool(uuid.New(), 1, 4)})
	if len(got) != 4 {
		t.Fatalf("want every available question (4) got %d", len(got))
	}
}

func TestWithNotSure(t *testing.T) {
	got := WithNotSure([]string{"a", "b"})
	if len(got) != 3 || got[2] != NotSureOption {
		t.Fatalf("want Not sure appended got %v", got)
	}
	got = WithNotSure([]string{"a", NotSureOption})
	if len(got) != 2 {
		t.Fatalf("want no duplicate got %v", got)
	}
}

func TestAssignLevel(t *testing.T) {
	levels := []LevelRef{{ID: uuid.New(), Order: 3}, {ID: uuid.New(), Order: 1}, {ID: uuid.New(), Order: 2}}
	byOrder := map[int]uuid.UUID{}
	for _, l := range levels {
		byOrder[l.Order] = l.ID
	}
	cases := []struct {
		correct int
		order   int
	}{
		{10, 3}, {9, 3}, {8, 3}, {7, 2}, {4, 2}, {3, 1}, {0, 1},
	}
	for _, tc := range cases {
		got, ok := AssignLevel(DiagnosticScore(tc.correct), levels)
		if !ok || got.ID != byOrder[tc.order] {
			t.Fatalf("correct=%d: want order %d got %+v", tc.correct, tc.order, got)
		}
	}
	if _, ok := AssignLevel(1, nil); ok {
		t.Fatalf("no levels: want false")
	}

	below := LevelsAtOrBelow(levels, LevelRef{Order: 2})
	if len(below) != 2 || below[0].Order != 1 || below[1].Order != 2 {
		t.Fatalf("LevelsAtOrBelow: got %+v", below)
	}
}
