// Package progression holds the pure rules that decide scores, unlocks,
// level mastery and diagnostic placement. Nothing here touches storage.
package progression

import (
	"sort"

	"github.com/google/uuid"
)

const (
	PassingScore   = 0.8
	MasteryScore   = 0.8
	MinModuleScore = 0.6
)

// Question is the scoring view of a stored quiz question.
type Question struct {
	ID            uuid.UUID
	CorrectAnswer string
}

type QuestionResult struct {
	QuestionID    uuid.UUID
	UserAnswer    string
	CorrectAnswer string
	Correct       bool
}

type ScoreResult struct {
	Score          float64
	Passed         bool
	CorrectCount   int
	TotalQuestions int
	PerQuestion    []QuestionResult
}

// Score judges answers positionally: answers[i] is compared with
// questions[i] by exact string equality. Missing answers count as wrong,
// extra answers are ignored.
func Score(questions []Question, answers []string) ScoreResult {
	res := ScoreResult{
		TotalQuestions: len(questions),
		PerQuestion:    make([]QuestionResult, len(questions)),
	}
	for i, q := range questions {
		var given string
		if i < len(answers) {
			given = answers[i]
		}
		ok := given == q.CorrectAnswer
		if ok {
			res.CorrectCount++
		}
		res.PerQuestion[i] = QuestionResult{
			QuestionID:    q.ID,
			UserAnswer:    given,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       ok,
		}
	}
	if res.TotalQuestions > 0 {
		res.Score = float64(res.CorrectCount) / float64(res.TotalQuestions)
	}
	res.Passed = res.Score >= PassingScore
	return res
}

// ModuleRef is a module's position inside its level.
type ModuleRef struct {
	ID    uuid.UUID
	Title string
	Order int
}

// SortModules orders modules by Order in place and returns the slice.
func SortModules(mods []ModuleRef) []ModuleRef {
	sort.SliceStable(mods, func(i, j int) bool { return mods[i].Order < mods[j].Order })
	return mods
}

// NextModule returns the module following current in level order.
func NextModule(ordered []ModuleRef, current uuid.UUID) (ModuleRef, bool) {
	for i, m := range ordered {
		if m.ID == current {
			if i+1 < len(ordered) {
				return ordered[i+1], true
			}
			return ModuleRef{}, false
		}
	}
	return ModuleRef{}, false
}

// IsFinalModule compares the module's order with the level's module count.
func IsFinalModule(moduleOrder, moduleCount int) bool {
	return moduleCount > 0 && moduleOrder == moduleCount
}

type MasteryResult struct {
	MasteryScore      float64
	AllModulesPassing bool
	Promote           bool
}

// EvaluateMastery applies the 80/80/60 rule over every module in the
// level. A module without a progress entry counts as 0.
func EvaluateMastery(moduleIDs []uuid.UUID, progressByModule map[uuid.UUID]float64) MasteryResult {
	if len(moduleIDs) == 0 {
		return MasteryResult{}
	}
	sum := 0.0
	all := true
	for _, id := range moduleIDs {
		p := progressByModule[id]
		sum += p
		if p < MinModuleScore {
			all = false
		}
	}
	mean := sum / float64(len(moduleIDs))
	return MasteryResult{
		MasteryScore:      mean,
		AllModulesPassing: all,
		Promote:           mean >= MasteryScore && all,
	}
}

// ShouldEvaluateMastery gates the mastery check on a passed final module.
func ShouldEvaluateMastery(passed bool, moduleOrder, moduleCount int) bool {
	return passed && IsFinalModule(moduleOrder, moduleCount)
}
