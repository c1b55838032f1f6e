package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/rejap-backend/internal/domain"
)

func SeedUser(tb testing.TB, db *gorm.DB, subject string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		AuthSubject: subject,
		Email:       subject + "@example.com",
		Name:        "Learner " + subject,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedLevel(tb testing.TB, db *gorm.DB, order int) *types.Level {
	tb.Helper()
	l := &types.Level{
		ID:    uuid.New(),
		Title: fmt.Sprintf("Level %d", order),
		Order: order,
	}
	if err := db.Create(l).Error; err != nil {
		tb.Fatalf("seed level: %v", err)
	}
	return l
}

func SeedModule(tb testing.TB, db *gorm.DB, levelID uuid.UUID, order int) *types.Module {
	tb.Helper()
	m := &types.Module{
		ID:      uuid.New(),
		LevelID: levelID,
		Title:   fmt.Sprintf("Module %d", order),
		Order:   order,
	}
	if err := db.Omit("Level").Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedContentItem(tb testing.TB, db *gorm.DB, moduleID uuid.UUID, order int, title, content string) *types.ContentItem {
	tb.Helper()
	ci := &types.ContentItem{
		ID:       uuid.New(),
		ModuleID: moduleID,
		Title:    title,
		Content:  content,
		Type:     "vocabulary",
		Order:    order,
	}
	if err := db.Create(ci).Error; err != nil {
		tb.Fatalf("seed content item: %v", err)
	}
	return ci
}

func SeedQuiz(tb testing.TB, db *gorm.DB, moduleID uuid.UUID) *types.Quiz {
	tb.Helper()
	q := &types.Quiz{
		ID:       uuid.New(),
		ModuleID: moduleID,
		Title:    "Quiz",
	}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	return q
}

// SeedQuestions writes n questions whose correct answer is "A<order>".
func SeedQuestions(tb testing.TB, db *gorm.DB, quizID uuid.UUID, n int) []*types.QuizQuestion {
	tb.Helper()
	out := make([]*types.QuizQuestion, 0, n)
	for i := 1; i <= n; i++ {
		correct := fmt.Sprintf("A%d", i)
		out = append(out, &types.QuizQuestion{
			ID:            uuid.New(),
			QuizID:        quizID,
			Question:      fmt.Sprintf("Q%d", i),
			Options:       datatypes.NewJSONSlice([]string{correct, "B", "C", "D"}),
			CorrectAnswer: correct,
			Order:         i,
		})
	}
	if n > 0 {
		if err := db.Create(&out).Error; err != nil {
			tb.Fatalf("seed questions: %v", err)
		}
	}
	return out
}

// Curriculum is a seeded level -> module -> quiz tree.
type Curriculum struct {
	Levels    []*types.Level
	Modules   [][]*types.Module
	Quizzes   map[uuid.UUID]*types.Quiz
	Questions map[uuid.UUID][]*types.QuizQuestion
}

// SeedCurriculum creates levels*modulesPerLevel modules, each with a quiz of
// questionsPerQuiz questions and two vocabulary items.
func SeedCurriculum(tb testing.TB, db *gorm.DB, levels, modulesPerLevel, questionsPerQuiz int) *Curriculum {
	tb.Helper()
	c := &Curriculum{
		Quizzes:   map[uuid.UUID]*types.Quiz{},
		Questions: map[uuid.UUID][]*types.QuizQuestion{},
	}
	for li := 1; li <= levels; li++ {
		lvl := SeedLevel(tb, db, li)
		c.Levels = append(c.Levels, lvl)
		var mods []*types.Module
		for mi := 1; mi <= modulesPerLevel; mi++ {
			m := SeedModule(tb, db, lvl.ID, mi)
			SeedContentItem(tb, db, m.ID, 1, "いぬ", "いぬ (inu) - dog")
			SeedContentItem(tb, db, m.ID, 2, "ねこ", "ねこ (neko) - cat")
			q := SeedQuiz(tb, db, m.ID)
			c.Quizzes[m.ID] = q
			c.Questions[m.ID] = SeedQuestions(tb, db, q.ID, questionsPerQuiz)
			mods = append(mods, m)
		}
		c.Modules = append(c.Modules, mods)
	}
	return c
}

// CorrectAnswers returns the answer key for a module in question order.
func (c *Curriculum) CorrectAnswers(moduleID uuid.UUID) []string {
	qs := c.Questions[moduleID]
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.CorrectAnswer
	}
	return out
}
