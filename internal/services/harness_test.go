package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/data/repos"
	"github.com/yungbote/rejap-backend/internal/data/repos/testutil"
	"github.com/yungbote/rejap-backend/internal/platform/cache"
	"github.com/yungbote/rejap-backend/internal/platform/llm"
)

type harness struct {
	db          *gorm.DB
	cache       *cache.Memory
	content     ContentService
	quiz        QuizService
	progression ProgressionService
	submission  SubmissionService
	diagnostic  DiagnosticService
	users       UserService
	auth        AuthService

	userRepo        repos.UserRepo
	levelRepo       repos.LevelRepo
	moduleRepo      repos.ModuleRepo
	quizRepo        repos.QuizRepo
	questionRepo    repos.QuizQuestionRepo
	attemptRepo     repos.QuizAttemptRepo
	answerRepo      repos.UserAnswerRepo
	feedbackRepo    repos.AIFeedbackRepo
	moduleProgRepo  repos.ModuleProgressRepo
	levelStatusRepo repos.LevelStatusRepo
}

func newHarness(t *testing.T, tutor TutorService) *harness {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	if tutor == nil {
		tutor = NewTutorService(log, llm.NewMockProvider(), 0)
	}
	h := &harness{
		db:              gdb,
		cache:           cache.NewMemory(),
		userRepo:        repos.NewUserRepo(gdb, log),
		levelRepo:       repos.NewLevelRepo(gdb, log),
		moduleRepo:      repos.NewModuleRepo(gdb, log),
		quizRepo:        repos.NewQuizRepo(gdb, log),
		questionRepo:    repos.NewQuizQuestionRepo(gdb, log),
		attemptRepo:     repos.NewQuizAttemptRepo(gdb, log),
		answerRepo:      repos.NewUserAnswerRepo(gdb, log),
		feedbackRepo:    repos.NewAIFeedbackRepo(gdb, log),
		moduleProgRepo:  repos.NewModuleProgressRepo(gdb, log),
		levelStatusRepo: repos.NewLevelStatusRepo(gdb, log),
	}
	itemRepo := repos.NewContentItemRepo(gdb, log)
	h.content = NewContentService(gdb, log, h.levelRepo, h.moduleRepo, itemRepo, h.cache, 0)
	h.quiz = NewQuizService(gdb, log, h.content, tutor, h.quizRepo, h.questionRepo)
	h.progression = NewProgressionService(gdb, log, h.userRepo, h.levelRepo, h.moduleProgRepo, h.levelStatusRepo)
	h.submission = NewSubmissionService(gdb, log, SubmissionDeps{
		Content:     h.content,
		Tutor:       tutor,
		Progression: h.progression,
		Quizzes:     h.quizRepo,
		Questions:   h.questionRepo,
		Attempts:    h.attemptRepo,
		Answers:     h.answerRepo,
		Feedback:    h.feedbackRepo,
		ModuleProg:  h.moduleProgRepo,
	}, 2)
	h.diagnostic = NewDiagnosticService(gdb, log, DiagnosticDeps{
		Users:       h.userRepo,
		Levels:      h.levelRepo,
		Modules:     h.moduleRepo,
		Quizzes:     h.quizRepo,
		Questions:   h.questionRepo,
		ModuleProg:  h.moduleProgRepo,
		LevelStatus: h.levelStatusRepo,
	})
	h.users = NewUserService(gdb, log, h.userRepo, h.levelRepo, h.moduleRepo, h.moduleProgRepo, h.levelStatusRepo)
	h.auth = NewAuthService(log, h.users, "test-secret", "rejap-test")
	return h
}

// fakeTutor returns canned quizzes and counts every call.
type fakeTutor struct {
	mu        sync.Mutex
	quiz      []GeneratedQuestion
	quizErr   error
	onQuiz    func()
	quizCalls atomic.Int32
	explains  atomic.Int32
}

func validQuiz() []GeneratedQuestion {
	out := make([]GeneratedQuestion, QuizQuestionCount)
	for i := range out {
		correct := fmt.Sprintf("いぬ-%d", i+1)
		out[i] = GeneratedQuestion{
			Question:      fmt.Sprintf("What does question %d mean?", i+1),
			Options:       []string{correct, "ねこ", "とり", "さかな"},
			CorrectAnswer: correct,
		}
	}
	return out
}

func (f *fakeTutor) GenerateQuiz(context.Context, QuizGenerationInput) ([]GeneratedQuestion, error) {
	f.quizCalls.Add(1)
	f.mu.Lock()
	hook := f.onQuiz
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.quizErr != nil {
		return nil, f.quizErr
	}
	if f.quiz != nil {
		return f.quiz, nil
	}
	return validQuiz(), nil
}

func (f *fakeTutor) ExplainAnswer(_ context.Context, in ExplainInput) Explanation {
	f.explains.Add(1)
	return Explanation{Text: "Remember: " + in.CorrectAnswer}
}

func (f *fakeTutor) AnalyzePerformance(context.Context, AnalyzeInput) Analysis {
	return Analysis{Strengths: []string{"vocabulary"}, WeakAreas: []string{"particles"}}
}

func (f *fakeTutor) RecommendNextSteps(context.Context, RecommendInput) Recommendation {
	return Recommendation{Text: "Review particles."}
}

func answersWithWrong(key []string, wrong ...int) []string {
	out := append([]string(nil), key...)
	for _, i := range wrong {
		out[i] = "wrong"
	}
	return out
}
