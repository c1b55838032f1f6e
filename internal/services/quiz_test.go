package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/rejap-backend/internal/data/repos/testutil"
	"github.com/yungbote/rejap-backend/internal/platform/apierr"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/llm"
)

func TestGetQuizValidationAndNotFound(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	ctx := context.Background()

	if _, err := h.quiz.GetQuiz(ctx, uuid.Nil); !apierr.HasCode(err, apierr.CodeValidation) {
		t.Fatalf("nil module: want validation got=%v", err)
	}
	if _, err := h.quiz.GetQuiz(ctx, uuid.New()); !apierr.HasCode(err, apierr.CodeNotFound) {
		t.Fatalf("unknown module: want not_found got=%v", err)
	}
}

func TestGetQuizReturnsSeededQuestionsWithoutGenerating(t *testing.T) {
	tutor := &fakeTutor{}
	h := newHarness(t, tutor)
	c := testutil.SeedCurriculum(t, h.db, 1, 1, 5)
	mod := c.Modules[0][0]

	view, err := h.quiz.GetQuiz(context.Background(), mod.ID)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if len(view.Questions) != 5 {
		t.Fatalf("questions: want=5 got=%d", len(view.Questions))
	}
	for i, q := range view.Questions {
		if q.Order != i+1 {
			t.Fatalf("order[%d]: want=%d got=%d", i, i+1, q.Order)
		}
		if q.Type != "multiple_choice" {
			t.Fatalf("type: want=multiple_choice got=%q", q.Type)
		}
	}
	if view.Module == nil || view.Module.Level == nil {
		t.Fatalf("module with level expected")
	}
	if n := tutor.quizCalls.Load(); n != 0 {
		t.Fatalf("tutor calls: want=0 got=%d", n)
	}
}

func TestGetQuizPopulatesEmptyQuizOnce(t *testing.T) {
	tutor := &fakeTutor{}
	h := newHarness(t, tutor)
	c := testutil.SeedCurriculum(t, h.db, 1, 1, 0)
	mod := c.Modules[0][0]
	ctx := context.Background()

	first, err := h.quiz.GetQuiz(ctx, mod.ID)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if len(first.Questions) != QuizQuestionCount {
		t.Fatalf("questions: want=%d got=%d", QuizQuestionCount, len(first.Questions))
	}
	second, err := h.quiz.GetQuiz(ctx, mod.ID)
	if err != nil {
		t.Fatalf("GetQuiz again: %v", err)
	}
	if n := tutor.quizCalls.Load(); n != 1 {
		t.Fatalf("tutor calls: want=1 got=%d", n)
	}
	for i := range first.Questions {
		if first.Questions[i].ID != second.Questions[i].ID {
			t.Fatalf("question %d changed between reads", i)
		}
	}
}

func TestGetQuizConcurrentFirstAccessSettlesOnOneSet(t *testing.T) {
	tutor := &fakeTutor{}
	h := newHarness(t, tutor)
	c := testutil.SeedCurriculum(t, h.db, 1, 1, 0)
	mod := c.Modules[0][0]

	const callers = 6
	views := make([]*QuizView, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			views[i], errs[i] = h.quiz.GetQuiz(context.Background(), mod.ID)
		}()
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if len(views[i].Questions) != QuizQuestionCount {
			t.Fatalf("caller %d questions: want=%d got=%d", i, QuizQuestionCount, len(views[i].Questions))
		}
		for j := range views[i].Questions {
			if views[i].Questions[j].ID != views[0].Questions[j].ID {
				t.Fatalf("caller %d saw a different question set", i)
			}
		}
	}
	n, err := h.questionRepo.CountByQuiz(dbctx.Context{Ctx: context.Background()}, c.Quizzes[mod.ID].ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != QuizQuestionCount {
		t.Fatalf("persisted: want=%d got=%d", QuizQuestionCount, n)
	}
}

func TestGetQuizCancelledCallerDoesNotFailSharedGeneration(t *testing.T) {
	tutor := &fakeTutor{}
	h := newHarness(t, tutor)
	c := testutil.SeedCurriculum(t, h.db, 1, 1, 0)
	mod := c.Modules[0][0]

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	tutor.mu.Lock()
	tutor.onQuiz = func() {
		once.Do(func() { close(started) })
		<-release
	}
	tutor.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := h.quiz.GetQuiz(ctx, mod.ID)
		firstErr <- err
	}()
	<-started

	type result struct {
		view *QuizView
		err  error
	}
	second := make(chan result, 1)
	go func() {
		v, err := h.quiz.GetQuiz(context.Background(), mod.ID)
		second <- result{v, err}
	}()

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: want=%v got=%v", context.Canceled, err)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	got := <-second
	if got.err != nil {
		t.Fatalf("waiting caller: %v", got.err)
	}
	if len(got.view.Questions) != QuizQuestionCount {
		t.Fatalf("questions: want=%d got=%d", QuizQuestionCount, len(got.view.Questions))
	}
	n, err := h.questionRepo.CountByQuiz(dbctx.Context{Ctx: context.Background()}, c.Quizzes[mod.ID].ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != QuizQuestionCount {
		t.Fatalf("persisted: want=%d got=%d", QuizQuestionCount, n)
	}
}

func TestGetQuizLostRaceKeepsWinnersSet(t *testing.T) {
	tutor := &fakeTutor{}
	h := newHarness(t, tutor)
	c := testutil.SeedCurriculum(t, h.db, 1, 1, 0)
	mod := c.Modules[0][0]
	quiz := c.Quizzes[mod.ID]

	// Another writer lands its set while our generation is in flight.
	var winners []uuid.UUID
	tutor.onQuiz = func() {
		for _, q := range testutil.SeedQuestions(t, h.db, quiz.ID, QuizQuestionCount) {
			winners = append(winners, q.ID)
		}
	}

	view, err := h.quiz.GetQuiz(context.Background(), mod.ID)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if len(view.Questions) != len(winners) {
		t.Fatalf("questions: want=%d got=%d", len(winners), len(view.Questions))
	}
	for i, q := range view.Questions {
		if q.ID != winners[i] {
			t.Fatalf("question %d: want winner %s got=%s", i, winners[i], q.ID)
		}
	}
}

func TestGetQuizMalformedGenerationLeavesQuizEmpty(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.AddJSON(map[string]any{"questions": validQuiz()[:3]})
	h := newHarness(t, NewTutorService(testutil.Logger(t), provider, 0))
	c := testutil.SeedCurriculum(t, h.db, 1, 1, 0)
	mod := c.Modules[0][0]

	_, err := h.quiz.GetQuiz(context.Background(), mod.ID)
	if !apierr.HasCode(err, apierr.CodeUpstreamGeneration) {
		t.Fatalf("want upstream_generation_error got=%v", err)
	}
	n, err := h.questionRepo.CountByQuiz(dbctx.Context{Ctx: context.Background()}, c.Quizzes[mod.ID].ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("persisted after failure: want=0 got=%d", n)
	}
}

func TestGetQuizProviderErrorIsUpstreamGeneration(t *testing.T) {
	tutor := &fakeTutor{quizErr: apierr.UpstreamGeneration(errors.New("provider down"))}
	h := newHarness(t, tutor)
	c := testutil.SeedCurriculum(t, h.db, 1, 1, 0)

	_, err := h.quiz.GetQuiz(context.Background(), c.Modules[0][0].ID)
	if !apierr.HasCode(err, apierr.CodeUpstreamGeneration) {
		t.Fatalf("want upstream_generation_error got=%v", err)
	}
}

func TestPrewarmEmptyPopulatesOnlyEmptyQuizzes(t *testing.T) {
	tutor := &fakeTutor{}
	h := newHarness(t, tutor)
	testutil.SeedCurriculum(t, h.db, 1, 2, 0)
	other := testutil.SeedModule(t, h.db, testutil.SeedLevel(t, h.db, 2).ID, 1)
	testutil.SeedQuestions(t, h.db, testutil.SeedQuiz(t, h.db, other.ID).ID, 5)

	res, err := h.quiz.PrewarmEmpty(context.Background(), 0)
	if err != nil {
		t.Fatalf("PrewarmEmpty: %v", err)
	}
	if res.Checked != 2 || res.Populated != 2 || res.Failed != 0 {
		t.Fatalf("result: want={2 2 0} got=%+v", res)
	}
	res, err = h.quiz.PrewarmEmpty(context.Background(), 0)
	if err != nil {
		t.Fatalf("PrewarmEmpty again: %v", err)
	}
	if res.Checked != 0 {
		t.Fatalf("second run checked: want=0 got=%d", res.Checked)
	}
}
