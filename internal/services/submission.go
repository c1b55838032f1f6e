package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/data/repos"
	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/learning/progression"
	"github.com/yungbote/rejap-backend/internal/observability"
	"github.com/yungbote/rejap-backend/internal/platform/apierr"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

const (
	DefaultFeedbackConcurrency = 4

	defaultRecommendation  = "Great job on completing the quiz! Keep practicing to master the material."
	recommendationSummary  = "The student completed a quiz."
	correctAnswerExplainer = "The correct answer is: "
)

type SubmitInput struct {
	QuizID   uuid.UUID
	ModuleID uuid.UUID
	// Answers are aligned with question order.
	Answers []string
}

type QuestionOutcome struct {
	QuestionID    uuid.UUID `json:"questionId"`
	Correct       bool      `json:"correct"`
	CorrectAnswer string    `json:"correctAnswer"`
	Feedback      *string   `json:"feedback"`
}

type ModuleRefView struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type SubmitResult struct {
	AttemptID          uuid.UUID         `json:"attemptId"`
	Score              float64           `json:"score"`
	Passed             bool              `json:"passed"`
	CorrectCount       int               `json:"correctCount"`
	TotalQuestions     int               `json:"totalQuestions"`
	Results            []QuestionOutcome `json:"results"`
	NextModuleUnlocked *uuid.UUID        `json:"nextModuleUnlocked"`
	LevelPromoted      bool              `json:"levelPromoted"`
	NewLevelUnlocked   *uuid.UUID        `json:"newLevelUnlocked"`
	AIRecommendation   string            `json:"aiRecommendation"`
	WeakAreas          []string          `json:"weakAreas"`
	NextModule         *ModuleRefView    `json:"nextModule"`
}

type SubmissionService interface {
	Submit(ctx context.Context, userID uuid.UUID, in SubmitInput) (*SubmitResult, error)
}

type submissionService struct {
	db          *gorm.DB
	log         *logger.Logger
	content     ContentService
	tutor       TutorService
	progression ProgressionService
	quizzes     repos.QuizRepo
	questions   repos.QuizQuestionRepo
	attempts    repos.QuizAttemptRepo
	answers     repos.UserAnswerRepo
	feedback    repos.AIFeedbackRepo
	moduleProg  repos.ModuleProgressRepo
	concurrency int
	now         func() time.Time
}

type SubmissionDeps struct {
	Content     ContentService
	Tutor       TutorService
	Progression ProgressionService
	Quizzes     repos.QuizRepo
	Questions   repos.QuizQuestionRepo
	Attempts    repos.QuizAttemptRepo
	Answers     repos.UserAnswerRepo
	Feedback    repos.AIFeedbackRepo
	ModuleProg  repos.ModuleProgressRepo
}

func NewSubmissionService(db *gorm.DB, baseLog *logger.Logger, deps SubmissionDeps, feedbackConcurrency int) SubmissionService {
	if feedbackConcurrency <= 0 {
		feedbackConcurrency = DefaultFeedbackConcurrency
	}
	return &submissionService{
		db:          db,
		log:         baseLog.With("service", "SubmissionService"),
		content:     deps.Content,
		tutor:       deps.Tutor,
		progression: deps.Progression,
		quizzes:     deps.Quizzes,
		questions:   deps.Questions,
		attempts:    deps.Attempts,
		answers:     deps.Answers,
		feedback:    deps.Feedback,
		moduleProg:  deps.ModuleProg,
		concurrency: feedbackConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit scores a quiz attempt, records it, explains each wrong answer and
// applies the progression rules. AI failures degrade the response but never
// fail it.
func (s *submissionService) Submit(ctx context.Context, userID uuid.UUID, in SubmitInput) (out *SubmitResult, err error) {
	ctx, span := observability.StartSpan(ctx, "quiz.submit",
		attribute.String("quiz_id", in.QuizID.String()),
		attribute.String("module_id", in.ModuleID.String()),
	)
	defer func() {
		observability.EndSpan(span, err)
		switch {
		case err != nil:
			observability.Current().IncQuizSubmission("error")
		case out.Passed:
			observability.Current().IncQuizSubmission("passed")
		default:
			observability.Current().IncQuizSubmission("failed")
		}
	}()

	if userID == uuid.Nil {
		return nil, apierr.Validation("user is required")
	}
	if in.QuizID == uuid.Nil || in.ModuleID == uuid.Nil {
		return nil, apierr.Validation("quizId and moduleId are required")
	}
	if in.Answers == nil {
		return nil, apierr.Validation("answers are required")
	}

	dbc := dbctx.Context{Ctx: ctx}
	quiz, err := s.quizzes.GetByID(dbc, in.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if quiz == nil {
		return nil, apierr.NotFound("quiz %s not found", in.QuizID)
	}
	if quiz.ModuleID != in.ModuleID {
		return nil, apierr.Validation("quiz %s does not belong to module %s", in.QuizID, in.ModuleID)
	}
	module, err := s.content.GetModuleWithLevel(ctx, in.ModuleID)
	if err != nil {
		if apierr.HasCode(err, apierr.CodeNotFound) {
			return nil, apierr.Invariant("quiz %s points at missing module %s", quiz.ID, in.ModuleID)
		}
		return nil, err
	}
	structure, err := s.content.LevelStructure(ctx, module.LevelID)
	if err != nil {
		return nil, err
	}

	stored, err := s.questions.ListByQuiz(dbc, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	refs := make([]progression.Question, len(stored))
	for i, q := range stored {
		refs[i] = progression.Question{ID: q.ID, CorrectAnswer: q.CorrectAnswer}
	}
	scored := progression.Score(refs, in.Answers)
	at := s.now()

	attempt, answerRows, err := s.recordAttempt(ctx, userID, quiz.ID, scored, at)
	if err != nil {
		return nil, err
	}

	feedbackByQuestion := s.explainIncorrect(ctx, module, stored, scored, answerRows)

	prog, err := s.progression.ApplyAttemptResult(ctx, AttemptOutcome{
		UserID:   userID,
		ModuleID: module.ID,
		Score:    scored.Score,
		Passed:   scored.Passed,
		At:       at,
	}, structure)
	if err != nil {
		return nil, err
	}

	out = &SubmitResult{
		AttemptID:          attempt.ID,
		Score:              scored.Score,
		Passed:             scored.Passed,
		CorrectCount:       scored.CorrectCount,
		TotalQuestions:     scored.TotalQuestions,
		Results:            make([]QuestionOutcome, len(scored.PerQuestion)),
		NextModuleUnlocked: prog.NextModuleUnlocked,
		LevelPromoted:      prog.LevelPromoted,
		NewLevelUnlocked:   prog.NewLevelUnlocked,
	}
	var incorrect []string
	for i, r := range scored.PerQuestion {
		out.Results[i] = QuestionOutcome{
			QuestionID:    r.QuestionID,
			Correct:       r.Correct,
			CorrectAnswer: r.CorrectAnswer,
		}
		if text, ok := feedbackByQuestion[r.QuestionID]; ok {
			t := text
			out.Results[i].Feedback = &t
			incorrect = append(incorrect, text)
		}
	}
	if prog.NextModule != nil {
		out.NextModule = &ModuleRefView{ID: prog.NextModule.ID, Title: prog.NextModule.Title}
	}

	out.AIRecommendation, out.WeakAreas = s.advise(ctx, userID, structure, strings.Join(incorrect, "\n"))
	s.log.Info("quiz submitted",
		"user_id", userID,
		"quiz_id", quiz.ID,
		"score", scored.Score,
		"passed", scored.Passed,
		"level_promoted", prog.LevelPromoted,
	)
	return out, nil
}

func (s *submissionService) recordAttempt(ctx context.Context, userID, quizID uuid.UUID, scored progression.ScoreResult, at time.Time) (*types.UserQuizAttempt, []*types.UserAnswer, error) {
	var (
		attempt *types.UserQuizAttempt
		rows    []*types.UserAnswer
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		snapshot := make([]types.AttemptAnswer, len(scored.PerQuestion))
		for i, r := range scored.PerQuestion {
			snapshot[i] = types.AttemptAnswer{
				QuestionID:    r.QuestionID,
				UserAnswer:    r.UserAnswer,
				CorrectAnswer: r.CorrectAnswer,
				Correct:       r.Correct,
			}
		}
		completedAt := at
		created, err := s.attempts.Create(dbc, &types.UserQuizAttempt{
			UserID:      userID,
			QuizID:      quizID,
			Score:       scored.Score,
			Answers:     snapshot,
			Completed:   true,
			CompletedAt: &completedAt,
		})
		if err != nil {
			return fmt.Errorf("create attempt: %w", err)
		}
		attempt = created

		answers := make([]*types.UserAnswer, len(scored.PerQuestion))
		for i, r := range scored.PerQuestion {
			answers[i] = &types.UserAnswer{
				AttemptID:  created.ID,
				QuestionID: r.QuestionID,
				UserAnswer: r.UserAnswer,
				IsCorrect:  r.Correct,
			}
		}
		rows, err = s.answers.Create(dbc, answers)
		if err != nil {
			return fmt.Errorf("create answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return attempt, rows, nil
}

// explainIncorrect asks the tutor about every wrong answer with bounded
// concurrency, then stores one feedback row per wrong answer. The returned
// map is keyed by question id. Storage failures drop feedback, not the
// submission.
func (s *submissionService) explainIncorrect(
	ctx context.Context,
	module *types.Module,
	questions []*types.QuizQuestion,
	scored progression.ScoreResult,
	answerRows []*types.UserAnswer,
) map[uuid.UUID]string {
	type job struct {
		idx    int
		answer *types.UserAnswer
	}
	var jobs []job
	for i, r := range scored.PerQuestion {
		if !r.Correct && i < len(answerRows) {
			jobs = append(jobs, job{idx: i, answer: answerRows[i]})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	allowed, err := s.content.AllowedContent(ctx, module.ID)
	if err != nil {
		s.log.Warn("allowed content unavailable for feedback", "module_id", module.ID, "error", err)
	}
	levelTitle := ""
	if module.Level != nil {
		levelTitle = module.Level.Title
	}

	texts := make([]string, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, j := range jobs {
		r := scored.PerQuestion[j.idx]
		g.Go(func() error {
			exp := s.tutor.ExplainAnswer(gctx, ExplainInput{
				LevelTitle:     levelTitle,
				Question:       questions[j.idx].Question,
				UserAnswer:     r.UserAnswer,
				CorrectAnswer:  r.CorrectAnswer,
				AllowedContent: allowed,
			})
			texts[i] = exp.Text
			return nil
		})
	}
	_ = g.Wait()

	rows := make([]*types.AIFeedback, len(jobs))
	for i, j := range jobs {
		rows[i] = &types.AIFeedback{
			AnswerID:    j.answer.ID,
			Feedback:    texts[i],
			Explanation: correctAnswerExplainer + scored.PerQuestion[j.idx].CorrectAnswer,
		}
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		created, err := s.feedback.Create(dbc, rows)
		if err != nil {
			return fmt.Errorf("create feedback: %w", err)
		}
		for _, f := range created {
			if err := s.answers.LinkFeedback(dbc, f.AnswerID, f.ID); err != nil {
				return fmt.Errorf("link feedback: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("feedback not stored", "module_id", module.ID, "error", err)
		return nil
	}

	out := make(map[uuid.UUID]string, len(jobs))
	for i, j := range jobs {
		out[scored.PerQuestion[j.idx].QuestionID] = texts[i]
	}
	return out
}

// advise runs the best-effort analysis and recommendation over the level's
// module scores.
func (s *submissionService) advise(ctx context.Context, userID uuid.UUID, structure *LevelStructure, incorrectSummary string) (string, []string) {
	rows, err := s.moduleProg.ListByUserAndModules(dbctx.Context{Ctx: ctx}, userID, structure.ModuleIDs())
	if err != nil {
		s.log.Warn("level progress unavailable for advice", "level_id", structure.Level.ID, "error", err)
		return defaultRecommendation, []string{}
	}
	scores := make([]ModuleScore, 0, len(rows))
	for _, m := range structure.Modules {
		for _, r := range rows {
			if r.ModuleID == m.ID {
				scores = append(scores, ModuleScore{Module: m.Title, Score: r.Progress})
			}
		}
	}
	analysis := s.tutor.AnalyzePerformance(ctx, AnalyzeInput{
		LevelTitle:       structure.Level.Title,
		Scores:           scores,
		IncorrectSummary: incorrectSummary,
	})
	rec := s.tutor.RecommendNextSteps(ctx, RecommendInput{
		LevelTitle: structure.Level.Title,
		Summary:    recommendationSummary,
		WeakAreas:  analysis.WeakAreas,
	})
	weak := analysis.WeakAreas
	if weak == nil {
		weak = []string{}
	}
	return rec.Text, weak
}
