package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/data/db"
	"github.com/yungbote/rejap-backend/internal/data/repos"
	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/observability"
	"github.com/yungbote/rejap-backend/internal/platform/apierr"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

// QuestionView is a quiz question without its answer key.
type QuestionView struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Type     string    `json:"type"`
	Options  []string  `json:"options"`
	Order    int       `json:"order"`
}

type QuizView struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	ModuleID    uuid.UUID      `json:"moduleId"`
	Module      *types.Module  `json:"module"`
	Questions   []QuestionView `json:"questions"`
}

type PrewarmResult struct {
	Checked   int `json:"checked"`
	Populated int `json:"populated"`
	Failed    int `json:"failed"`
}

type QuizService interface {
	// GetQuiz returns the module's quiz, populating it through the tutor on
	// first access. Concurrent populations settle on whichever set was
	// persisted first.
	GetQuiz(ctx context.Context, moduleID uuid.UUID) (*QuizView, error)
	// PrewarmEmpty populates up to limit quizzes that have no questions yet.
	PrewarmEmpty(ctx context.Context, limit int) (PrewarmResult, error)
}

type quizService struct {
	db        *gorm.DB
	log       *logger.Logger
	content   ContentService
	tutor     TutorService
	quizzes   repos.QuizRepo
	questions repos.QuizQuestionRepo
	group     singleflight.Group
}

func NewQuizService(
	db *gorm.DB,
	baseLog *logger.Logger,
	content ContentService,
	tutor TutorService,
	quizzes repos.QuizRepo,
	questions repos.QuizQuestionRepo,
) QuizService {
	return &quizService{
		db:        db,
		log:       baseLog.With("service", "QuizService"),
		content:   content,
		tutor:     tutor,
		quizzes:   quizzes,
		questions: questions,
	}
}

func (s *quizService) GetQuiz(ctx context.Context, moduleID uuid.UUID) (*QuizView, error) {
	if moduleID == uuid.Nil {
		return nil, apierr.Validation("moduleId is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	quiz, err := s.quizzes.GetByModuleID(dbc, moduleID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if quiz == nil {
		return nil, apierr.NotFound("quiz not found for module %s", moduleID)
	}
	module, err := s.content.GetModuleWithLevel(ctx, moduleID)
	if err != nil {
		if apierr.HasCode(err, apierr.CodeNotFound) {
			return nil, apierr.Invariant("quiz %s points at missing module %s", quiz.ID, moduleID)
		}
		return nil, err
	}

	qs, err := s.questions.ListByQuiz(dbc, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(qs) == 0 {
		qs, err = s.populate(ctx, quiz, module)
		if err != nil {
			return nil, err
		}
	}
	return quizView(quiz, module, qs), nil
}

// populate collapses concurrent callers in this process onto one tutor
// call; across processes the (quiz_id, order) unique index decides. The
// shared call outlives any single caller and is bounded by the tutor
// timeout; each caller stops waiting when its own context ends.
func (s *quizService) populate(ctx context.Context, quiz *types.Quiz, module *types.Module) ([]*types.QuizQuestion, error) {
	flight := context.WithoutCancel(ctx)
	ch := s.group.DoChan(quiz.ID.String(), func() (any, error) {
		return s.generateAndStore(flight, quiz, module)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*types.QuizQuestion), nil
	}
}

func (s *quizService) generateAndStore(ctx context.Context, quiz *types.Quiz, module *types.Module) ([]*types.QuizQuestion, error) {
	dbc := dbctx.Context{Ctx: ctx}
	allowed, err := s.content.AllowedContent(ctx, module.ID)
	if err != nil {
		return nil, err
	}
	generated, err := s.tutor.GenerateQuiz(ctx, QuizGenerationInput{
		LevelTitle:     module.Level.Title,
		ModuleTitle:    module.Title,
		AllowedContent: allowed,
	})
	if err != nil {
		observability.Current().IncQuizGeneration("error")
		return nil, err
	}

	rows := make([]*types.QuizQuestion, 0, len(generated))
	for i, g := range generated {
		rows = append(rows, &types.QuizQuestion{
			QuizID:        quiz.ID,
			Question:      g.Question,
			Options:       append([]string(nil), g.Options...),
			CorrectAnswer: g.CorrectAnswer,
			Order:         i + 1,
		})
	}
	if _, err := s.questions.Create(dbc, rows); err != nil {
		if !db.IsUniqueViolation(err) {
			observability.Current().IncQuizGeneration("error")
			return nil, fmt.Errorf("store questions: %w", err)
		}
		observability.Current().IncQuizGeneration("conflict")
		s.log.Info("quiz already populated by a concurrent request; discarding local set", "quiz_id", quiz.ID)
	} else {
		observability.Current().IncQuizGeneration("generated")
		s.log.Info("quiz populated", "quiz_id", quiz.ID, "questions", len(rows))
	}

	persisted, err := s.questions.ListByQuiz(dbc, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("reload questions: %w", err)
	}
	return persisted, nil
}

func (s *quizService) PrewarmEmpty(ctx context.Context, limit int) (PrewarmResult, error) {
	var res PrewarmResult
	if limit <= 0 {
		limit = 50
	}
	empty, err := s.quizzes.ListWithoutQuestions(dbctx.Context{Ctx: ctx}, limit)
	if err != nil {
		return res, fmt.Errorf("list empty quizzes: %w", err)
	}
	for _, quiz := range empty {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Checked++
		if _, err := s.GetQuiz(ctx, quiz.ModuleID); err != nil {
			res.Failed++
			s.log.Warn("quiz prewarm failed", "quiz_id", quiz.ID, "module_id", quiz.ModuleID, "error", err)
			continue
		}
		res.Populated++
	}
	return res, nil
}

func quizView(quiz *types.Quiz, module *types.Module, qs []*types.QuizQuestion) *QuizView {
	view := &QuizView{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		ModuleID:    quiz.ModuleID,
		Module:      module,
		Questions:   make([]QuestionView, 0, len(qs)),
	}
	for _, q := range qs {
		view.Questions = append(view.Questions, QuestionView{
			ID:       q.ID,
			Question: q.Question,
			Type:     "multiple_choice",
			Options:  append([]string(nil), q.Options...),
			Order:    q.Order,
		})
	}
	return view
}
