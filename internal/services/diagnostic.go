package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/data/repos"
	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/learning/progression"
	"github.com/yungbote/rejap-backend/internal/observability"
	"github.com/yungbote/rejap-backend/internal/platform/apierr"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type DiagnosticQuestion struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Options  []string  `json:"options"`
}

type DiagnosticAnswer struct {
	QuestionID uuid.UUID
	Answer     string
}

type PlacementResult struct {
	Score          float64   `json:"score"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	AssignedLevel  string    `json:"assignedLevel"`
	LevelID        uuid.UUID `json:"levelId"`
}

type DiagnosticService interface {
	// Questions samples the placement test across levels. Answer keys are
	// never included.
	Questions(ctx context.Context) ([]DiagnosticQuestion, error)
	// Submit scores the placement test and opens every level up to the
	// assigned one. Unlock state only ever grows.
	Submit(ctx context.Context, userID uuid.UUID, answers []DiagnosticAnswer) (*PlacementResult, error)
}

type diagnosticService struct {
	db          *gorm.DB
	log         *logger.Logger
	users       repos.UserRepo
	levels      repos.LevelRepo
	modules     repos.ModuleRepo
	quizzes     repos.QuizRepo
	questions   repos.QuizQuestionRepo
	moduleProg  repos.ModuleProgressRepo
	levelStatus repos.LevelStatusRepo

	mu  sync.Mutex
	rng *rand.Rand
}

type DiagnosticDeps struct {
	Users       repos.UserRepo
	Levels      repos.LevelRepo
	Modules     repos.ModuleRepo
	Quizzes     repos.QuizRepo
	Questions   repos.QuizQuestionRepo
	ModuleProg  repos.ModuleProgressRepo
	LevelStatus repos.LevelStatusRepo
	// Rand overrides the sampler's source; nil seeds from the clock.
	Rand *rand.Rand
}

func NewDiagnosticService(db *gorm.DB, baseLog *logger.Logger, deps DiagnosticDeps) DiagnosticService {
	rng := deps.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &diagnosticService{
		db:          db,
		log:         baseLog.With("service", "DiagnosticService"),
		users:       deps.Users,
		levels:      deps.Levels,
		modules:     deps.Modules,
		quizzes:     deps.Quizzes,
		questions:   deps.Questions,
		moduleProg:  deps.ModuleProg,
		levelStatus: deps.LevelStatus,
		rng:         rng,
	}
}

func (s *diagnosticService) Questions(ctx context.Context) ([]DiagnosticQuestion, error) {
	dbc := dbctx.Context{Ctx: ctx}
	levels, err := s.levels.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	if len(levels) == 0 {
		return []DiagnosticQuestion{}, nil
	}
	levelIDs := make([]uuid.UUID, len(levels))
	levelIdx := make(map[uuid.UUID]int, len(levels))
	for i, l := range levels {
		levelIDs[i] = l.ID
		levelIdx[l.ID] = i
	}

	modules, err := s.modules.ListByLevels(dbc, levelIDs)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	moduleLevel := make(map[uuid.UUID]uuid.UUID, len(modules))
	moduleIDs := make([]uuid.UUID, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
		moduleLevel[m.ID] = m.LevelID
	}
	quizzes, err := s.quizzes.ListByModuleIDs(dbc, moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	quizLevel := make(map[uuid.UUID]uuid.UUID, len(quizzes))
	quizIDs := make([]uuid.UUID, len(quizzes))
	for i, q := range quizzes {
		quizIDs[i] = q.ID
		quizLevel[q.ID] = moduleLevel[q.ModuleID]
	}
	all, err := s.questions.ListByQuizIDs(dbc, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	pools := make([][]progression.Candidate, len(levels))
	byID := make(map[uuid.UUID]*types.QuizQuestion, len(all))
	for _, q := range all {
		lvl := quizLevel[q.QuizID]
		i, ok := levelIdx[lvl]
		if !ok {
			continue
		}
		byID[q.ID] = q
		pools[i] = append(pools[i], progression.Candidate{QuestionID: q.ID, QuizID: q.QuizID, LevelID: lvl})
	}

	s.mu.Lock()
	picks := progression.Sample(s.rng, progression.SamplePlan(len(levels)), pools)
	s.mu.Unlock()

	out := make([]DiagnosticQuestion, 0, len(picks))
	for _, p := range picks {
		q := byID[p.QuestionID]
		out = append(out, DiagnosticQuestion{
			ID:       q.ID,
			Question: q.Question,
			Options:  progression.WithNotSure(q.Options),
		})
	}
	if len(out) < progression.DiagnosticSize {
		s.log.Warn("diagnostic sample short of questions", "have", len(out), "want", progression.DiagnosticSize)
	}
	return out, nil
}

func (s *diagnosticService) Submit(ctx context.Context, userID uuid.UUID, answers []DiagnosticAnswer) (res *PlacementResult, err error) {
	if userID == uuid.Nil {
		return nil, apierr.Validation("user is required")
	}
	if answers == nil {
		return nil, apierr.Validation("answers are required")
	}
	ctx, span := observability.StartSpan(ctx, "diagnostic.submit", attribute.Int("answers", len(answers)))
	defer func() { observability.EndSpan(span, err) }()

	dbc := dbctx.Context{Ctx: ctx}
	seen := make(map[uuid.UUID]bool, len(answers))
	var ids []uuid.UUID
	given := make(map[uuid.UUID]string, len(answers))
	for _, a := range answers {
		if a.QuestionID == uuid.Nil || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		ids = append(ids, a.QuestionID)
		given[a.QuestionID] = a.Answer
	}
	stored, err := s.questions.GetByIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	correct := 0
	for _, q := range stored {
		if given[q.ID] == q.CorrectAnswer {
			correct++
		}
	}
	correct = min(correct, progression.DiagnosticSize)
	score := progression.DiagnosticScore(correct)

	levels, err := s.levels.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	refs := make([]progression.LevelRef, len(levels))
	byID := make(map[uuid.UUID]*types.Level, len(levels))
	for i, l := range levels {
		refs[i] = progression.LevelRef{ID: l.ID, Title: l.Title, Order: l.Order}
		byID[l.ID] = l
	}
	assigned, ok := progression.AssignLevel(score, refs)
	if !ok {
		return nil, apierr.Invariant("no levels configured for placement")
	}
	open := progression.LevelsAtOrBelow(refs, assigned)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := advanceCurrentLevel(txc, s.users, s.levels, userID, byID[assigned.ID], false); err != nil {
			return err
		}
		levelIDs := make([]uuid.UUID, len(open))
		for i, l := range open {
			levelIDs[i] = l.ID
		}
		if _, err := s.levelStatus.EnsureUnlocked(txc, userID, levelIDs); err != nil {
			return fmt.Errorf("unlock levels: %w", err)
		}
		mods, err := s.modules.ListByLevels(txc, levelIDs)
		if err != nil {
			return fmt.Errorf("list modules: %w", err)
		}
		moduleIDs := make([]uuid.UUID, len(mods))
		for i, m := range mods {
			moduleIDs[i] = m.ID
		}
		if _, err := s.moduleProg.EnsureUnlocked(txc, userID, moduleIDs); err != nil {
			return fmt.Errorf("unlock modules: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.Current().IncPlacement(assigned.Title)
	s.log.Info("diagnostic placed user", "user_id", userID, "score", score, "level", assigned.Title)
	return &PlacementResult{
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: progression.DiagnosticSize,
		AssignedLevel:  assigned.Title,
		LevelID:        assigned.ID,
	}, nil
}
