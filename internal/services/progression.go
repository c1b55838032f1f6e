package services

import (
	"context"
	"fmt"
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

type AttemptOutcome struct {
	UserID   uuid.UUID
	ModuleID uuid.UUID
	Score    float64
	Passed   bool
	At       time.Time
}

type ProgressionResult struct {
	ModuleProgress *types.UserModuleProgress
	// NextModule is the following module in the level whenever the attempt
	// passed; NextModuleUnlocked is set only when this attempt flipped it.
	NextModule         *types.Module
	NextModuleUnlocked *uuid.UUID
	MasteryEvaluated   bool
	Mastery            progression.MasteryResult
	LevelPromoted      bool
	NewLevelUnlocked   *uuid.UUID
}

type ProgressionService interface {
	ApplyAttemptResult(ctx context.Context, in AttemptOutcome, structure *LevelStructure) (*ProgressionResult, error)
}

type progressionService struct {
	db          *gorm.DB
	log         *logger.Logger
	users       repos.UserRepo
	levels      repos.LevelRepo
	moduleProg  repos.ModuleProgressRepo
	levelStatus repos.LevelStatusRepo
}

func NewProgressionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	levels repos.LevelRepo,
	moduleProg repos.ModuleProgressRepo,
	levelStatus repos.LevelStatusRepo,
) ProgressionService {
	return &progressionService{
		db:          db,
		log:         baseLog.With("service", "ProgressionService"),
		users:       users,
		levels:      levels,
		moduleProg:  moduleProg,
		levelStatus: levelStatus,
	}
}

// ApplyAttemptResult records the attempt's effect on module progress and
// walks the unlock state machine forward. All writes share one transaction.
func (s *progressionService) ApplyAttemptResult(ctx context.Context, in AttemptOutcome, structure *LevelStructure) (*ProgressionResult, error) {
	if structure == nil || structure.Level == nil || len(structure.Modules) == 0 {
		return nil, apierr.Invariant("level structure missing for module %s", in.ModuleID)
	}
	current := structure.Module(in.ModuleID)
	if current == nil {
		return nil, apierr.Invariant("module %s is not part of level %s", in.ModuleID, structure.Level.ID)
	}
	if in.At.IsZero() {
		in.At = time.Now().UTC()
	}

	ctx, span := observability.StartSpan(ctx, "progression.apply",
		attribute.String("module_id", in.ModuleID.String()),
		attribute.Bool("passed", in.Passed),
		attribute.Float64("score", in.Score),
	)
	res := &ProgressionResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		if current.Order == 1 {
			if _, err := s.moduleProg.EnsureUnlocked(dbc, in.UserID, []uuid.UUID{in.ModuleID}); err != nil {
				return fmt.Errorf("open first module: %w", err)
			}
		}
		mp, err := s.moduleProg.RecordScore(dbc, in.UserID, in.ModuleID, in.Score, in.Passed, in.At)
		if err != nil {
			return fmt.Errorf("record module progress: %w", err)
		}
		res.ModuleProgress = mp

		if in.Passed {
			if err := s.unlockNextModule(dbc, in, structure, res); err != nil {
				return err
			}
			if err := s.advancePointer(dbc, in.UserID, structure.Level, true); err != nil {
				return err
			}
		}

		refs := structure.ModuleRefs()
		if progression.ShouldEvaluateMastery(in.Passed, current.Order, len(refs)) {
			if err := s.evaluateMastery(dbc, in, structure, res); err != nil {
				return err
			}
		}
		return nil
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	if res.LevelPromoted {
		observability.Current().IncLevelPromotion(structure.Level.Title)
		s.log.Info("level mastered", "user_id", in.UserID, "level_id", structure.Level.ID, "mastery", res.Mastery.MasteryScore)
	}
	return res, nil
}

func (s *progressionService) unlockNextModule(dbc dbctx.Context, in AttemptOutcome, structure *LevelStructure, res *ProgressionResult) error {
	next, ok := progression.NextModule(structure.ModuleRefs(), in.ModuleID)
	if !ok {
		return nil
	}
	res.NextModule = structure.Module(next.ID)
	flipped, err := s.moduleProg.EnsureUnlocked(dbc, in.UserID, []uuid.UUID{next.ID})
	if err != nil {
		return fmt.Errorf("unlock next module: %w", err)
	}
	if len(flipped) > 0 {
		id := next.ID
		res.NextModuleUnlocked = &id
	}
	return nil
}

func (s *progressionService) evaluateMastery(dbc dbctx.Context, in AttemptOutcome, structure *LevelStructure, res *ProgressionResult) error {
	moduleIDs := structure.ModuleIDs()
	rows, err := s.moduleProg.ListByUserAndModules(dbc, in.UserID, moduleIDs)
	if err != nil {
		return fmt.Errorf("load level progress: %w", err)
	}
	byModule := make(map[uuid.UUID]float64, len(rows))
	for _, r := range rows {
		byModule[r.ModuleID] = r.Progress
	}
	res.MasteryEvaluated = true
	res.Mastery = progression.EvaluateMastery(moduleIDs, byModule)
	if !res.Mastery.Promote {
		return nil
	}

	flipped, err := s.levelStatus.MarkCompleted(dbc, in.UserID, structure.Level.ID, in.At)
	if err != nil {
		return fmt.Errorf("complete level: %w", err)
	}
	res.LevelPromoted = flipped

	nextLevel, err := s.levels.GetByOrder(dbc, structure.Level.Order+1)
	if err != nil {
		return fmt.Errorf("load next level: %w", err)
	}
	if nextLevel == nil {
		return nil
	}
	unlocked, err := s.levelStatus.EnsureUnlocked(dbc, in.UserID, []uuid.UUID{nextLevel.ID})
	if err != nil {
		return fmt.Errorf("unlock next level: %w", err)
	}
	if len(unlocked) > 0 {
		id := nextLevel.ID
		res.NewLevelUnlocked = &id
	}
	return s.advancePointer(dbc, in.UserID, nextLevel, false)
}

// advancePointer moves the user's current level to target when the
// pointer is unset or points at a lower level. onlyIfUnset limits the move
// to the first-completion case.
func (s *progressionService) advancePointer(dbc dbctx.Context, userID uuid.UUID, target *types.Level, onlyIfUnset bool) error {
	return advanceCurrentLevel(dbc, s.users, s.levels, userID, target, onlyIfUnset)
}

func advanceCurrentLevel(dbc dbctx.Context, users repos.UserRepo, levels repos.LevelRepo, userID uuid.UUID, target *types.Level, onlyIfUnset bool) error {
	u, err := users.GetByID(dbc, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return apierr.NotFound("user %s not found", userID)
	}
	if u.CurrentLevelID != nil {
		if onlyIfUnset || *u.CurrentLevelID == target.ID {
			return nil
		}
		found, err := levels.GetByIDs(dbc, []uuid.UUID{*u.CurrentLevelID})
		if err != nil {
			return fmt.Errorf("load current level: %w", err)
		}
		if len(found) > 0 && found[0].Order >= target.Order {
			return nil
		}
	}
	if err := users.SetCurrentLevel(dbc, userID, target.ID); err != nil {
		return fmt.Errorf("set current level: %w", err)
	}
	return nil
}
