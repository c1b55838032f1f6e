package seed

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/data/repos"
	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

const quizDescription = "Quiz questions will be generated by AI"

type Result struct {
	Levels  int `json:"levels"`
	Modules int `json:"modules"`
	Items   int `json:"items"`
	Quizzes int `json:"quizzes"`
}

// Invalidator drops cached reads of the content hierarchy.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Seeder struct {
	db      *gorm.DB
	log     *logger.Logger
	levels  repos.LevelRepo
	modules repos.ModuleRepo
	items   repos.ContentItemRepo
	quizzes repos.QuizRepo
	cache   Invalidator
}

func NewSeeder(db *gorm.DB, baseLog *logger.Logger, levels repos.LevelRepo, modules repos.ModuleRepo, items repos.ContentItemRepo, quizzes repos.QuizRepo, cache Invalidator) *Seeder {
	return &Seeder{
		db:      db,
		log:     baseLog.With("service", "CurriculumSeeder"),
		levels:  levels,
		modules: modules,
		items:   items,
		quizzes: quizzes,
		cache:   cache,
	}
}

// Apply upserts the curriculum in one transaction. Rows are keyed by level
// order, (level, module order), (module, item order) and quiz module, so
// re-running with the same input changes nothing but updated_at. Existing
// quiz questions and learner progress are left alone.
func (s *Seeder) Apply(ctx context.Context, c *Curriculum) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("nil curriculum")
	}
	if err := c.Validate(); err != nil {
		return Result{}, err
	}
	var res Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		levelRows := make([]*types.Level, 0, len(c.Levels))
		for _, l := range c.Levels {
			levelRows = append(levelRows, &types.Level{Title: l.Title, Description: l.Description, Order: l.Order})
		}
		if _, err := s.levels.Upsert(dbc, levelRows); err != nil {
			return fmt.Errorf("upsert levels: %w", err)
		}
		res.Levels = len(levelRows)

		// Upsert keeps the existing primary key on conflict, so ids are re-read.
		stored, err := s.levels.List(dbc)
		if err != nil {
			return fmt.Errorf("reload levels: %w", err)
		}
		levelByOrder := make(map[int]*types.Level, len(stored))
		for _, l := range stored {
			levelByOrder[l.Order] = l
		}

		for _, l := range c.Levels {
			level := levelByOrder[l.Order]
			if level == nil {
				return fmt.Errorf("level %d missing after upsert", l.Order)
			}
			if err := s.applyModules(dbc, level, l.Modules, &res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("content cache not invalidated after seed", "error", err)
		}
	}
	s.log.Info("curriculum seeded", "levels", res.Levels, "modules", res.Modules, "items", res.Items, "quizzes", res.Quizzes)
	return res, nil
}

func (s *Seeder) applyModules(dbc dbctx.Context, level *types.Level, specs []ModuleSpec, res *Result) error {
	if len(specs) == 0 {
		return nil
	}
	rows := make([]*types.Module, 0, len(specs))
	for _, m := range specs {
		rows = append(rows, &types.Module{LevelID: level.ID, Title: m.Title, Description: m.Description, Order: m.Order})
	}
	if _, err := s.modules.Upsert(dbc, rows); err != nil {
		return fmt.Errorf("upsert modules of level %d: %w", level.Order, err)
	}
	res.Modules += len(rows)

	stored, err := s.modules.ListByLevel(dbc, level.ID)
	if err != nil {
		return fmt.Errorf("reload modules of level %d: %w", level.Order, err)
	}
	byOrder := make(map[int]*types.Module, len(stored))
	for _, m := range stored {
		byOrder[m.Order] = m
	}

	var (
		items   []*types.ContentItem
		quizzes []*types.Quiz
	)
	for _, spec := range specs {
		mod := byOrder[spec.Order]
		if mod == nil {
			return fmt.Errorf("module %d of level %d missing after upsert", spec.Order, level.Order)
		}
		for _, it := range spec.Items {
			items = append(items, &types.ContentItem{
				ModuleID: mod.ID,
				Title:    it.Title,
				Content:  it.Content,
				Type:     it.Type,
				Order:    it.Order,
			})
		}
		quizzes = append(quizzes, &types.Quiz{
			ModuleID:    mod.ID,
			Title:       spec.QuizTitle(),
			Description: quizDescription,
		})
	}
	if _, err := s.items.Upsert(dbc, items); err != nil {
		return fmt.Errorf("upsert content items of level %d: %w", level.Order, err)
	}
	if _, err := s.quizzes.Upsert(dbc, quizzes); err != nil {
		return fmt.Errorf("upsert quizzes of level %d: %w", level.Order, err)
	}
	res.Items += len(items)
	res.Quizzes += len(quizzes)
	return nil
}
