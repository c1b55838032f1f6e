package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/data/repos"
	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/learning/progression"
	"github.com/yungbote/rejap-backend/internal/platform/apierr"
	"github.com/yungbote/rejap-backend/internal/platform/cache"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

// LevelStructure is a level plus its modules in order.
type LevelStructure struct {
	Level   *types.Level
	Modules []*types.Module
}

func (s *LevelStructure) ModuleRefs() []progression.ModuleRef {
	refs := make([]progression.ModuleRef, 0, len(s.Modules))
	for _, m := range s.Modules {
		refs = append(refs, progression.ModuleRef{ID: m.ID, Title: m.Title, Order: m.Order})
	}
	return progression.SortModules(refs)
}

func (s *LevelStructure) ModuleIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.Modules))
	for _, m := range s.Modules {
		ids = append(ids, m.ID)
	}
	return ids
}

func (s *LevelStructure) Module(id uuid.UUID) *types.Module {
	for _, m := range s.Modules {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// ContentService is the read-only view of the level -> module -> item tree.
type ContentService interface {
	ListLevels(ctx context.Context) ([]*types.Level, error)
	ListModules(ctx context.Context, levelID uuid.UUID) ([]*types.Module, error)
	ListContent(ctx context.Context, moduleID uuid.UUID) ([]*types.ContentItem, error)
	GetModuleWithLevel(ctx context.Context, moduleID uuid.UUID) (*types.Module, error)
	LevelStructure(ctx context.Context, levelID uuid.UUID) (*LevelStructure, error)
	// AllowedContent renders a module's items as "title: content" lines.
	AllowedContent(ctx context.Context, moduleID uuid.UUID) ([]string, error)
	// Invalidate drops every cached content key.
	Invalidate(ctx context.Context) error
}

type contentService struct {
	db      *gorm.DB
	log     *logger.Logger
	levels  repos.LevelRepo
	modules repos.ModuleRepo
	items   repos.ContentItemRepo
	cache   cache.Cache
	ttl     time.Duration
}

func NewContentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	levels repos.LevelRepo,
	modules repos.ModuleRepo,
	items repos.ContentItemRepo,
	c cache.Cache,
	ttl time.Duration,
) ContentService {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &contentService{
		db:      db,
		log:     baseLog.With("service", "ContentService"),
		levels:  levels,
		modules: modules,
		items:   items,
		cache:   c,
		ttl:     ttl,
	}
}

const cacheKeyLevels = "content:levels"

func cacheKeyModules(levelID uuid.UUID) string { return "content:modules:" + levelID.String() }
func cacheKeyItems(moduleID uuid.UUID) string  { return "content:items:" + moduleID.String() }

// cached is a read-through helper; cache failures are logged and ignored.
func cached[T any](ctx context.Context, s *contentService, key string, load func() (T, error)) (T, error) {
	var out T
	hit, err := s.cache.GetJSON(ctx, key, &out)
	if err != nil {
		s.log.Warn("content cache read failed", "key", key, "error", err)
	} else if hit {
		return out, nil
	}
	out, err = load()
	if err != nil {
		return out, err
	}
	if err := s.cache.SetJSON(ctx, key, out, s.ttl); err != nil {
		s.log.Warn("content cache write failed", "key", key, "error", err)
	}
	return out, nil
}

func (s *contentService) ListLevels(ctx context.Context) ([]*types.Level, error) {
	return cached(ctx, s, cacheKeyLevels, func() ([]*types.Level, error) {
		levels, err := s.levels.List(dbctx.Context{Ctx: ctx})
		if err != nil {
			return nil, fmt.Errorf("list levels: %w", err)
		}
		return levels, nil
	})
}

func (s *contentService) ListModules(ctx context.Context, levelID uuid.UUID) ([]*types.Module, error) {
	if levelID == uuid.Nil {
		return nil, apierr.Validation("levelId is required")
	}
	return cached(ctx, s, cacheKeyModules(levelID), func() ([]*types.Module, error) {
		mods, err := s.modules.ListByLevel(dbctx.Context{Ctx: ctx}, levelID)
		if err != nil {
			return nil, fmt.Errorf("list modules: %w", err)
		}
		return mods, nil
	})
}

func (s *contentService) ListContent(ctx context.Context, moduleID uuid.UUID) ([]*types.ContentItem, error) {
	if moduleID == uuid.Nil {
		return nil, apierr.Validation("moduleId is required")
	}
	return cached(ctx, s, cacheKeyItems(moduleID), func() ([]*types.ContentItem, error) {
		items, err := s.items.ListByModule(dbctx.Context{Ctx: ctx}, moduleID)
		if err != nil {
			return nil, fmt.Errorf("list content: %w", err)
		}
		return items, nil
	})
}

func (s *contentService) GetModuleWithLevel(ctx context.Context, moduleID uuid.UUID) (*types.Module, error) {
	m, err := s.modules.GetByID(dbctx.Context{Ctx: ctx}, moduleID)
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}
	if m == nil {
		return nil, apierr.NotFound("module %s not found", moduleID)
	}
	if m.Level == nil {
		return nil, apierr.Invariant("module %s has no level", moduleID)
	}
	return m, nil
}

func (s *contentService) LevelStructure(ctx context.Context, levelID uuid.UUID) (*LevelStructure, error) {
	found, err := s.levels.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{levelID})
	if err != nil {
		return nil, fmt.Errorf("get level: %w", err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, apierr.Invariant("level %s not found", levelID)
	}
	mods, err := s.ListModules(ctx, levelID)
	if err != nil {
		return nil, err
	}
	if len(mods) == 0 {
		return nil, apierr.Invariant("level %s has no modules", levelID)
	}
	sorted := append([]*types.Module(nil), mods...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return &LevelStructure{Level: found[0], Modules: sorted}, nil
}

func (s *contentService) AllowedContent(ctx context.Context, moduleID uuid.UUID) ([]string, error) {
	items, err := s.ListContent(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title+": "+it.Content)
	}
	return out, nil
}

func (s *contentService) Invalidate(ctx context.Context) error {
	keys := []string{cacheKeyLevels}
	levels, err := s.levels.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(levels))
	for _, l := range levels {
		ids = append(ids, l.ID)
		keys = append(keys, cacheKeyModules(l.ID))
	}
	mods, err := s.modules.ListByLevels(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		return err
	}
	for _, m := range mods {
		keys = append(keys, cacheKeyItems(m.ID))
	}
	return s.cache.Delete(ctx, keys...)
}
