package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/rejap-backend/internal/data/repos"
	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/platform/apierr"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

// Identity is what the identity provider vouches for.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type LevelRefView struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Order int       `json:"order"`
}

type LevelStatusView struct {
	*types.UserLevelStatus
	Level *types.Level `json:"level"`
}

type ModuleProgressView struct {
	*types.UserModuleProgress
	Module *types.Module `json:"module"`
}

type MeView struct {
	ID           uuid.UUID         `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	ProfileImage string            `json:"profileImage"`
	CurrentLevel *LevelRefView     `json:"currentLevel"`
	LevelStatus  []LevelStatusView `json:"levelStatus"`
}

type ProgressView struct {
	ModuleProgress []ModuleProgressView `json:"moduleProgress"`
	LevelStatus    []LevelStatusView    `json:"levelStatus"`
}

type ModulePathView struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	Unlocked  bool      `json:"unlocked"`
	Completed bool      `json:"completed"`
	Progress  float64   `json:"progress"`
}

type LevelPathView struct {
	ID        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	Order     int              `json:"order"`
	Unlocked  bool             `json:"unlocked"`
	Completed bool             `json:"completed"`
	Modules   []ModulePathView `json:"modules"`
}

type UserService interface {
	// SyncUser maps an identity subject to a local user, creating it on first
	// sight. No progress rows are created.
	SyncUser(ctx context.Context, id Identity) (*types.User, error)
	Me(ctx context.Context, userID uuid.UUID) (*MeView, error)
	Progress(ctx context.Context, userID uuid.UUID) (*ProgressView, error)
	LearningPath(ctx context.Context, userID uuid.UUID) ([]LevelPathView, error)
}

type userService struct {
	db          *gorm.DB
	log         *logger.Logger
	users       repos.UserRepo
	levels      repos.LevelRepo
	modules     repos.ModuleRepo
	moduleProg  repos.ModuleProgressRepo
	levelStatus repos.LevelStatusRepo
}

func NewUserService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	levels repos.LevelRepo,
	modules repos.ModuleRepo,
	moduleProg repos.ModuleProgressRepo,
	levelStatus repos.LevelStatusRepo,
) UserService {
	return &userService{
		db:          db,
		log:         baseLog.With("service", "UserService"),
		users:       users,
		levels:      levels,
		modules:     modules,
		moduleProg:  moduleProg,
		levelStatus: levelStatus,
	}
}

func (s *userService) SyncUser(ctx context.Context, id Identity) (*types.User, error) {
	subject := strings.TrimSpace(id.Subject)
	if subject == "" {
		return nil, apierr.Validation("identity subject is required")
	}
	u, err := s.users.UpsertBySubject(dbctx.Context{Ctx: ctx}, &types.User{
		AuthSubject:  subject,
		Email:        strings.TrimSpace(id.Email),
		Name:         strings.TrimSpace(id.Name),
		ProfileImage: strings.TrimSpace(id.Picture),
	})
	if err != nil {
		return nil, fmt.Errorf("sync user: %w", err)
	}
	return u, nil
}

func (s *userService) load(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	if userID == uuid.Nil {
		return nil, apierr.Validation("user is required")
	}
	u, err := s.users.GetByID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, apierr.NotFound("user %s not found", userID)
	}
	return u, nil
}

func (s *userService) Me(ctx context.Context, userID uuid.UUID) (*MeView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := s.load(dbc, userID)
	if err != nil {
		return nil, err
	}
	levels, err := s.levels.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	statuses, err := s.levelStatus.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list level status: %w", err)
	}
	byID := indexLevels(levels)

	view := &MeView{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		ProfileImage: u.ProfileImage,
		LevelStatus:  levelStatusViews(statuses, byID),
	}
	view.CurrentLevel = currentLevel(u, statuses, byID)
	return view, nil
}

// currentLevel prefers the stored pointer, then the highest unlocked level
// among status rows. A user with neither has no current level.
func currentLevel(u *types.User, statuses []*types.UserLevelStatus, levels map[uuid.UUID]*types.Level) *LevelRefView {
	if u.CurrentLevelID != nil {
		if l, ok := levels[*u.CurrentLevelID]; ok {
			return &LevelRefView{ID: l.ID, Title: l.Title, Order: l.Order}
		}
	}
	var best *types.Level
	for _, st := range statuses {
		l, ok := levels[st.LevelID]
		if !ok || !st.Unlocked {
			continue
		}
		if best == nil || l.Order > best.Order {
			best = l
		}
	}
	if best == nil {
		return nil
	}
	return &LevelRefView{ID: best.ID, Title: best.Title, Order: best.Order}
}

func (s *userService) Progress(ctx context.Context, userID uuid.UUID) (*ProgressView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.load(dbc, userID); err != nil {
		return nil, err
	}
	levels, err := s.levels.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	byLevel := indexLevels(levels)
	modules, err := s.modules.ListByLevels(dbc, levelIDs(levels))
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	byModule := make(map[uuid.UUID]*types.Module, len(modules))
	for _, m := range modules {
		mod := *m
		mod.Level = byLevel[m.LevelID]
		byModule[m.ID] = &mod
	}

	progress, err := s.moduleProg.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list module progress: %w", err)
	}
	statuses, err := s.levelStatus.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list level status: %w", err)
	}

	view := &ProgressView{
		ModuleProgress: make([]ModuleProgressView, 0, len(progress)),
		LevelStatus:    levelStatusViews(statuses, byLevel),
	}
	for _, p := range progress {
		view.ModuleProgress = append(view.ModuleProgress, ModuleProgressView{UserModuleProgress: p, Module: byModule[p.ModuleID]})
	}
	return view, nil
}

// LearningPath resolves the lock state of every level and module, applying
// the implicit rules: the first level is open without a status row and the
// first module of an open level is open without a progress row.
func (s *userService) LearningPath(ctx context.Context, userID uuid.UUID) ([]LevelPathView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.load(dbc, userID); err != nil {
		return nil, err
	}
	levels, err := s.levels.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	modules, err := s.modules.ListByLevels(dbc, levelIDs(levels))
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	progress, err := s.moduleProg.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list module progress: %w", err)
	}
	statuses, err := s.levelStatus.ListByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list level status: %w", err)
	}

	statusByLevel := make(map[uuid.UUID]*types.UserLevelStatus, len(statuses))
	for _, st := range statuses {
		statusByLevel[st.LevelID] = st
	}
	progByModule := make(map[uuid.UUID]*types.UserModuleProgress, len(progress))
	for _, p := range progress {
		progByModule[p.ModuleID] = p
	}
	modulesByLevel := make(map[uuid.UUID][]*types.Module, len(levels))
	for _, m := range modules {
		modulesByLevel[m.LevelID] = append(modulesByLevel[m.LevelID], m)
	}

	out := make([]LevelPathView, 0, len(levels))
	for _, l := range levels {
		lv := LevelPathView{ID: l.ID, Title: l.Title, Order: l.Order, Modules: []ModulePathView{}}
		if st := statusByLevel[l.ID]; st != nil {
			lv.Unlocked = st.Unlocked
			lv.Completed = st.Completed
		}
		if l.Order == 1 {
			lv.Unlocked = true
		}
		for _, m := range modulesByLevel[l.ID] {
			mv := ModulePathView{ID: m.ID, Title: m.Title, Order: m.Order}
			if p := progByModule[m.ID]; p != nil {
				mv.Unlocked = p.Unlocked
				mv.Completed = p.Completed
				mv.Progress = p.Progress
			}
			if lv.Unlocked && m.Order == 1 {
				mv.Unlocked = true
			}
			lv.Modules = append(lv.Modules, mv)
		}
		out = append(out, lv)
	}
	return out, nil
}

func indexLevels(levels []*types.Level) map[uuid.UUID]*types.Level {
	out := make(map[uuid.UUID]*types.Level, len(levels))
	for _, l := range levels {
		out[l.ID] = l
	}
	return out
}

func levelIDs(levels []*types.Level) []uuid.UUID {
	out := make([]uuid.UUID, len(levels))
	for i, l := range levels {
		out[i] = l.ID
	}
	return out
}

func levelStatusViews(statuses []*types.UserLevelStatus, levels map[uuid.UUID]*types.Level) []LevelStatusView {
	out := make([]LevelStatusView, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, LevelStatusView{UserLevelStatus: st, Level: levels[st.LevelID]})
	}
	return out
}
