package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type ModuleProgressRepo interface {
	Get(dbc dbctx.Context, userID, moduleID uuid.UUID) (*types.UserModuleProgress, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserModuleProgress, error)
	ListByUserAndModules(dbc dbctx.Context, userID uuid.UUID, moduleIDs []uuid.UUID) ([]*types.UserModuleProgress, error)
	// RecordScore folds one attempt into the row: progress keeps its maximum,
	// completed only ever turns on and completed_at is written once. The
	// unlocked flag is left alone; a new row starts locked.
	RecordScore(dbc dbctx.Context, userID, moduleID uuid.UUID, score float64, passed bool, at time.Time) (*types.UserModuleProgress, error)
	// EnsureUnlocked returns the module ids whose unlocked flag this call flipped.
	EnsureUnlocked(dbc dbctx.Context, userID uuid.UUID, moduleIDs []uuid.UUID) ([]uuid.UUID, error)
}

type moduleProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleProgressRepo(db *gorm.DB, baseLog *logger.Logger) ModuleProgressRepo {
	return &moduleProgressRepo{db: db, log: baseLog.With("repo", "ModuleProgressRepo")}
}

func (r *moduleProgressRepo) dbx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *moduleProgressRepo) Get(dbc dbctx.Context, userID, moduleID uuid.UUID) (*types.UserModuleProgress, error) {
	var out []*types.UserModuleProgress
	if err := r.dbx(dbc).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *moduleProgressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserModuleProgress, error) {
	var out []*types.UserModuleProgress
	if err := r.dbx(dbc).
		Joins("JOIN module ON module.id = user_module_progress.module_id").
		Joins("JOIN level ON level.id = module.level_id").
		Where("user_module_progress.user_id = ?", userID).
		Order("level.sort_order ASC").
		Order("module.sort_order ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleProgressRepo) ListByUserAndModules(dbc dbctx.Context, userID uuid.UUID, moduleIDs []uuid.UUID) ([]*types.UserModuleProgress, error) {
	var out []*types.UserModuleProgress
	if len(moduleIDs) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).
		Where("user_id = ? AND module_id IN ?", userID, moduleIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleProgressRepo) RecordScore(dbc dbctx.Context, userID, moduleID uuid.UUID, score float64, passed bool, at time.Time) (*types.UserModuleProgress, error) {
	row := &types.UserModuleProgress{
		UserID:    userID,
		ModuleID:  moduleID,
		Progress:  score,
		Completed: passed,
	}
	if passed {
		t := at
		row.CompletedAt = &t
	}
	err := r.dbx(dbc).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"progress":     gorm.Expr("CASE WHEN user_module_progress.progress > excluded.progress THEN user_module_progress.progress ELSE excluded.progress END"),
			"completed":    gorm.Expr("user_module_progress.completed OR excluded.completed"),
			"completed_at": gorm.Expr("COALESCE(user_module_progress.completed_at, excluded.completed_at)"),
			"updated_at":   at,
		}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.Get(dbc, userID, moduleID)
}

func (r *moduleProgressRepo) EnsureUnlocked(dbc dbctx.Context, userID uuid.UUID, moduleIDs []uuid.UUID) ([]uuid.UUID, error) {
	var flipped []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, id := range moduleIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		ok, err := r.unlockOne(dbc, userID, id)
		if err != nil {
			return nil, err
		}
		if ok {
			flipped = append(flipped, id)
		}
	}
	return flipped, nil
}

// unlockOne decides the flip inside the write so concurrent callers see
// exactly one winner.
func (r *moduleProgressRepo) unlockOne(dbc dbctx.Context, userID, moduleID uuid.UUID) (bool, error) {
	ins := r.dbx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
		DoNothing: true,
	}).Create(&types.UserModuleProgress{UserID: userID, ModuleID: moduleID, Unlocked: true})
	if ins.Error != nil {
		return false, ins.Error
	}
	if ins.RowsAffected > 0 {
		return true, nil
	}
	upd := r.dbx(dbc).
		Model(&types.UserModuleProgress{}).
		Where("user_id = ? AND module_id = ? AND unlocked = ?", userID, moduleID, false).
		Updates(map[string]any{"unlocked": true, "updated_at": time.Now().UTC()})
	if upd.Error != nil {
		return false, upd.Error
	}
	return upd.RowsAffected > 0, nil
}
