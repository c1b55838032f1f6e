package content

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type ModuleRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Module, error)
	ListByLevel(dbc dbctx.Context, levelID uuid.UUID) ([]*types.Module, error)
	ListByLevels(dbc dbctx.Context, levelIDs []uuid.UUID) ([]*types.Module, error)
	Upsert(dbc dbctx.Context, modules []*types.Module) ([]*types.Module, error)
}

type moduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleRepo(db *gorm.DB, baseLog *logger.Logger) ModuleRepo {
	return &moduleRepo{db: db, log: baseLog.With("repo", "ModuleRepo")}
}

func (r *moduleRepo) dbx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

// GetByID preloads the owning level. Returns nil when absent.
func (r *moduleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Module, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Module
	if err := r.dbx(dbc).Preload("Level").Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *moduleRepo) ListByLevel(dbc dbctx.Context, levelID uuid.UUID) ([]*types.Module, error) {
	var out []*types.Module
	if err := r.dbx(dbc).Preload("Level").Where("level_id = ?", levelID).Order("sort_order ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleRepo) ListByLevels(dbc dbctx.Context, levelIDs []uuid.UUID) ([]*types.Module, error) {
	var out []*types.Module
	if len(levelIDs) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).
		Where("level_id IN ?", levelIDs).
		Order("level_id ASC").
		Order("sort_order ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *moduleRepo) Upsert(dbc dbctx.Context, modules []*types.Module) ([]*types.Module, error) {
	if len(modules) == 0 {
		return []*types.Module{}, nil
	}
	err := r.dbx(dbc).Omit("Level").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level_id"}, {Name: "sort_order"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
	}).Create(&modules).Error
	if err != nil {
		return nil, err
	}
	return modules, nil
}
