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

type LevelRepo interface {
	List(dbc dbctx.Context) ([]*types.Level, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Level, error)
	GetByOrder(dbc dbctx.Context, order int) (*types.Level, error)
	Upsert(dbc dbctx.Context, levels []*types.Level) ([]*types.Level, error)
}

type levelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLevelRepo(db *gorm.DB, baseLog *logger.Logger) LevelRepo {
	return &levelRepo{db: db, log: baseLog.With("repo", "LevelRepo")}
}

func (r *levelRepo) dbx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *levelRepo) List(dbc dbctx.Context) ([]*types.Level, error) {
	var out []*types.Level
	if err := r.dbx(dbc).Order("sort_order ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *levelRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Level, error) {
	var out []*types.Level
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).Where("id IN ?", ids).Order("sort_order ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByOrder returns nil when no level has that order.
func (r *levelRepo) GetByOrder(dbc dbctx.Context, order int) (*types.Level, error) {
	var out []*types.Level
	if err := r.dbx(dbc).Where("sort_order = ?", order).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *levelRepo) Upsert(dbc dbctx.Context, levels []*types.Level) ([]*types.Level, error) {
	if len(levels) == 0 {
		return []*types.Level{}, nil
	}
	err := r.dbx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sort_order"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
	}).Create(&levels).Error
	if err != nil {
		return nil, err
	}
	return levels, nil
}
