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

type ContentItemRepo interface {
	ListByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.ContentItem, error)
	Upsert(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error)
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return &contentItemRepo{db: db, log: baseLog.With("repo", "ContentItemRepo")}
}

func (r *contentItemRepo) ListByModule(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ContentItem
	if err := transaction.WithContext(ctxutil.Default(dbc.Ctx)).
		Where("module_id = ?", moduleID).
		Order("sort_order ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) Upsert(dbc dbctx.Context, items []*types.ContentItem) ([]*types.ContentItem, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.ContentItem{}, nil
	}
	err := transaction.WithContext(ctxutil.Default(dbc.Ctx)).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "module_id"}, {Name: "sort_order"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "type", "updated_at"}),
	}).Create(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
