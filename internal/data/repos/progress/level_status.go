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

type LevelStatusRepo interface {
	Get(dbc dbctx.Context, userID, levelID uuid.UUID) (*types.UserLevelStatus, error)
	// ListByUser is ordered by level order.
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserLevelStatus, error)
	EnsureUnlocked(dbc dbctx.Context, userID uuid.UUID, levelIDs []uuid.UUID) ([]uuid.UUID, error)
	// MarkCompleted reports whether this call flipped completed to true.
	MarkCompleted(dbc dbctx.Context, userID, levelID uuid.UUID, at time.Time) (bool, error)
}

type levelStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLevelStatusRepo(db *gorm.DB, baseLog *logger.Logger) LevelStatusRepo {
	return &levelStatusRepo{db: db, log: baseLog.With("repo", "LevelStatusRepo")}
}

func (r *levelStatusRepo) dbx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *levelStatusRepo) Get(dbc dbctx.Context, userID, levelID uuid.UUID) (*types.UserLevelStatus, error) {
	var out []*types.UserLevelStatus
	if err := r.dbx(dbc).
		Where("user_id = ? AND level_id = ?", userID, levelID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *levelStatusRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserLevelStatus, error) {
	var out []*types.UserLevelStatus
	if err := r.dbx(dbc).
		Joins("JOIN level ON level.id = user_level_status.level_id").
		Where("user_level_status.user_id = ?", userID).
		Order("level.sort_order ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *levelStatusRepo) EnsureUnlocked(dbc dbctx.Context, userID uuid.UUID, levelIDs []uuid.UUID) ([]uuid.UUID, error) {
	var flipped []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, id := range levelIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		ok, err := r.flip(dbc, &types.UserLevelStatus{UserID: userID, LevelID: id, Unlocked: true},
			"unlocked = ?", map[string]any{"unlocked": true, "updated_at": time.Now().UTC()})
		if err != nil {
			return nil, err
		}
		if ok {
			flipped = append(flipped, id)
		}
	}
	return flipped, nil
}

func (r *levelStatusRepo) MarkCompleted(dbc dbctx.Context, userID, levelID uuid.UUID, at time.Time) (bool, error) {
	t := at
	return r.flip(dbc, &types.UserLevelStatus{
		UserID:      userID,
		LevelID:     levelID,
		Unlocked:    true,
		Completed:   true,
		CompletedAt: &t,
	}, "completed = ?", map[string]any{
		"unlocked":     true,
		"completed":    true,
		"completed_at": gorm.Expr("COALESCE(completed_at, ?)", at),
		"updated_at":   at,
	})
}

// flip inserts row when the user has none for the level, otherwise applies
// set to the existing row only while flag is still false. The row count of
// the write reports the flip, so duplicate concurrent callers never both win.
func (r *levelStatusRepo) flip(dbc dbctx.Context, row *types.UserLevelStatus, flag string, set map[string]any) (bool, error) {
	ins := r.dbx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "level_id"}},
		DoNothing: true,
	}).Create(row)
	if ins.Error != nil {
		return false, ins.Error
	}
	if ins.RowsAffected > 0 {
		return true, nil
	}
	upd := r.dbx(dbc).
		Model(&types.UserLevelStatus{}).
		Where("user_id = ? AND level_id = ?", row.UserID, row.LevelID).
		Where(flag, false).
		Updates(set)
	if upd.Error != nil {
		return false, upd.Error
	}
	return upd.RowsAffected > 0, nil
}
