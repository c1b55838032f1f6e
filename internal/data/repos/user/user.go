package user

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

type UserRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByAuthSubject(dbc dbctx.Context, subject string) (*types.User, error)
	// UpsertBySubject creates the user on first sight and refreshes profile
	// fields afterwards. CurrentLevelID is never touched here.
	UpsertBySubject(dbc dbctx.Context, u *types.User) (*types.User, error)
	SetCurrentLevel(dbc dbctx.Context, userID, levelID uuid.UUID) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) dbx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	var out []*types.User
	if err := r.dbx(dbc).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *userRepo) GetByAuthSubject(dbc dbctx.Context, subject string) (*types.User, error) {
	var out []*types.User
	if subject == "" {
		return nil, nil
	}
	if err := r.dbx(dbc).Where("auth_subject = ?", subject).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *userRepo) UpsertBySubject(dbc dbctx.Context, u *types.User) (*types.User, error) {
	err := r.dbx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auth_subject"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "profile_image", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return nil, err
	}
	return r.GetByAuthSubject(dbc, u.AuthSubject)
}

func (r *userRepo) SetCurrentLevel(dbc dbctx.Context, userID, levelID uuid.UUID) error {
	return r.dbx(dbc).
		Model(&types.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"current_level_id": levelID,
			"updated_at":       time.Now().UTC(),
		}).Error
}
