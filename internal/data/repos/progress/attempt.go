package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

// QuizAttemptRepo is append-only; there is no update path.
type QuizAttemptRepo interface {
	Create(dbc dbctx.Context, attempt *types.UserQuizAttempt) (*types.UserQuizAttempt, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserQuizAttempt, error)
	ListByUserAndQuiz(dbc dbctx.Context, userID, quizID uuid.UUID) ([]*types.UserQuizAttempt, error)
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return &quizAttemptRepo{db: db, log: baseLog.With("repo", "QuizAttemptRepo")}
}

func (r *quizAttemptRepo) dbx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *quizAttemptRepo) Create(dbc dbctx.Context, attempt *types.UserQuizAttempt) (*types.UserQuizAttempt, error) {
	if err := r.dbx(dbc).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *quizAttemptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserQuizAttempt, error) {
	var out []*types.UserQuizAttempt
	if err := r.dbx(dbc).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *quizAttemptRepo) ListByUserAndQuiz(dbc dbctx.Context, userID, quizID uuid.UUID) ([]*types.UserQuizAttempt, error) {
	var out []*types.UserQuizAttempt
	if err := r.dbx(dbc).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
