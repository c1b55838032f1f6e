package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type UserAnswerRepo interface {
	Create(dbc dbctx.Context, answers []*types.UserAnswer) ([]*types.UserAnswer, error)
	ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.UserAnswer, error)
	LinkFeedback(dbc dbctx.Context, answerID, feedbackID uuid.UUID) error
}

type userAnswerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserAnswerRepo(db *gorm.DB, baseLog *logger.Logger) UserAnswerRepo {
	return &userAnswerRepo{db: db, log: baseLog.With("repo", "UserAnswerRepo")}
}

func (r *userAnswerRepo) Create(dbc dbctx.Context, answers []*types.UserAnswer) ([]*types.UserAnswer, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(answers) == 0 {
		return []*types.UserAnswer{}, nil
	}
	if err := transaction.WithContext(ctxutil.Default(dbc.Ctx)).Create(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *userAnswerRepo) ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.UserAnswer, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UserAnswer
	if err := transaction.WithContext(ctxutil.Default(dbc.Ctx)).
		Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userAnswerRepo) LinkFeedback(dbc dbctx.Context, answerID, feedbackID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx)).
		Model(&types.UserAnswer{}).
		Where("id = ?", answerID).
		Update("ai_feedback_id", feedbackID).Error
}
