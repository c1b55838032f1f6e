package progress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type AIFeedbackRepo interface {
	Create(dbc dbctx.Context, rows []*types.AIFeedback) ([]*types.AIFeedback, error)
	GetByAnswerIDs(dbc dbctx.Context, answerIDs []uuid.UUID) ([]*types.AIFeedback, error)
}

type aiFeedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAIFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) AIFeedbackRepo {
	return &aiFeedbackRepo{db: db, log: baseLog.With("repo", "AIFeedbackRepo")}
}

func (r *aiFeedbackRepo) Create(dbc dbctx.Context, rows []*types.AIFeedback) ([]*types.AIFeedback, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.AIFeedback{}, nil
	}
	if err := transaction.WithContext(ctxutil.Default(dbc.Ctx)).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *aiFeedbackRepo) GetByAnswerIDs(dbc dbctx.Context, answerIDs []uuid.UUID) ([]*types.AIFeedback, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AIFeedback
	if len(answerIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctxutil.Default(dbc.Ctx)).
		Where("answer_id IN ?", answerIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
