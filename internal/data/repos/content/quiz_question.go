package content

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/rejap-backend/internal/domain"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

type QuizQuestionRepo interface {
	ListByQuiz(dbc dbctx.Context, quizID uuid.UUID) ([]*types.QuizQuestion, error)
	ListByQuizIDs(dbc dbctx.Context, quizIDs []uuid.UUID) ([]*types.QuizQuestion, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.QuizQuestion, error)
	CountByQuiz(dbc dbctx.Context, quizID uuid.UUID) (int64, error)
	// Create inserts all rows or none. A (quiz_id, order) conflict comes back
	// as gorm.ErrDuplicatedKey (or the driver's unique-violation error).
	Create(dbc dbctx.Context, questions []*types.QuizQuestion) ([]*types.QuizQuestion, error)
}

type quizQuestionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuizQuestionRepo {
	return &quizQuestionRepo{db: db, log: baseLog.With("repo", "QuizQuestionRepo")}
}

func (r *quizQuestionRepo) dbx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *quizQuestionRepo) ListByQuiz(dbc dbctx.Context, quizID uuid.UUID) ([]*types.QuizQuestion, error) {
	var out []*types.QuizQuestion
	if err := r.dbx(dbc).Where("quiz_id = ?", quizID).Order("sort_order ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizQuestionRepo) ListByQuizIDs(dbc dbctx.Context, quizIDs []uuid.UUID) ([]*types.QuizQuestion, error) {
	var out []*types.QuizQuestion
	if len(quizIDs) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).
		Where("quiz_id IN ?", quizIDs).
		Order("quiz_id ASC").
		Order("sort_order ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizQuestionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.QuizQuestion, error) {
	var out []*types.QuizQuestion
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizQuestionRepo) CountByQuiz(dbc dbctx.Context, quizID uuid.UUID) (int64, error) {
	var n int64
	if err := r.dbx(dbc).Model(&types.QuizQuestion{}).Where("quiz_id = ?", quizID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *quizQuestionRepo) Create(dbc dbctx.Context, questions []*types.QuizQuestion) ([]*types.QuizQuestion, error) {
	if len(questions) == 0 {
		return []*types.QuizQuestion{}, nil
	}
	err := r.dbx(dbc).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&questions).Error
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}
