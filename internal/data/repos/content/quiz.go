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

type QuizRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Quiz, error)
	GetByModuleID(dbc dbctx.Context, moduleID uuid.UUID) (*types.Quiz, error)
	ListByModuleIDs(dbc dbctx.Context, moduleIDs []uuid.UUID) ([]*types.Quiz, error)
	ListWithoutQuestions(dbc dbctx.Context, limit int) ([]*types.Quiz, error)
	Upsert(dbc dbctx.Context, quizzes []*types.Quiz) ([]*types.Quiz, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

func (r *quizRepo) dbx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *quizRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Quiz, error) {
	return r.first(r.dbx(dbc).Where("id = ?", id))
}

func (r *quizRepo) GetByModuleID(dbc dbctx.Context, moduleID uuid.UUID) (*types.Quiz, error) {
	return r.first(r.dbx(dbc).Where("module_id = ?", moduleID))
}

func (r *quizRepo) first(q *gorm.DB) (*types.Quiz, error) {
	var out []*types.Quiz
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *quizRepo) ListByModuleIDs(dbc dbctx.Context, moduleIDs []uuid.UUID) ([]*types.Quiz, error) {
	var out []*types.Quiz
	if len(moduleIDs) == 0 {
		return out, nil
	}
	if err := r.dbx(dbc).Where("module_id IN ?", moduleIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListWithoutQuestions returns quizzes that still need population.
func (r *quizRepo) ListWithoutQuestions(dbc dbctx.Context, limit int) ([]*types.Quiz, error) {
	var out []*types.Quiz
	q := r.dbx(dbc).
		Where("NOT EXISTS (SELECT 1 FROM quiz_question qq WHERE qq.quiz_id = quiz.id)").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizRepo) Upsert(dbc dbctx.Context, quizzes []*types.Quiz) ([]*types.Quiz, error) {
	if len(quizzes) == 0 {
		return []*types.Quiz{}, nil
	}
	err := r.dbx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "module_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
	}).Create(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}
