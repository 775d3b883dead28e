package sessions

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/darisni/darisni-backend/internal/domain"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
)

// SessionContentRepo reads the admin-owned session catalog. The admin back
// office is the sole writer; this core only ever queries it.
type SessionContentRepo interface {
	GetBySessionNumber(dbc dbctx.Context, subject, grade string, sessionNumber int) (*types.SessionContent, error)
	ListBySubjectGrade(dbc dbctx.Context, subject, grade string) ([]*types.SessionContent, error)
	Create(dbc dbctx.Context, contents []*types.SessionContent) ([]*types.SessionContent, error)
}

type sessionContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionContentRepo(db *gorm.DB, baseLog *logger.Logger) SessionContentRepo {
	repoLog := baseLog.With("repo", "SessionContentRepo")
	return &sessionContentRepo{db: db, log: repoLog}
}

func (r *sessionContentRepo) GetBySessionNumber(dbc dbctx.Context, subject, grade string, sessionNumber int) (*types.SessionContent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.SessionContent
	if err := transaction.WithContext(dbc.Ctx).
		Where("subject = ? AND grade = ? AND session_number = ?", subject, grade, sessionNumber).
		Take(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *sessionContentRepo) ListBySubjectGrade(dbc dbctx.Context, subject, grade string) ([]*types.SessionContent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SessionContent
	if err := transaction.WithContext(dbc.Ctx).
		Where("subject = ? AND grade = ?", subject, grade).
		Order("session_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Create exists for seeding and tests; production writes come from the
// admin collaborator.
func (r *sessionContentRepo) Create(dbc dbctx.Context, contents []*types.SessionContent) ([]*types.SessionContent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(contents) == 0 {
		return []*types.SessionContent{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&contents).Error; err != nil {
		return nil, err
	}
	return contents, nil
}
