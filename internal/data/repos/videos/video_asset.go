package videos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/darisni/darisni-backend/internal/domain"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
)

type VideoAssetRepo interface {
	Create(dbc dbctx.Context, assets []*types.VideoAsset) ([]*types.VideoAsset, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VideoAsset, error)
	List(dbc dbctx.Context, subject string) ([]*types.VideoAsset, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error
	// IncrementViewCount adds delta to the stored counter in one statement.
	// Callers treat it as fire-and-forget.
	IncrementViewCount(dbc dbctx.Context, id uuid.UUID, delta int64) error
	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type videoAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoAssetRepo(db *gorm.DB, baseLog *logger.Logger) VideoAssetRepo {
	repoLog := baseLog.With("repo", "VideoAssetRepo")
	return &videoAssetRepo{db: db, log: repoLog}
}

func (r *videoAssetRepo) Create(dbc dbctx.Context, assets []*types.VideoAsset) ([]*types.VideoAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(assets) == 0 {
		return []*types.VideoAsset{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *videoAssetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VideoAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.VideoAsset
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Take(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *videoAssetRepo) List(dbc dbctx.Context, subject string) ([]*types.VideoAsset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.VideoAsset
	q := transaction.WithContext(dbc.Ctx).Order("created_at DESC")
	if subject != "" {
		q = q.Where("subject = ?", subject)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoAssetRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(dbc.Ctx).
		Model(&types.VideoAsset{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *videoAssetRepo) IncrementViewCount(dbc dbctx.Context, id uuid.UUID, delta int64) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if delta <= 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Model(&types.VideoAsset{}).
		Where("id = ?", id).
		Update("view_count", gorm.Expr("view_count + ?", delta)).Error
}

func (r *videoAssetRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id = ?", id).
		Delete(&types.VideoAsset{}).Error
}
