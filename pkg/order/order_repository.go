package order

import (
	"Go-Order-Intake/entities"
	"context"

	"gorm.io/gorm"
)

type (
	SubmissionRepository interface {
		CreateBatch(ctx context.Context, batch *entities.SubmissionBatch) error
		GetBatches(ctx context.Context, manager string, page, limit int) ([]*entities.SubmissionBatch, int64, error)
		SetImageURL(ctx context.Context, batchID string, position int, url string) error
	}

	submissionRepository struct {
		db *gorm.DB
	}
)

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) CreateBatch(ctx context.Context, batch *entities.SubmissionBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *submissionRepository) GetBatches(ctx context.Context, manager string, page, limit int) ([]*entities.SubmissionBatch, int64, error) {
	var batches []*entities.SubmissionBatch
	var count int64

	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).Model(&entities.SubmissionBatch{})
	if manager != "" {
		query = query.Where("manager = ?", manager)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Offset(offset).Limit(limit).
		Order("created_at desc").
		Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, count, nil
}

func (r *submissionRepository) SetImageURL(ctx context.Context, batchID string, position int, url string) error {
	return r.db.WithContext(ctx).Model(&entities.SubmittedOrder{}).
		Where("batch_id = ? AND position = ?", batchID, position).
		Update("image_url", url).Error
}
