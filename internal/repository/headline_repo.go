package repository

import (
	"context"
	"errors"

	"rewardledger/internal/model"

	"gorm.io/gorm"
)

type HeadlineRepository struct {
	db *gorm.DB
}

func NewHeadlineRepository(db *gorm.DB) *HeadlineRepository {
	return &HeadlineRepository{db: db}
}

func (r *HeadlineRepository) Create(ctx context.Context, headline *model.Headline) error {
	return r.db.WithContext(ctx).Create(headline).Error
}

// GetLatest 取最新一条公告，一条都没有时返回 nil
func (r *HeadlineRepository) GetLatest(ctx context.Context) (*model.Headline, error) {
	var headline model.Headline
	err := r.db.WithContext(ctx).
		Order("id DESC").
		First(&headline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &headline, nil
}

func (r *HeadlineRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Headline{}).Count(&count).Error
	return count, err
}
