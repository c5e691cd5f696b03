package repository

import (
	"context"
	"errors"
	"time"

	"rewardledger/internal/model"

	"gorm.io/gorm"
)

var (
	ErrWithdrawNotFound        = errors.New("提现单不存在")
	ErrAlreadyProcessed        = errors.New("提现单已处理")
	ErrStatusTransitionInvalid = errors.New("提现单状态流转不合法")
)

type WithdrawRepository struct {
	db *gorm.DB
}

func NewWithdrawRepository(db *gorm.DB) *WithdrawRepository {
	return &WithdrawRepository{db: db}
}

func (r *WithdrawRepository) Create(ctx context.Context, tx *gorm.DB, wd *model.WithdrawRequest) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(wd).Error
}

func (r *WithdrawRepository) GetByID(ctx context.Context, id int64) (*model.WithdrawRequest, error) {
	var wd model.WithdrawRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wd).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawNotFound
		}
		return nil, err
	}
	return &wd, nil
}

// UpdateStatus 状态流转，带前置状态条件的 CAS 更新
//
// 【关键点】WHERE 里带上 fromStatus，并发的两次审批只有一次能改成功，
// RowsAffected=0 即说明别人已经先处理过了
func (r *WithdrawRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string, processedAt time.Time) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrStatusTransitionInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.WithdrawRequest{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":       toStatus,
			"processed_at": processedAt,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAlreadyProcessed
	}

	return nil
}

func (r *WithdrawRepository) ListAll(ctx context.Context) ([]*model.WithdrawRequest, error) {
	var wds []*model.WithdrawRequest
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&wds).Error
	return wds, err
}

func (r *WithdrawRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.WithdrawRequest, error) {
	var wds []*model.WithdrawRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&wds).Error
	return wds, err
}

// ListPendingBefore 扫出挂起超过指定时间的提现单（监控告警用）
func (r *WithdrawRepository) ListPendingBefore(ctx context.Context, beforeTime time.Time, limit int) ([]*model.WithdrawRequest, error) {
	var wds []*model.WithdrawRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.WithdrawStatusPending, beforeTime).
		Order("created_at ASC").
		Limit(limit).
		Find(&wds).Error
	return wds, err
}
