package repository

import (
	"context"
	"errors"
	"time"

	"rewardledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByUserIDTx 事务内读取，供多步变更在同一事务里取账户快照
func (r *AccountRepository) GetByUserIDTx(ctx context.Context, tx *gorm.DB, userID int64) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetOrCreate 按用户ID取账户，不存在则创建（首次接触即建档）
//
// 【关键点】幂等性靠 user_id 唯一索引 + ON CONFLICT DO NOTHING 保证：
// 并发调用最多只有一个 INSERT 生效，重复调用绝不会重置余额、
// 邀请关系或签到时间。返回值 created 表示本次调用是否真正建了新账户，
// 邀请奖励只在 created=true 时发放。
// 已存在的账户只允许补充昵称，其余字段一律不动。
// 邀请人字段不在这里写，唯一入口是 SetReferrerIfAbsent。
func (r *AccountRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, userID int64, name string) (*model.Account, bool, error) {
	if tx == nil {
		tx = r.db
	}

	newAccount := &model.Account{
		UserID:  userID,
		Name:    name,
		Balance: 0,
	}

	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(newAccount)
	if result.Error != nil {
		return nil, false, result.Error
	}

	created := result.RowsAffected == 1

	var account model.Account
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		return nil, false, err
	}

	// 老账户允许补充昵称，仅此而已
	if !created && name != "" && account.Name != name {
		err = tx.WithContext(ctx).
			Model(&model.Account{}).
			Where("user_id = ?", userID).
			Update("name", name).Error
		if err != nil {
			return nil, false, err
		}
		account.Name = name
	}

	return &account, created, nil
}

// Adjust 调整余额，delta 可正可负
//
// 【关键点】扣减必须是一条带条件的 UPDATE（balance >= ?），
// 校验和写入在数据库层原子完成。绝不能在应用层"先读后写"，
// 否则并发下会丢更新或者把余额扣成负数。
func (r *AccountRepository) Adjust(ctx context.Context, tx *gorm.DB, userID int64, delta int64) error {
	if tx == nil {
		tx = r.db
	}

	query := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ?", userID)

	if delta < 0 {
		query = query.Where("balance >= ?", -delta)
	}

	result := query.Updates(map[string]interface{}{
		"balance": gorm.Expr("balance + ?", delta),
		"version": gorm.Expr("version + 1"),
	})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// 区分是账户不存在还是余额不足
		account, err := r.GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if account.Balance < -delta {
			return ErrBalanceNotEnough
		}
		return ErrAccountNotFound
	}

	return nil
}

// SetReferrerIfAbsent 仅在邀请人字段为空时写入（禁止自荐）
// 返回 true 表示本次写入生效，调用方可以继续给邀请人发奖励；
// 返回 false 表示邀请关系已存在或参数非法，奖励不得重复发放
func (r *AccountRepository) SetReferrerIfAbsent(ctx context.Context, tx *gorm.DB, userID, referrerID int64) (bool, error) {
	if userID == referrerID {
		return false, nil
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ? AND referrer IS NULL", userID).
		Update("referrer", referrerID)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// ClaimDaily 领取每日签到奖励
//
// 【关键点】这是整个系统最典型的竞态：两台设备同时点签到，
// 两边都读到"上次签到已超过24小时"，各自加一遍奖励。
// 解决办法是把 检查+盖时间戳+加余额 合成一条条件 UPDATE，
// 以 last_daily_at 为判断条件，数据库保证只有一条能生效。
// 返回 true 表示领取成功，false 表示冷却中
func (r *AccountRepository) ClaimDaily(ctx context.Context, tx *gorm.DB, userID int64, bonus int64, now time.Time, cooldown time.Duration) (bool, error) {
	if tx == nil {
		tx = r.db
	}

	threshold := now.Add(-cooldown)

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ? AND (last_daily_at IS NULL OR last_daily_at <= ?)", userID, threshold).
		Updates(map[string]interface{}{
			"balance":       gorm.Expr("balance + ?", bonus),
			"last_daily_at": now,
			"version":       gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *AccountRepository) IncrementRefClicks(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ?", userID).
		UpdateColumn("ref_clicks", gorm.Expr("ref_clicks + 1")).Error
}

func (r *AccountRepository) IncrementRefSuccess(ctx context.Context, tx *gorm.DB, userID int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ?", userID).
		UpdateColumn("ref_success", gorm.Expr("ref_success + 1")).Error
}

// ListAll 管理端用，按余额倒序
func (r *AccountRepository) ListAll(ctx context.Context) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Order("balance DESC").
		Find(&accounts).Error
	return accounts, err
}
