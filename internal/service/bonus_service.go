package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"rewardledger/internal/config"
	"rewardledger/internal/model"
	"rewardledger/internal/repository"
	"rewardledger/pkg/idgen"

	"gorm.io/gorm"
)

var ErrAlreadyClaimed = errors.New("今日奖励已领取")

type BonusService struct {
	db              *gorm.DB
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	now             func() time.Time
}

func NewBonusService(db *gorm.DB, cfg *config.Config) *BonusService {
	return &BonusService{
		db:              db,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		now:             time.Now,
	}
}

type RegisterResult struct {
	Registered bool  `json:"registered"`
	UserID     int64 `json:"user_id"`
}

// Register 注册（用户首次打开应用时调用，可带邀请人ID）
//
// 【关键点】建档、写邀请关系、给邀请人加奖励、加成功计数
// 必须在同一个事务里完成 —— 不允许出现"关系已标记但奖励没到账"
// 或者反过来的中间状态。
// 邀请奖励最多发一次：建档的幂等插入决定 created，
// SetReferrerIfAbsent 的条件更新再兜底一层，重复提交不会重复发奖
func (s *BonusService) Register(ctx context.Context, userID int64, name string, referrerID *int64) (*RegisterResult, error) {
	result := &RegisterResult{UserID: userID}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, created, err := s.accountRepo.GetOrCreate(ctx, tx, userID, name)
		if err != nil {
			return fmt.Errorf("创建账户失败: %w", err)
		}

		if !created {
			// 老用户重复注册是空操作，绝不能再碰邀请奖励
			result.Registered = false
			return nil
		}

		result.Registered = true

		if referrerID == nil || *referrerID == userID {
			return nil
		}

		referrer, err := s.accountRepo.GetByUserIDTx(ctx, tx, *referrerID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				// 邀请人不存在，注册照常完成，只是不发奖
				return nil
			}
			return fmt.Errorf("查询邀请人失败: %w", err)
		}

		ok, err := s.accountRepo.SetReferrerIfAbsent(ctx, tx, userID, *referrerID)
		if err != nil {
			return fmt.Errorf("写入邀请关系失败: %w", err)
		}
		if !ok {
			return nil
		}

		if err := s.accountRepo.Adjust(ctx, tx, *referrerID, s.cfg.Business.RefBonus); err != nil {
			return fmt.Errorf("发放邀请奖励失败: %w", err)
		}

		if err := s.accountRepo.IncrementRefSuccess(ctx, tx, *referrerID); err != nil {
			return fmt.Errorf("更新邀请计数失败: %w", err)
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        *referrerID,
			RefNo:         strconv.FormatInt(userID, 10),
			Amount:        s.cfg.Business.RefBonus,
			Type:          model.TransactionTypeReferralBonus,
			BalanceBefore: referrer.Balance,
			BalanceAfter:  referrer.Balance + s.cfg.Business.RefBonus,
			Remark:        fmt.Sprintf("邀请新用户-%d", userID),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// WatchAd 看广告得积分
// 没有冷却限制：频控由广告SDK侧负责，这里每次调用都加一次奖励
func (s *BonusService) WatchAd(ctx context.Context, userID int64, name string) (int64, error) {
	reward := s.cfg.Business.AdReward

	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, _, err := s.accountRepo.GetOrCreate(ctx, tx, userID, name)
		if err != nil {
			return fmt.Errorf("创建账户失败: %w", err)
		}

		if err := s.accountRepo.Adjust(ctx, tx, userID, reward); err != nil {
			return fmt.Errorf("发放广告奖励失败: %w", err)
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        userID,
			Amount:        reward,
			Type:          model.TransactionTypeAdReward,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance + reward,
			Remark:        "看广告奖励",
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return 0, err
	}

	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	return account.Balance, nil
}

// ClaimDaily 领取每日签到奖励
// 冷却校验和加余额合在一条条件 UPDATE 里（见 AccountRepository.ClaimDaily），
// 两台设备同时点签到也只会加一次
func (s *BonusService) ClaimDaily(ctx context.Context, userID int64) (int64, int64, error) {
	bonus := s.cfg.Business.DailyBonus
	cooldown := time.Duration(s.cfg.Business.DailyCooldownHours) * time.Hour

	var balance int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, _, err := s.accountRepo.GetOrCreate(ctx, tx, userID, "")
		if err != nil {
			return fmt.Errorf("创建账户失败: %w", err)
		}

		claimed, err := s.accountRepo.ClaimDaily(ctx, tx, userID, bonus, s.now(), cooldown)
		if err != nil {
			return fmt.Errorf("领取签到奖励失败: %w", err)
		}
		if !claimed {
			return ErrAlreadyClaimed
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        userID,
			Amount:        bonus,
			Type:          model.TransactionTypeDailyBonus,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance + bonus,
			Remark:        "每日签到奖励",
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		balance = account.Balance + bonus
		return nil
	})

	if err != nil {
		return 0, 0, err
	}

	return balance, bonus, nil
}

// TrackRefClick 记录邀请链接点击
// 邀请人可能还没注册，先建空档保证点击数不丢；只动统计字段，不动余额
func (s *BonusService) TrackRefClick(ctx context.Context, refID int64) error {
	if _, _, err := s.accountRepo.GetOrCreate(ctx, nil, refID, ""); err != nil {
		return fmt.Errorf("创建账户失败: %w", err)
	}
	return s.accountRepo.IncrementRefClicks(ctx, refID)
}
