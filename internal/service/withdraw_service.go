package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"rewardledger/internal/config"
	"rewardledger/internal/infrastructure/lock"
	"rewardledger/internal/model"
	"rewardledger/internal/repository"
	"rewardledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var ErrBelowMinimum = errors.New("提现积分低于最低门槛")

type WithdrawService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	withdrawRepo    *repository.WithdrawRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
	now             func() time.Time
}

func NewWithdrawService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *WithdrawService {
	return &WithdrawService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		withdrawRepo:    repository.NewWithdrawRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		now:             time.Now,
	}
}

// pointsToTaka 积分换算塔卡，创建提现单时算一次并落库，之后不再重算
// 用整数"分"做除法，天然向下取整到两位小数
func (s *WithdrawService) pointsToTaka(points int64) float64 {
	cents := points * s.cfg.Business.WithdrawUnitTaka * 100 / s.cfg.Business.WithdrawUnitPoints
	return float64(cents) / 100
}

// Request 发起提现申请
//
// 【关键点】积分在申请时就扣掉（资金预留）：
// 扣款、建提现单、记流水、写 outbox 在一个事务里完成，
// 扣款本身又是带 balance >= ? 条件的 UPDATE，
// 所以并发提交多笔申请也不可能合计透支。
// 用户维度的分布式锁只是减少无谓冲突，正确性不依赖它
func (s *WithdrawService) Request(ctx context.Context, userID int64, amountPoints int64) (*model.WithdrawRequest, error) {
	if amountPoints < s.cfg.Business.MinWithdrawPoints {
		return nil, ErrBelowMinimum
	}

	if s.redisClient != nil {
		wdLock := lock.NewWithdrawLock(s.redisClient, userID)
		if err := wdLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer wdLock.Unlock(ctx)
	}

	account, err := s.accountRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, repository.ErrBalanceNotEnough
		}
		return nil, fmt.Errorf("查询账户失败: %w", err)
	}

	if account.Balance < amountPoints {
		return nil, repository.ErrBalanceNotEnough
	}

	withdrawNo := idgen.GenerateWithdrawNo()
	wd := &model.WithdrawRequest{
		WithdrawNo:   withdrawNo,
		UserID:       userID,
		AmountPoints: amountPoints,
		AmountTaka:   s.pointsToTaka(amountPoints),
		Status:       model.WithdrawStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Adjust(ctx, tx, userID, -amountPoints); err != nil {
			return err
		}

		if err := s.withdrawRepo.Create(ctx, tx, wd); err != nil {
			return fmt.Errorf("创建提现单失败: %w", err)
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        userID,
			RefNo:         withdrawNo,
			Amount:        -amountPoints,
			Type:          model.TransactionTypeWithdraw,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance - amountPoints,
			Remark:        fmt.Sprintf("提现申请-%s", withdrawNo),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.createOutboxEvent(ctx, tx, wd, "提现申请已提交")
	})

	if err != nil {
		return nil, err
	}

	log.Printf("提现申请成功: withdrawNo=%s, userID=%d, points=%d, taka=%.2f",
		withdrawNo, userID, amountPoints, wd.AmountTaka)

	return wd, nil
}

// Approve 审批通过
// 积分在申请时已扣，这里只做状态流转，不再动余额
func (s *WithdrawService) Approve(ctx context.Context, withdrawID int64) error {
	wd, err := s.withdrawRepo.GetByID(ctx, withdrawID)
	if err != nil {
		return err
	}

	if wd.Status != model.WithdrawStatusPending {
		return repository.ErrAlreadyProcessed
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawRepo.UpdateStatus(ctx, tx, withdrawID,
			model.WithdrawStatusPending, model.WithdrawStatusApproved, s.now()); err != nil {
			return err
		}

		wd.Status = model.WithdrawStatusApproved
		return s.createOutboxEvent(ctx, tx, wd, "提现已打款")
	})

	if err != nil {
		return err
	}

	log.Printf("提现审批通过: withdrawNo=%s, userID=%d, points=%d", wd.WithdrawNo, wd.UserID, wd.AmountPoints)
	return nil
}

// Reject 审批拒绝
//
// 【关键点】状态流转和退回积分在同一个事务里：
// 拒绝后的净效果必须是零 —— 申请时扣多少，这里原路退多少。
// 前置状态 CAS 保证已终结的单子不会被二次处理（也就不会重复退款）
func (s *WithdrawService) Reject(ctx context.Context, withdrawID int64) (int64, error) {
	wd, err := s.withdrawRepo.GetByID(ctx, withdrawID)
	if err != nil {
		return 0, err
	}

	if wd.Status != model.WithdrawStatusPending {
		return 0, repository.ErrAlreadyProcessed
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawRepo.UpdateStatus(ctx, tx, withdrawID,
			model.WithdrawStatusPending, model.WithdrawStatusRejected, s.now()); err != nil {
			return err
		}

		account, err := s.accountRepo.GetByUserIDTx(ctx, tx, wd.UserID)
		if err != nil {
			return fmt.Errorf("查询账户失败: %w", err)
		}

		if err := s.accountRepo.Adjust(ctx, tx, wd.UserID, wd.AmountPoints); err != nil {
			return fmt.Errorf("退回积分失败: %w", err)
		}

		trans := &model.AccountTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        wd.UserID,
			RefNo:         wd.WithdrawNo,
			Amount:        wd.AmountPoints,
			Type:          model.TransactionTypeWithdrawRefund,
			BalanceBefore: account.Balance,
			BalanceAfter:  account.Balance + wd.AmountPoints,
			Remark:        fmt.Sprintf("提现被拒退回-%s", wd.WithdrawNo),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		wd.Status = model.WithdrawStatusRejected
		return s.createOutboxEvent(ctx, tx, wd, "提现被拒绝，积分已退回")
	})

	if err != nil {
		return 0, err
	}

	log.Printf("提现已拒绝并退款: withdrawNo=%s, userID=%d, refund=%d", wd.WithdrawNo, wd.UserID, wd.AmountPoints)
	return wd.AmountPoints, nil
}

func (s *WithdrawService) ListAll(ctx context.Context) ([]*model.WithdrawRequest, error) {
	return s.withdrawRepo.ListAll(ctx)
}

func (s *WithdrawService) ListByUserID(ctx context.Context, userID int64) ([]*model.WithdrawRequest, error) {
	return s.withdrawRepo.ListByUserID(ctx, userID)
}

func (s *WithdrawService) createOutboxEvent(ctx context.Context, tx *gorm.DB, wd *model.WithdrawRequest, message string) error {
	payload := map[string]interface{}{
		"withdraw_no":   wd.WithdrawNo,
		"user_id":       wd.UserID,
		"amount_points": wd.AmountPoints,
		"amount_taka":   wd.AmountTaka,
		"status":        wd.Status,
		"message":       message,
		"occurred_at":   s.now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	msg := &model.OutboxMessage{
		MessageKey: wd.WithdrawNo,
		Topic:      s.cfg.Kafka.Topic.WithdrawResult,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}
