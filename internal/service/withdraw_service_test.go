package service

import (
	"context"
	"errors"
	"testing"

	"rewardledger/internal/model"
	"rewardledger/internal/repository"

	"gorm.io/gorm"
)

func seedAccount(t *testing.T, db *gorm.DB, userID, balance int64) {
	t.Helper()
	if err := db.Create(&model.Account{UserID: userID, Balance: balance}).Error; err != nil {
		t.Fatalf("预置账户失败: %v", err)
	}
}

func accountBalance(t *testing.T, db *gorm.DB, userID int64) int64 {
	t.Helper()
	var account model.Account
	if err := db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		t.Fatalf("查询账户失败: %v", err)
	}
	return account.Balance
}

func TestRequestBelowMinimum(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWithdrawService(db, nil, testConfig())
	seedAccount(t, db, 100, 10000)

	_, err := svc.Request(context.Background(), 100, 4999)
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("低于门槛应返回 ErrBelowMinimum，实际 %v", err)
	}
	if got := accountBalance(t, db, 100); got != 10000 {
		t.Fatalf("失败的申请不能动余额，期望 10000 实际 %d", got)
	}
}

func TestRequestInsufficientBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWithdrawService(db, nil, testConfig())
	seedAccount(t, db, 101, 4999)

	_, err := svc.Request(context.Background(), 101, 5000)
	if !errors.Is(err, repository.ErrBalanceNotEnough) {
		t.Fatalf("余额不足应返回 ErrBalanceNotEnough，实际 %v", err)
	}
	if got := accountBalance(t, db, 101); got != 4999 {
		t.Fatalf("失败的申请不能动余额，期望 4999 实际 %d", got)
	}

	// 没有留下半个提现单
	var count int64
	db.Model(&model.WithdrawRequest{}).Where("user_id = ?", 101).Count(&count)
	if count != 0 {
		t.Fatalf("失败的申请不能留提现单，实际 %d 笔", count)
	}
}

func TestRequestDebitsAndCreatesPending(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWithdrawService(db, nil, testConfig())
	ctx := context.Background()
	seedAccount(t, db, 102, 12000)

	wd, err := svc.Request(ctx, 102, 5000)
	if err != nil {
		t.Fatalf("提现申请失败: %v", err)
	}
	if wd.Status != model.WithdrawStatusPending {
		t.Fatalf("新提现单状态应为 PENDING，实际 %s", wd.Status)
	}
	if wd.AmountTaka != 20.00 {
		t.Fatalf("5000积分应换算 20.00 塔卡，实际 %.2f", wd.AmountTaka)
	}
	if got := accountBalance(t, db, 102); got != 7000 {
		t.Fatalf("申请时即扣减，期望余额 7000 实际 %d", got)
	}

	// 流水和 outbox 消息在同一事务里落库
	var trans model.AccountTransaction
	if err := db.Where("user_id = ? AND type = ?", 102, model.TransactionTypeWithdraw).First(&trans).Error; err != nil {
		t.Fatalf("提现扣减流水缺失: %v", err)
	}
	if trans.Amount != -5000 || trans.BalanceAfter != 7000 {
		t.Fatalf("流水金额不对: amount=%d after=%d", trans.Amount, trans.BalanceAfter)
	}

	var outboxCount int64
	db.Model(&model.OutboxMessage{}).Where("message_key = ?", wd.WithdrawNo).Count(&outboxCount)
	if outboxCount != 1 {
		t.Fatalf("应写入一条 outbox 消息，实际 %d", outboxCount)
	}
}

func TestRequestFloorsTakaToTwoDecimals(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWithdrawService(db, nil, testConfig())
	seedAccount(t, db, 103, 10000)

	// 5001 * 20 / 5000 = 20.004，向下取整到 20.00
	wd, err := svc.Request(context.Background(), 103, 5001)
	if err != nil {
		t.Fatalf("提现申请失败: %v", err)
	}
	if wd.AmountTaka != 20.00 {
		t.Fatalf("换算应向下取整到两位小数，期望 20.00 实际 %.4f", wd.AmountTaka)
	}
}

func TestSecondRequestCannotOverdraw(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWithdrawService(db, nil, testConfig())
	ctx := context.Background()
	seedAccount(t, db, 104, 6000)

	if _, err := svc.Request(ctx, 104, 5000); err != nil {
		t.Fatalf("首笔提现失败: %v", err)
	}

	_, err := svc.Request(ctx, 104, 5000)
	if !errors.Is(err, repository.ErrBalanceNotEnough) {
		t.Fatalf("第二笔合计透支应返回 ErrBalanceNotEnough，实际 %v", err)
	}

	if got := accountBalance(t, db, 104); got != 1000 {
		t.Fatalf("余额期望 1000 实际 %d", got)
	}
}

func TestApproveKeepsBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWithdrawService(db, nil, testConfig())
	ctx := context.Background()
	seedAccount(t, db, 105, 5000)

	wd, err := svc.Request(ctx, 105, 5000)
	if err != nil {
		t.Fatalf("提现申请失败: %v", err)
	}

	if err := svc.Approve(ctx, wd.ID); err != nil {
		t.Fatalf("审批通过失败: %v", err)
	}

	// 申请时已扣过，审批不再动余额
	if got := accountBalance(t, db, 105); got != 0 {
		t.Fatalf("审批通过后余额应保持 0，实际 %d", got)
	}

	got, _ := repository.NewWithdrawRepository(db).GetByID(ctx, wd.ID)
	if got.Status != model.WithdrawStatusApproved {
		t.Fatalf("期望状态 APPROVED 实际 %s", got.Status)
	}

	// 重复审批
	err = svc.Approve(ctx, wd.ID)
	if !errors.Is(err, repository.ErrAlreadyProcessed) {
		t.Fatalf("重复审批应返回 ErrAlreadyProcessed，实际 %v", err)
	}
}

func TestRejectRefundsExactly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWithdrawService(db, nil, testConfig())
	ctx := context.Background()
	seedAccount(t, db, 106, 8000)

	wd, err := svc.Request(ctx, 106, 5000)
	if err != nil {
		t.Fatalf("提现申请失败: %v", err)
	}
	if got := accountBalance(t, db, 106); got != 3000 {
		t.Fatalf("申请后余额期望 3000 实际 %d", got)
	}

	refunded, err := svc.Reject(ctx, wd.ID)
	if err != nil {
		t.Fatalf("拒绝失败: %v", err)
	}
	if refunded != 5000 {
		t.Fatalf("退回积分期望 5000 实际 %d", refunded)
	}

	// 申请+拒绝的净效果为零
	if got := accountBalance(t, db, 106); got != 8000 {
		t.Fatalf("拒绝后余额应恢复 8000，实际 %d", got)
	}

	var trans model.AccountTransaction
	if err := db.Where("user_id = ? AND type = ?", 106, model.TransactionTypeWithdrawRefund).First(&trans).Error; err != nil {
		t.Fatalf("退回流水缺失: %v", err)
	}
	if trans.Amount != 5000 {
		t.Fatalf("退回流水金额期望 5000 实际 %d", trans.Amount)
	}

	// 拒绝过的单子不能再处理，也就不会重复退款
	_, err = svc.Reject(ctx, wd.ID)
	if !errors.Is(err, repository.ErrAlreadyProcessed) {
		t.Fatalf("重复拒绝应返回 ErrAlreadyProcessed，实际 %v", err)
	}
	if got := accountBalance(t, db, 106); got != 8000 {
		t.Fatalf("重复拒绝不能再退款，余额期望 8000 实际 %d", got)
	}
}

func TestApproveMissingWithdraw(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWithdrawService(db, nil, testConfig())

	err := svc.Approve(context.Background(), 424242)
	if !errors.Is(err, repository.ErrWithdrawNotFound) {
		t.Fatalf("期望 ErrWithdrawNotFound，实际 %v", err)
	}
}

// TestFullLifecycle 对应完整的用户旅程：
// 邀请注册 -> 看广告 -> 签到 -> 攒够积分提现 -> 审批
func TestFullLifecycle(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	bonusSvc := NewBonusService(db, cfg)
	withdrawSvc := NewWithdrawService(db, nil, cfg)
	ctx := context.Background()

	// B 先注册，A 带邀请注册 -> B 得 250
	if _, err := bonusSvc.Register(ctx, 2, "bob", nil); err != nil {
		t.Fatalf("注册B失败: %v", err)
	}
	if _, err := bonusSvc.Register(ctx, 1, "alice", int64Ptr(2)); err != nil {
		t.Fatalf("注册A失败: %v", err)
	}
	if got := accountBalance(t, db, 2); got != 250 {
		t.Fatalf("B 的邀请奖励期望 250 实际 %d", got)
	}

	// A 看3次广告 -> 30
	var balance int64
	var err error
	for i := 0; i < 3; i++ {
		if balance, err = bonusSvc.WatchAd(ctx, 1, "alice"); err != nil {
			t.Fatalf("看广告失败: %v", err)
		}
	}
	if balance != 30 {
		t.Fatalf("A 余额期望 30 实际 %d", balance)
	}

	// A 签到 -> 40，再签到被拒
	if balance, _, err = bonusSvc.ClaimDaily(ctx, 1); err != nil {
		t.Fatalf("签到失败: %v", err)
	}
	if balance != 40 {
		t.Fatalf("A 余额期望 40 实际 %d", balance)
	}
	if _, _, err = bonusSvc.ClaimDaily(ctx, 1); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("重复签到应返回 ErrAlreadyClaimed，实际 %v", err)
	}

	// 攒到 5000 后提现
	accountRepo := repository.NewAccountRepository(db)
	if err := accountRepo.Adjust(ctx, nil, 1, 4960); err != nil {
		t.Fatalf("补足余额失败: %v", err)
	}

	wd, err := withdrawSvc.Request(ctx, 1, 5000)
	if err != nil {
		t.Fatalf("提现申请失败: %v", err)
	}
	if wd.AmountTaka != 20.00 || wd.Status != model.WithdrawStatusPending {
		t.Fatalf("提现单不符合预期: taka=%.2f status=%s", wd.AmountTaka, wd.Status)
	}
	if got := accountBalance(t, db, 1); got != 0 {
		t.Fatalf("提现后余额期望 0 实际 %d", got)
	}

	// 审批通过：余额不变；重复审批被拒
	if err := withdrawSvc.Approve(ctx, wd.ID); err != nil {
		t.Fatalf("审批失败: %v", err)
	}
	if got := accountBalance(t, db, 1); got != 0 {
		t.Fatalf("审批后余额应保持 0，实际 %d", got)
	}
	if err := withdrawSvc.Approve(ctx, wd.ID); !errors.Is(err, repository.ErrAlreadyProcessed) {
		t.Fatalf("重复审批应返回 ErrAlreadyProcessed，实际 %v", err)
	}
}
