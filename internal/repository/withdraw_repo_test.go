package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"rewardledger/internal/model"
)

func TestWithdrawStatusCAS(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWithdrawRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	wd := &model.WithdrawRequest{
		WithdrawNo:   "WDR-TEST-1",
		UserID:       1001,
		AmountPoints: 5000,
		AmountTaka:   20.00,
		Status:       model.WithdrawStatusPending,
	}
	if err := repo.Create(ctx, nil, wd); err != nil {
		t.Fatalf("创建提现单失败: %v", err)
	}

	err := repo.UpdateStatus(ctx, nil, wd.ID, model.WithdrawStatusPending, model.WithdrawStatusApproved, now)
	if err != nil {
		t.Fatalf("审批通过失败: %v", err)
	}

	// 第二次审批：前置状态不再匹配
	err = repo.UpdateStatus(ctx, nil, wd.ID, model.WithdrawStatusPending, model.WithdrawStatusApproved, now)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("重复审批应返回 ErrAlreadyProcessed，实际 %v", err)
	}

	// 终态之间没有合法流转
	err = repo.UpdateStatus(ctx, nil, wd.ID, model.WithdrawStatusApproved, model.WithdrawStatusRejected, now)
	if !errors.Is(err, ErrStatusTransitionInvalid) {
		t.Fatalf("终态流转应返回 ErrStatusTransitionInvalid，实际 %v", err)
	}

	got, err := repo.GetByID(ctx, wd.ID)
	if err != nil {
		t.Fatalf("查询提现单失败: %v", err)
	}
	if got.Status != model.WithdrawStatusApproved {
		t.Fatalf("期望状态 APPROVED 实际 %s", got.Status)
	}
	if got.ProcessedAt == nil {
		t.Fatal("审批后应记录处理时间")
	}
}

func TestWithdrawGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWithdrawRepository(db)

	_, err := repo.GetByID(context.Background(), 42)
	if !errors.Is(err, ErrWithdrawNotFound) {
		t.Fatalf("期望 ErrWithdrawNotFound，实际 %v", err)
	}
}

func TestListPendingBefore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWithdrawRepository(db)
	ctx := context.Background()

	stale := &model.WithdrawRequest{
		WithdrawNo:   "WDR-TEST-OLD",
		UserID:       1001,
		AmountPoints: 5000,
		AmountTaka:   20.00,
		Status:       model.WithdrawStatusPending,
	}
	if err := repo.Create(ctx, nil, stale); err != nil {
		t.Fatalf("创建提现单失败: %v", err)
	}
	// 压旧创建时间
	db.Model(stale).Update("created_at", time.Now().Add(-72*time.Hour))

	fresh := &model.WithdrawRequest{
		WithdrawNo:   "WDR-TEST-NEW",
		UserID:       1002,
		AmountPoints: 5000,
		AmountTaka:   20.00,
		Status:       model.WithdrawStatusPending,
	}
	if err := repo.Create(ctx, nil, fresh); err != nil {
		t.Fatalf("创建提现单失败: %v", err)
	}

	wds, err := repo.ListPendingBefore(ctx, time.Now().Add(-48*time.Hour), 10)
	if err != nil {
		t.Fatalf("查询挂起提现单失败: %v", err)
	}
	if len(wds) != 1 || wds[0].WithdrawNo != "WDR-TEST-OLD" {
		t.Fatalf("应只扫出超期的提现单，实际 %d 笔", len(wds))
	}
}
