package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rewardledger/internal/config"
	"rewardledger/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	err = db.AutoMigrate(
		&model.Account{},
		&model.WithdrawRequest{},
		&model.AccountTransaction{},
		&model.OutboxMessage{},
		&model.Headline{},
	)
	if err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Business = config.BusinessConfig{
		AdminID:            9900,
		AdReward:           10,
		RefBonus:           250,
		DailyBonus:         10,
		DailyCooldownHours: 24,
		WithdrawUnitPoints: 5000,
		WithdrawUnitTaka:   20,
		MinWithdrawPoints:  5000,
		PendingAlertHours:  48,
		MaxRetryCount:      3,
	}
	cfg.Kafka.Topic.WithdrawResult = "withdraw-result"
	cfg.Kafka.Topic.RewardEvent = "reward-event"
	return cfg
}

func TestAdminChecks(t *testing.T) {
	db := setupTestDB(t)
	gw := New(db, nil, testConfig())
	ctx := context.Background()

	// 非管理员ID一律拒绝
	if err := gw.ApproveWithdraw(ctx, 1234, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("非管理员审批应返回 ErrForbidden，实际 %v", err)
	}
	if _, err := gw.RejectWithdraw(ctx, 1234, 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("非管理员拒绝应返回 ErrForbidden，实际 %v", err)
	}
	if _, err := gw.AdminData(ctx, 1234); !errors.Is(err, ErrForbidden) {
		t.Fatalf("非管理员拉后台数据应返回 ErrForbidden，实际 %v", err)
	}
	if err := gw.SetHeadline(ctx, 1234, "hello"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("非管理员改公告应返回 ErrForbidden，实际 %v", err)
	}

	// 正确的管理员ID放行
	data, err := gw.AdminData(ctx, 9900)
	if err != nil {
		t.Fatalf("管理员拉后台数据失败: %v", err)
	}
	if data == nil {
		t.Fatal("后台数据不应为空")
	}
}

func TestUserIDValidation(t *testing.T) {
	db := setupTestDB(t)
	gw := New(db, nil, testConfig())
	ctx := context.Background()

	if _, err := gw.Register(ctx, 0, "x", nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("userID=0 应返回 ErrInvalidRequest，实际 %v", err)
	}
	if _, err := gw.WatchAd(ctx, -1, "x"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("userID=-1 应返回 ErrInvalidRequest，实际 %v", err)
	}
	if _, _, err := gw.ClaimDaily(ctx, 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("userID=0 应返回 ErrInvalidRequest，实际 %v", err)
	}

	// 邀请人ID也要合法
	bad := int64(-5)
	if _, err := gw.Register(ctx, 1, "x", &bad); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("非法邀请人ID应返回 ErrInvalidRequest，实际 %v", err)
	}

	// 提现金额必须为正
	if _, err := gw.RequestWithdraw(ctx, 1, 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("提现金额0应返回 ErrInvalidRequest，实际 %v", err)
	}
}

func TestGetUserUnknownReturnsZeroProjection(t *testing.T) {
	db := setupTestDB(t)
	gw := New(db, nil, testConfig())

	// 没注册过的用户查余额：返回零值视图而不是报错
	account, err := gw.GetUser(context.Background(), 777)
	if err != nil {
		t.Fatalf("查询未注册用户失败: %v", err)
	}
	if account.UserID != 777 || account.Balance != 0 {
		t.Fatalf("未注册用户应返回零余额视图，实际 userID=%d balance=%d", account.UserID, account.Balance)
	}
}

func TestHeadlineFlow(t *testing.T) {
	db := setupTestDB(t)
	gw := New(db, nil, testConfig())
	ctx := context.Background()

	if err := gw.EnsureDefaultHeadline(ctx, "默认公告"); err != nil {
		t.Fatalf("写入默认公告失败: %v", err)
	}

	hl, err := gw.Headline(ctx)
	if err != nil {
		t.Fatalf("读取公告失败: %v", err)
	}
	if hl.Text != "默认公告" {
		t.Fatalf("公告内容期望 %q 实际 %q", "默认公告", hl.Text)
	}

	// 已有公告时 EnsureDefault 不覆盖
	if err := gw.EnsureDefaultHeadline(ctx, "另一条"); err != nil {
		t.Fatalf("EnsureDefault 失败: %v", err)
	}
	hl, _ = gw.Headline(ctx)
	if hl.Text != "默认公告" {
		t.Fatalf("EnsureDefault 不应覆盖已有公告，实际 %q", hl.Text)
	}

	// 管理员更新公告
	if err := gw.SetHeadline(ctx, 9900, "新公告"); err != nil {
		t.Fatalf("管理员改公告失败: %v", err)
	}
	hl, _ = gw.Headline(ctx)
	if hl.Text != "新公告" {
		t.Fatalf("公告内容期望 %q 实际 %q", "新公告", hl.Text)
	}
}
