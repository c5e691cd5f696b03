package gateway

import (
	"context"
	"errors"

	"rewardledger/internal/config"
	"rewardledger/internal/model"
	"rewardledger/internal/service"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var (
	ErrInvalidRequest = errors.New("请求参数不合法")
	ErrForbidden      = errors.New("无管理员权限")
)

// Gateway 账本的唯一入口
// 负责两件事：校验用户身份合法、校验管理员身份，然后把请求
// 分发给对应的服务。自身不持有任何业务状态
type Gateway struct {
	cfg             *config.Config
	bonusService    *service.BonusService
	withdrawService *service.WithdrawService
	accountService  *service.AccountService
	headlineService *service.HeadlineService
}

func New(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Gateway {
	return &Gateway{
		cfg:             cfg,
		bonusService:    service.NewBonusService(db, cfg),
		withdrawService: service.NewWithdrawService(db, redisClient, cfg),
		accountService:  service.NewAccountService(db),
		headlineService: service.NewHeadlineService(db),
	}
}

func (g *Gateway) checkUser(userID int64) error {
	if userID <= 0 {
		return ErrInvalidRequest
	}
	return nil
}

// checkAdmin 共享密钥式身份校验：调用方自报的管理员ID必须等于配置里的那一个
func (g *Gateway) checkAdmin(adminID int64) error {
	if adminID != g.cfg.Business.AdminID {
		return ErrForbidden
	}
	return nil
}

// ============================================================
// 用户侧操作
// ============================================================

func (g *Gateway) Register(ctx context.Context, userID int64, name string, referrerID *int64) (*service.RegisterResult, error) {
	if err := g.checkUser(userID); err != nil {
		return nil, err
	}
	if referrerID != nil && *referrerID <= 0 {
		return nil, ErrInvalidRequest
	}
	return g.bonusService.Register(ctx, userID, name, referrerID)
}

func (g *Gateway) TrackRefClick(ctx context.Context, refID int64) error {
	if err := g.checkUser(refID); err != nil {
		return err
	}
	return g.bonusService.TrackRefClick(ctx, refID)
}

func (g *Gateway) WatchAd(ctx context.Context, userID int64, name string) (int64, error) {
	if err := g.checkUser(userID); err != nil {
		return 0, err
	}
	return g.bonusService.WatchAd(ctx, userID, name)
}

func (g *Gateway) ClaimDaily(ctx context.Context, userID int64) (int64, int64, error) {
	if err := g.checkUser(userID); err != nil {
		return 0, 0, err
	}
	return g.bonusService.ClaimDaily(ctx, userID)
}

func (g *Gateway) RequestWithdraw(ctx context.Context, userID int64, amountPoints int64) (*model.WithdrawRequest, error) {
	if err := g.checkUser(userID); err != nil {
		return nil, err
	}
	if amountPoints <= 0 {
		return nil, ErrInvalidRequest
	}
	return g.withdrawService.Request(ctx, userID, amountPoints)
}

func (g *Gateway) ListUserWithdraws(ctx context.Context, userID int64) ([]*model.WithdrawRequest, error) {
	if err := g.checkUser(userID); err != nil {
		return nil, err
	}
	return g.withdrawService.ListByUserID(ctx, userID)
}

func (g *Gateway) GetUser(ctx context.Context, userID int64) (*model.Account, error) {
	if err := g.checkUser(userID); err != nil {
		return nil, err
	}
	return g.accountService.GetAccount(ctx, userID)
}

func (g *Gateway) ListTransactions(ctx context.Context, userID int64, page, pageSize int) ([]*model.AccountTransaction, int64, error) {
	if err := g.checkUser(userID); err != nil {
		return nil, 0, err
	}
	return g.accountService.ListTransactions(ctx, userID, page, pageSize)
}

func (g *Gateway) Headline(ctx context.Context) (*model.Headline, error) {
	return g.headlineService.Latest(ctx)
}

// ============================================================
// 管理员侧操作
// ============================================================

type AdminData struct {
	Accounts  []*model.Account         `json:"users"`
	Withdraws []*model.WithdrawRequest `json:"withdraws"`
}

func (g *Gateway) AdminData(ctx context.Context, adminID int64) (*AdminData, error) {
	if err := g.checkAdmin(adminID); err != nil {
		return nil, err
	}

	accounts, err := g.accountService.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	withdraws, err := g.withdrawService.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	return &AdminData{Accounts: accounts, Withdraws: withdraws}, nil
}

func (g *Gateway) ApproveWithdraw(ctx context.Context, adminID, withdrawID int64) error {
	if err := g.checkAdmin(adminID); err != nil {
		return err
	}
	return g.withdrawService.Approve(ctx, withdrawID)
}

func (g *Gateway) RejectWithdraw(ctx context.Context, adminID, withdrawID int64) (int64, error) {
	if err := g.checkAdmin(adminID); err != nil {
		return 0, err
	}
	return g.withdrawService.Reject(ctx, withdrawID)
}

func (g *Gateway) SetHeadline(ctx context.Context, adminID int64, text string) error {
	if err := g.checkAdmin(adminID); err != nil {
		return err
	}
	return g.headlineService.Set(ctx, text)
}

// EnsureDefaultHeadline 启动流程用，不走管理员校验
func (g *Gateway) EnsureDefaultHeadline(ctx context.Context, text string) error {
	return g.headlineService.EnsureDefault(ctx, text)
}
