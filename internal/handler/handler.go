package handler

import (
	"errors"
	"strconv"

	"rewardledger/internal/config"
	"rewardledger/internal/gateway"
	"rewardledger/internal/repository"
	"rewardledger/internal/service"
	"rewardledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，只做参数解析，业务全部走 Gateway
type Handler struct {
	gateway *gateway.Gateway
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		gateway: gateway.New(db, rdb, cfg),
	}
}

// handleError 把各层的哨兵错误映射成稳定的业务错误码
// 未识别的错误一律按存储层故障处理（500），绝不吞掉
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gateway.ErrInvalidRequest):
		response.ParamError(c, "请求参数不合法")
	case errors.Is(err, gateway.ErrForbidden):
		response.Forbidden(c, "无管理员权限")
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, "余额不足")
	case errors.Is(err, service.ErrBelowMinimum):
		response.BusinessError(c, response.CodeBelowMinimum, "提现积分低于最低门槛")
	case errors.Is(err, service.ErrAlreadyClaimed):
		response.BusinessError(c, response.CodeAlreadyClaimed, "今日奖励已领取")
	case errors.Is(err, repository.ErrAlreadyProcessed),
		errors.Is(err, repository.ErrStatusTransitionInvalid):
		response.BusinessError(c, response.CodeAlreadyProcessed, "提现单已处理")
	case errors.Is(err, repository.ErrWithdrawNotFound):
		response.BusinessError(c, response.CodeWithdrawNotFound, "提现单不存在")
	case errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, "账户不存在")
	case errors.Is(err, service.ErrEmptyHeadline):
		response.ParamError(c, "公告内容不能为空")
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 用户侧接口
// ============================================================

// RegisterRequest 注册请求
type RegisterRequest struct {
	UserID     int64  `json:"user_id" binding:"required"`
	Name       string `json:"name"`
	ReferrerID *int64 `json:"referrer_id"`
}

// Register 注册（带可选邀请人）
// POST /api/v1/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.gateway.Register(c.Request.Context(), req.UserID, req.Name, req.ReferrerID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// RefClick 记录邀请链接点击
// POST /api/v1/ref/click
func (h *Handler) RefClick(c *gin.Context) {
	var req struct {
		RefID int64 `json:"ref_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.gateway.TrackRefClick(c.Request.Context(), req.RefID); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"ok": true})
}

// WatchAdRequest 看广告请求
type WatchAdRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Name   string `json:"name"`
}

// WatchAd 看广告得积分
// POST /api/v1/ad/watch
func (h *Handler) WatchAd(c *gin.Context) {
	var req WatchAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	balance, err := h.gateway.WatchAd(c.Request.Context(), req.UserID, req.Name)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"balance": balance})
}

// ClaimDaily 领取每日签到奖励
// POST /api/v1/bonus/daily
func (h *Handler) ClaimDaily(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	balance, bonus, err := h.gateway.ClaimDaily(c.Request.Context(), req.UserID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"balance": balance,
		"bonus":   bonus,
	})
}

// WithdrawRequest 提现申请请求
type WithdrawRequest struct {
	UserID       int64 `json:"user_id" binding:"required"`
	AmountPoints int64 `json:"amount_points" binding:"required,gt=0"`
}

// RequestWithdraw 发起提现申请
// POST /api/v1/withdraw/request
func (h *Handler) RequestWithdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	wd, err := h.gateway.RequestWithdraw(c.Request.Context(), req.UserID, req.AmountPoints)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"withdraw_id":   wd.ID,
		"withdraw_no":   wd.WithdrawNo,
		"amount_points": wd.AmountPoints,
		"amount_taka":   wd.AmountTaka,
		"status":        wd.Status,
	})
}

// ListWithdraws 查询用户提现记录
// GET /api/v1/withdraw/list?user_id=xxx
func (h *Handler) ListWithdraws(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	wds, err := h.gateway.ListUserWithdraws(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"list": wds})
}

// GetUser 查询用户面板数据
// GET /api/v1/user/:id
func (h *Handler) GetUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return
	}

	account, err := h.gateway.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id":       account.UserID,
		"name":          account.Name,
		"balance":       account.Balance,
		"ref_clicks":    account.RefClicks,
		"ref_success":   account.RefSuccess,
		"last_daily_at": account.LastDailyAt,
	})
}

// ListTransactions 查询用户积分流水
// GET /api/v1/transactions?user_id=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transactions, total, err := h.gateway.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetHeadline 获取最新公告
// GET /headline
func (h *Handler) GetHeadline(c *gin.Context) {
	headline, err := h.gateway.Headline(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"text":       headline.Text,
		"updated_at": headline.UpdatedAt,
	})
}

// SetHeadline 管理员更新公告
// POST /headline
func (h *Handler) SetHeadline(c *gin.Context) {
	var req struct {
		AdminID int64  `json:"admin_id" binding:"required"`
		Text    string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.gateway.SetHeadline(c.Request.Context(), req.AdminID, req.Text); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"ok": true})
}

// ============================================================
// 管理员侧接口
// ============================================================

// AdminData 管理端总览（全部用户 + 全部提现单）
// GET /api/v1/admin/data?admin_id=xxx
func (h *Handler) AdminData(c *gin.Context) {
	adminID, err := strconv.ParseInt(c.Query("admin_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "admin_id 参数错误")
		return
	}

	data, err := h.gateway.AdminData(c.Request.Context(), adminID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, data)
}

// AdminWithdrawRequest 审批请求
type AdminWithdrawRequest struct {
	AdminID    int64 `json:"admin_id" binding:"required"`
	WithdrawID int64 `json:"withdraw_id" binding:"required"`
}

// ApproveWithdraw 审批通过提现
// POST /api/v1/admin/withdraw/approve
func (h *Handler) ApproveWithdraw(c *gin.Context) {
	var req AdminWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.gateway.ApproveWithdraw(c.Request.Context(), req.AdminID, req.WithdrawID); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"ok": true})
}

// RejectWithdraw 拒绝提现（积分原路退回）
// POST /api/v1/admin/withdraw/reject
func (h *Handler) RejectWithdraw(c *gin.Context) {
	var req AdminWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	refunded, err := h.gateway.RejectWithdraw(c.Request.Context(), req.AdminID, req.WithdrawID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"ok":       true,
		"refunded": refunded,
	})
}
