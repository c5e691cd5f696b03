package handler

import (
	"rewardledger/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 注册与邀请
		api.POST("/register", h.Register)
		api.POST("/ref/click", h.RefClick)

		// 奖励相关
		api.POST("/ad/watch", h.WatchAd)
		api.POST("/bonus/daily", h.ClaimDaily)

		// 提现相关
		withdraw := api.Group("/withdraw")
		{
			withdraw.POST("/request", h.RequestWithdraw)
			withdraw.GET("/list", h.ListWithdraws)
		}

		// 账户查询
		api.GET("/user/:id", h.GetUser)
		api.GET("/transactions", h.ListTransactions)

		// 管理员
		admin := api.Group("/admin")
		{
			admin.GET("/data", h.AdminData)
			admin.POST("/withdraw/approve", h.ApproveWithdraw)
			admin.POST("/withdraw/reject", h.RejectWithdraw)
		}
	}

	// 公告（前端首页直接拉取，路径保持扁平）
	r.GET("/headline", h.GetHeadline)
	r.POST("/headline", h.SetHeadline)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
