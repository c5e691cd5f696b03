package job

import (
	"context"
	"log"
	"time"

	"rewardledger/internal/config"
	"rewardledger/internal/repository"

	"gorm.io/gorm"
)

// WithdrawMonitor 周期性扫描挂起过久的提现单
// 提现单没有超时关闭一说（审批可以隔任意久），这里只做运营告警，
// 不做任何状态流转
type WithdrawMonitor struct {
	db           *gorm.DB
	withdrawRepo *repository.WithdrawRepository
	cfg          *config.Config
	stopCh       chan struct{}
	interval     time.Duration
	batchSize    int
}

func NewWithdrawMonitor(db *gorm.DB, cfg *config.Config) *WithdrawMonitor {
	return &WithdrawMonitor{
		db:           db,
		withdrawRepo: repository.NewWithdrawRepository(db),
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		interval:     10 * time.Minute,
		batchSize:    100,
	}
}

func (j *WithdrawMonitor) Start(ctx context.Context) {
	log.Println("[WithdrawMonitor] 提现监控任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[WithdrawMonitor] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[WithdrawMonitor] 任务停止")
			return
		case <-ticker.C:
			j.alertStalePending(ctx)
		}
	}
}

func (j *WithdrawMonitor) Stop() {
	close(j.stopCh)
}

func (j *WithdrawMonitor) alertStalePending(ctx context.Context) {
	threshold := time.Duration(j.cfg.Business.PendingAlertHours) * time.Hour
	beforeTime := time.Now().Add(-threshold)

	wds, err := j.withdrawRepo.ListPendingBefore(ctx, beforeTime, j.batchSize)
	if err != nil {
		log.Printf("[WithdrawMonitor] 查询挂起提现单失败: %v", err)
		return
	}

	if len(wds) == 0 {
		return
	}

	log.Printf("[WithdrawMonitor] 有 %d 笔提现单挂起超过 %d 小时未审批", len(wds), j.cfg.Business.PendingAlertHours)
	for _, wd := range wds {
		log.Printf("[WithdrawMonitor] 待审批: withdrawNo=%s, userID=%d, points=%d, createdAt=%s",
			wd.WithdrawNo, wd.UserID, wd.AmountPoints, wd.CreatedAt.Format(time.RFC3339))
	}
}
