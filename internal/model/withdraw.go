package model

import (
	"time"
)

const (
	WithdrawStatusPending  = "PENDING"
	WithdrawStatusApproved = "APPROVED"
	WithdrawStatusRejected = "REJECTED"
)

// 提现单状态机：PENDING 是唯一初始态，APPROVED / REJECTED 均为终态
var ValidStatusTransitions = map[string][]string{
	WithdrawStatusPending: {WithdrawStatusApproved, WithdrawStatusRejected},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// WithdrawRequest 提现申请表
//
// 积分在申请时即被扣减（预留资金），拒绝时原路退回，
// 审批通过不再动余额 —— 避免多笔并发申请合计透支
type WithdrawRequest struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	WithdrawNo   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"withdraw_no"`
	UserID       int64      `gorm:"index;not null" json:"user_id"`
	AmountPoints int64      `gorm:"not null" json:"amount_points"`                  // 提现积分数
	AmountTaka   float64    `gorm:"type:decimal(10,2);not null" json:"amount_taka"` // 创建时按汇率换算，之后不再重算
	Status       string     `gorm:"type:varchar(20);index;not null" json:"status"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"` // 审批（通过/拒绝）时间
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WithdrawRequest) TableName() string {
	return "withdraw_request"
}
