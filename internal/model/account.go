package model

import (
	"time"
)

// Account 用户账户表
// 记录用户的积分余额，是整个奖励系统的核心数据
//
// 不变量：balance >= 0，任何扣减都必须在数据库层带条件校验
type Account struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64      `gorm:"uniqueIndex;not null" json:"user_id"`       // 用户ID（Telegram侧的外部身份）
	Name         string     `gorm:"type:varchar(128)" json:"name"`             // 昵称，仅展示用
	Balance      int64      `gorm:"not null;default:0" json:"balance"`         // 可用余额（积分）
	Referrer     *int64     `gorm:"index" json:"referrer,omitempty"`           // 邀请人用户ID，只允许设置一次
	LastDailyAt  *time.Time `json:"last_daily_at,omitempty"`                   // 最近一次成功签到时间
	RefClicks    int64      `gorm:"not null;default:0" json:"ref_clicks"`      // 邀请链接点击数（统计用）
	RefSuccess   int64      `gorm:"not null;default:0" json:"ref_success"`     // 成功邀请人数（统计用）
	Version      int        `gorm:"not null;default:0" json:"version"`         // 余额变更版本号
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
