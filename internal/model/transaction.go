package model

import (
	"time"
)

// ============================================================================
// 交易类型常量
// ============================================================================

const (
	TransactionTypeAdReward       = "AD_REWARD"       // 看广告奖励
	TransactionTypeDailyBonus     = "DAILY_BONUS"     // 每日签到奖励
	TransactionTypeReferralBonus  = "REFERRAL_BONUS"  // 邀请奖励
	TransactionTypeWithdraw       = "WITHDRAW"        // 提现扣减
	TransactionTypeWithdrawRefund = "WITHDRAW_REFUND" // 提现被拒后退回
)

// ============================================================================
// 账户流水实体
// ============================================================================

// AccountTransaction 账户流水表
// 记录账户的每一笔积分变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 每笔流水记录业务参考号（提现单号等）—— 便于对账
// 3. 记录交易前后余额 —— 便于校验余额一致性
type AccountTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	UserID        int64     `gorm:"index;not null" json:"user_id"`                               // 用户ID
	RefNo         string    `gorm:"type:varchar(64);index" json:"ref_no"`                        // 关联业务号（提现单号、邀请人ID等）
	Amount        int64     `gorm:"not null" json:"amount"`                                      // 积分（正数入账，负数出账）
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`                       // 交易类型
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`                              // 交易前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`                               // 交易后余额
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`                             // 备注
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AccountTransaction) TableName() string {
	return "account_transaction"
}
