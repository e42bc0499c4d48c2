package models

import (
	"time"
)

// LedgerEntry 积分账本流水
// 只增不改：每次积分变动写入一条流水，Delta 带符号。
// Reference 唯一索引用于幂等去重，重复引用的写入会被数据库拒绝。
type LedgerEntry struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	MemberID      uint      `gorm:"index;not null" json:"member_id"`
	Delta         int64     `gorm:"not null" json:"delta"`
	Direction     string    `gorm:"size:8;not null" json:"direction"`
	Concept       string    `gorm:"size:32;index;not null" json:"concept"`
	Reference     string    `gorm:"size:128;uniqueIndex;not null" json:"reference"`
	Description   string    `gorm:"size:255" json:"description"`
	RedemptionID  *uint     `gorm:"index" json:"redemption_id,omitempty"`
	GiftClaimID   *uint     `gorm:"index" json:"gift_claim_id,omitempty"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Operator      string    `gorm:"size:64" json:"operator"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName 指定表名
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
