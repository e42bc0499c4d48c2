package models

import (
	"time"

	"gorm.io/gorm"
)

// Member 会员账户
// Phone 为会员唯一标识，创建后不可变更；Points 仅通过账本流水变更。
type Member struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Phone       string         `gorm:"size:32;uniqueIndex;not null" json:"phone"`
	Name        string         `gorm:"size:64" json:"name"`
	Points      int64          `gorm:"not null;default:0" json:"points"`
	Tier        string         `gorm:"size:16;default:standard" json:"tier"`
	Status      string         `gorm:"size:16;default:active" json:"status"`
	CRMRemoteID string         `gorm:"size:64;index" json:"crm_remote_id"`
	CRMSyncedAt *time.Time     `json:"crm_synced_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Member) TableName() string {
	return "members"
}
