package models

import (
	"time"

	"gorm.io/gorm"
)

// Redemption 兑换记录
// PointsSpent 与 RewardName 为下单时快照，后续奖励改价改名不影响历史记录。
type Redemption struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	MemberID    uint           `gorm:"index;not null" json:"member_id"`
	RewardID    uint           `gorm:"index;not null" json:"reward_id"`
	RewardName  string         `gorm:"size:128;not null" json:"reward_name"`
	RewardKind  string         `gorm:"size:16;not null" json:"reward_kind"`
	PointsSpent int64          `gorm:"not null" json:"points_spent"`
	Status      string         `gorm:"size:32;index;not null" json:"status"`
	Note        string         `gorm:"size:255" json:"note"`
	Operator    string         `gorm:"size:64" json:"operator"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Redemption) TableName() string {
	return "redemptions"
}
