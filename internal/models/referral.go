package models

import (
	"time"

	"gorm.io/gorm"
)

// ReferralCode 会员推荐码
// 每个会员至多一个推荐码，UseCount 通过条件更新递增，不会超过 MaxUses。
type ReferralCode struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	MemberID  uint           `gorm:"uniqueIndex;not null" json:"member_id"`
	Code      string         `gorm:"size:32;uniqueIndex;not null" json:"code"`
	MaxUses   int            `gorm:"not null;default:0" json:"max_uses"`
	UseCount  int            `gorm:"not null;default:0" json:"use_count"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (ReferralCode) TableName() string {
	return "referral_codes"
}

// ReferralRelationship 推荐关系
// ReferredID 唯一索引：一个会员只能被推荐一次。
// pending 状态下被推荐人完成首次兑换即激活，双方发放积分；
// 超过 ActivateBy 仍未激活则由后台扫描标记为 expired。
type ReferralRelationship struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	ReferrerID     uint       `gorm:"index;not null" json:"referrer_id"`
	ReferredID     uint       `gorm:"uniqueIndex;not null" json:"referred_id"`
	ReferralCodeID uint       `gorm:"index;not null" json:"referral_code_id"`
	Status         string     `gorm:"size:16;index;not null" json:"status"`
	ReferrerPoints int64      `gorm:"not null;default:0" json:"referrer_points"`
	ReferredPoints int64      `gorm:"not null;default:0" json:"referred_points"`
	ActivateBy     time.Time  `gorm:"index;not null" json:"activate_by"`
	ActivatedAt    *time.Time `json:"activated_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (ReferralRelationship) TableName() string {
	return "referral_relationships"
}
