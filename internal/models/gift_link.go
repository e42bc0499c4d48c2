package models

import (
	"time"

	"gorm.io/gorm"
)

// GiftLink 礼品领取链接
// 普通链接 MaxClaims = 1；活动链接可多次领取，ClaimCount 通过条件更新递增，
// 不会超过 MaxClaims。
type GiftLink struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	Code           string         `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Title          string         `gorm:"size:128" json:"title"`
	Message        string         `gorm:"size:512" json:"message"`
	BenefitType    string         `gorm:"size:16;not null" json:"benefit_type"`
	PointsAmount   int64          `gorm:"default:0" json:"points_amount"`
	ServiceName    string         `gorm:"size:128" json:"service_name"`
	ServiceValue   Money          `gorm:"type:decimal(20,8)" json:"service_value"`
	RecipientPhone string         `gorm:"size:32;index" json:"recipient_phone"`
	IsCampaign     bool           `gorm:"default:false" json:"is_campaign"`
	MaxClaims      int            `gorm:"not null;default:1" json:"max_claims"`
	ClaimCount     int            `gorm:"not null;default:0" json:"claim_count"`
	ViewCount      int            `gorm:"not null;default:0" json:"view_count"`
	Status         string         `gorm:"size:16;index;not null" json:"status"`
	ExpiresAt      *time.Time     `gorm:"index" json:"expires_at"`
	CreatedBy      string         `gorm:"size:64" json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (GiftLink) TableName() string {
	return "gift_links"
}

// IsExpired 链接是否已过期
func (g *GiftLink) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// IsExhausted 领取次数是否已用尽
func (g *GiftLink) IsExhausted() bool {
	return g.ClaimCount >= g.MaxClaims
}

// GiftClaim 礼品领取审计记录
// 每次成功领取写入一条，(GiftLinkID, MemberID) 唯一索引防止同一会员重复领取。
type GiftClaim struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	GiftLinkID uint      `gorm:"uniqueIndex:idx_gift_claim_link_member;not null" json:"gift_link_id"`
	MemberID   uint      `gorm:"uniqueIndex:idx_gift_claim_link_member;index;not null" json:"member_id"`
	Phone      string    `gorm:"size:32;not null" json:"phone"`
	ClientIP   string    `gorm:"size:64" json:"client_ip"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (GiftClaim) TableName() string {
	return "gift_claims"
}
