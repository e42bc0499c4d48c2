package models

import (
	"time"

	"gorm.io/gorm"
)

// Reward 可兑换的奖励项目
// Stock 为 -1 表示不限库存（通常用于服务类奖励）。
type Reward struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"size:128;not null" json:"name"`
	Kind        string         `gorm:"size:16;index;not null" json:"kind"`
	Description string         `gorm:"size:512" json:"description"`
	PointsCost  int64          `gorm:"not null" json:"points_cost"`
	Stock       int            `gorm:"not null;default:0" json:"stock"`
	RetailValue Money          `gorm:"type:decimal(20,8)" json:"retail_value"`
	ImageURL    string         `gorm:"size:255" json:"image_url"`
	IsActive    bool           `gorm:"index" json:"is_active"`
	SortOrder   int            `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Reward) TableName() string {
	return "rewards"
}

// HasUnlimitedStock 是否不限库存
func (r *Reward) HasUnlimitedStock() bool {
	return r.Stock < 0
}
