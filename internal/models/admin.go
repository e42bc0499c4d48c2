package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 后台管理员
type Admin struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Username  string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Nickname  string         `gorm:"size:64" json:"nickname"`
	Role      string         `gorm:"size:32;default:operator" json:"role"`
	// 不设 DB 默认值：零值 false 必须按字面落库，避免插入被默认值改写
	IsActive  bool           `json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
