package models

import (
	"time"
)

// Notification 通知记录
// 通知发送走消息队列异步处理，这里保留一份入库记录供后台查询。
type Notification struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	Event     string     `gorm:"size:32;index;not null" json:"event"`
	Audience  string     `gorm:"size:16;not null" json:"audience"`
	MemberID  *uint      `gorm:"index" json:"member_id,omitempty"`
	Title     string     `gorm:"size:128" json:"title"`
	Body      string     `gorm:"size:1024" json:"body"`
	Payload   JSON       `gorm:"type:text" json:"payload"`
	Status    string     `gorm:"size:16;index;not null" json:"status"`
	SentAt    *time.Time `json:"sent_at"`
	LastError string     `gorm:"size:512" json:"last_error"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
