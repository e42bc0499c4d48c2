package models

import (
	"time"
)

// SyncJob 外部 CRM 同步任务（发件箱）
// 本地事务提交后入队，先尝试一次立即同步，失败则由后台按 NextRetryAt
// 指数退避重试。工作进程通过 ClaimedBy/ClaimedUntil 条件更新抢占任务，
// 同一任务不会被多个进程并发处理。
type SyncJob struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	OpType       string     `gorm:"size:32;index;not null" json:"op_type"`
	ResourceID   string     `gorm:"size:64;index;not null" json:"resource_id"`
	Payload      string     `gorm:"type:text" json:"payload"`
	Source       string     `gorm:"size:32" json:"source"`
	Status       string     `gorm:"size:16;index;not null" json:"status"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	NextRetryAt  time.Time  `gorm:"index;not null" json:"next_retry_at"`
	ClaimedBy    string     `gorm:"size:64" json:"claimed_by"`
	ClaimedUntil *time.Time `gorm:"index" json:"claimed_until"`
	LastError    string     `gorm:"size:512" json:"last_error"`
	RemoteID     string     `gorm:"size:64" json:"remote_id"`
	DoneAt       *time.Time `json:"done_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (SyncJob) TableName() string {
	return "sync_jobs"
}
