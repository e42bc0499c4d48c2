package queue

import (
	"encoding/json"

	"github.com/puntoz/puntoz/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDispatch 通知分发任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
	// TaskSyncKick 同步唤醒任务
	TaskSyncKick = constants.TaskSyncKick
)

// NotificationDispatchPayload 通知分发任务载荷
type NotificationDispatchPayload struct {
	NotificationID uint `json:"notification_id"`
}

// SyncKickPayload 同步唤醒任务载荷
type SyncKickPayload struct {
	SyncJobID uint `json:"sync_job_id"`
}

// NewNotificationDispatchTask 创建通知分发任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}

// NewSyncKickTask 创建同步唤醒任务
func NewSyncKickTask(payload SyncKickPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncKick, body), nil
}
