package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/puntoz/puntoz/internal/logger"
	"github.com/puntoz/puntoz/internal/provider"
	"github.com/puntoz/puntoz/internal/queue"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container

	workerID string
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container, workerID string) *Consumer {
	return &Consumer{
		Container: c,
		workerID:  workerID,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSyncKick, c.handleSyncKick)
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
}

func (c *Consumer) handleSyncKick(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_sync_kick_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SyncKickPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_sync_kick_unmarshal_failed", "error", err)
		return err
	}
	if payload.SyncJobID == 0 {
		logger.Debugw("worker_sync_kick_skip_invalid_payload", "sync_job_id", payload.SyncJobID)
		return nil
	}
	if c.SyncService == nil {
		logger.Warnw("worker_sync_kick_skip_sync_service_nil", "sync_job_id", payload.SyncJobID)
		return nil
	}
	err := c.SyncService.ProcessOne(ctx, payload.SyncJobID, c.workerID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSyncJobNotFound):
			logger.Debugw("worker_sync_kick_skip_job_not_found", "sync_job_id", payload.SyncJobID)
			return nil
		default:
			logger.Warnw("worker_sync_kick_failed", "sync_job_id", payload.SyncJobID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if payload.NotificationID == 0 {
		logger.Debugw("worker_notification_dispatch_skip_invalid_payload", "notification_id", payload.NotificationID)
		return nil
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_notification_dispatch_skip_service_nil", "notification_id", payload.NotificationID)
		return nil
	}
	if err := c.NotificationService.Dispatch(ctx, payload.NotificationID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotificationNotFound):
			logger.Debugw("worker_notification_dispatch_skip_not_found", "notification_id", payload.NotificationID)
			return nil
		default:
			logger.Warnw("worker_notification_dispatch_failed", "notification_id", payload.NotificationID, "error", err)
			return err
		}
	}
	return nil
}
