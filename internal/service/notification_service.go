package service

import (
	"context"
	"time"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/logger"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/queue"
	"github.com/puntoz/puntoz/internal/repository"

	"gorm.io/gorm"
)

// Sender 通知发送通道
type Sender interface {
	Send(ctx context.Context, notification *models.Notification) error
}

// LogSender 日志通道，把通知写入结构化日志
// 对接真实短信/推送通道时替换该实现即可。
type LogSender struct{}

// Send 输出通知日志
func (LogSender) Send(_ context.Context, notification *models.Notification) error {
	logger.Infow("notification_sent",
		"event", notification.Event,
		"audience", notification.Audience,
		"member_id", notification.MemberID,
		"title", notification.Title,
		"body", notification.Body,
	)
	return nil
}

// NotificationService 通知服务
// 通知先入库再经队列异步分发，队列未启用时退化为同步发送。
type NotificationService struct {
	notifRepo repository.NotificationRepository
	queueCli  *queue.Client
	sender    Sender
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	notifRepo repository.NotificationRepository,
	queueCli *queue.Client,
	sender Sender,
) *NotificationService {
	if sender == nil {
		sender = LogSender{}
	}
	return &NotificationService{
		notifRepo: notifRepo,
		queueCli:  queueCli,
		sender:    sender,
	}
}

// EmitInput 通知写入输入
type EmitInput struct {
	Event    string
	Audience string
	MemberID *uint
	Title    string
	Body     string
	Payload  models.JSON
}

// EmitTx 在事务内写入通知记录
func (s *NotificationService) EmitTx(tx *gorm.DB, input EmitInput) (*models.Notification, error) {
	notification := &models.Notification{
		Event:    input.Event,
		Audience: input.Audience,
		MemberID: input.MemberID,
		Title:    input.Title,
		Body:     input.Body,
		Payload:  input.Payload,
		Status:   constants.NotificationStatusPending,
	}
	if err := s.notifRepo.WithTx(tx).Create(notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// Emit 写入通知记录（非事务）
func (s *NotificationService) Emit(input EmitInput) (*models.Notification, error) {
	return s.EmitTx(nil, input)
}

// DispatchAfterCommit 事务提交后投递分发任务
// 队列未启用时直接同步分发，保证通知不会滞留在 pending。
func (s *NotificationService) DispatchAfterCommit(notifications ...*models.Notification) {
	for _, notification := range notifications {
		if notification == nil {
			continue
		}
		if s.queueCli.Enabled() {
			err := s.queueCli.EnqueueNotificationDispatch(queue.NotificationDispatchPayload{
				NotificationID: notification.ID,
			})
			if err == nil {
				continue
			}
			logger.Warnw("notification_enqueue_failed_fallback_sync", "notification_id", notification.ID, "error", err)
		}
		if err := s.Dispatch(context.Background(), notification.ID); err != nil {
			logger.Warnw("notification_sync_send_failed", "notification_id", notification.ID, "error", err)
		}
	}
}

// Dispatch 分发单条通知
// 幂等：已发送的通知直接返回。
func (s *NotificationService) Dispatch(ctx context.Context, notificationID uint) error {
	notification, err := s.notifRepo.GetByID(notificationID)
	if err != nil {
		return err
	}
	if notification == nil {
		return ErrNotificationNotFound
	}
	if notification.Status == constants.NotificationStatusSent {
		return nil
	}

	if err := s.sender.Send(ctx, notification); err != nil {
		if markErr := s.notifRepo.MarkFailed(notification.ID, err.Error()); markErr != nil {
			logger.Warnw("notification_mark_failed_error", "notification_id", notification.ID, "error", markErr)
		}
		return err
	}
	return s.notifRepo.MarkSent(notification.ID, time.Now())
}

// List 分页查询通知记录
func (s *NotificationService) List(filter repository.NotificationListFilter) ([]models.Notification, int64, error) {
	return s.notifRepo.List(filter)
}
