package repository

import (
	"errors"
	"time"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository 通知记录数据访问接口
type NotificationRepository interface {
	Create(notification *models.Notification) error
	GetByID(id uint) (*models.Notification, error)
	List(filter NotificationListFilter) ([]models.Notification, int64, error)
	MarkSent(id uint, now time.Time) error
	MarkFailed(id uint, lastError string) error
	WithTx(tx *gorm.DB) *GormNotificationRepository
}

// GormNotificationRepository GORM 通知仓储实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormNotificationRepository) WithTx(tx *gorm.DB) *GormNotificationRepository {
	if tx == nil {
		return r
	}
	return &GormNotificationRepository{db: tx}
}

// Create 写入通知记录
func (r *GormNotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// GetByID 按ID获取通知记录
func (r *GormNotificationRepository) GetByID(id uint) (*models.Notification, error) {
	if id == 0 {
		return nil, nil
	}
	var notification models.Notification
	if err := r.db.First(&notification, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

// List 分页查询通知记录
func (r *GormNotificationRepository) List(filter NotificationListFilter) ([]models.Notification, int64, error) {
	query := r.db.Model(&models.Notification{})
	if filter.Event != "" {
		query = query.Where("event = ?", filter.Event)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var notifications []models.Notification
	if err := query.Order("id DESC").Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkSent 标记通知已发送
func (r *GormNotificationRepository) MarkSent(id uint, now time.Time) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     constants.NotificationStatusSent,
			"sent_at":    now,
			"last_error": "",
		}).Error
}

// MarkFailed 标记通知发送失败
func (r *GormNotificationRepository) MarkFailed(id uint, lastError string) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     constants.NotificationStatusFailed,
			"last_error": truncateError(lastError),
		}).Error
}
