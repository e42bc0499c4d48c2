package repository

import (
	"errors"
	"time"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
)

// SyncJobRepository 同步任务（发件箱）数据访问接口
type SyncJobRepository interface {
	Create(job *models.SyncJob) error
	GetByID(id uint) (*models.SyncJob, error)
	GetDoneByResource(opType, resourceID string) (*models.SyncJob, error)
	List(filter SyncJobListFilter) ([]models.SyncJob, int64, error)
	ClaimDue(workerID string, now time.Time, claimTTL time.Duration, limit int) ([]models.SyncJob, error)
	MarkDone(id uint, remoteID string, now time.Time) error
	MarkRetry(id uint, attempts int, nextRetryAt time.Time, lastError string) error
	MarkTerminal(id uint, lastError string) error
	ResetTerminal(id uint, now time.Time) (bool, error)
	ReleaseClaim(id uint) error
	ReclaimExpired(now time.Time) (int64, error)
	CountByStatus() (map[string]int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormSyncJobRepository
}

// GormSyncJobRepository GORM 同步任务仓储实现
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewSyncJobRepository 创建同步任务仓储
func NewSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSyncJobRepository) WithTx(tx *gorm.DB) *GormSyncJobRepository {
	if tx == nil {
		return r
	}
	return &GormSyncJobRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormSyncJobRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 写入同步任务
func (r *GormSyncJobRepository) Create(job *models.SyncJob) error {
	return r.db.Create(job).Error
}

// GetByID 按ID获取同步任务
func (r *GormSyncJobRepository) GetByID(id uint) (*models.SyncJob, error) {
	if id == 0 {
		return nil, nil
	}
	var job models.SyncJob
	if err := r.db.First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// GetDoneByResource 查询某资源已完成的同步任务，取最近一条
func (r *GormSyncJobRepository) GetDoneByResource(opType, resourceID string) (*models.SyncJob, error) {
	if opType == "" || resourceID == "" {
		return nil, nil
	}
	var job models.SyncJob
	err := r.db.Where("op_type = ? AND resource_id = ? AND status = ?",
		opType, resourceID, constants.SyncJobStatusDone).
		Order("id DESC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// List 分页查询同步任务
func (r *GormSyncJobRepository) List(filter SyncJobListFilter) ([]models.SyncJob, int64, error) {
	query := r.db.Model(&models.SyncJob{})
	if filter.OpType != "" {
		query = query.Where("op_type = ?", filter.OpType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ResourceID != "" {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var jobs []models.SyncJob
	if err := query.Order("id DESC").Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// ClaimDue 抢占到期待处理的同步任务
// 先查出候选ID，再对每条做条件更新写入 claimed_by/claimed_until，
// 只有更新命中的任务归当前工作进程，多进程并发抢占互不重叠。
func (r *GormSyncJobRepository) ClaimDue(workerID string, now time.Time, claimTTL time.Duration, limit int) ([]models.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var candidateIDs []uint
	err := r.db.Model(&models.SyncJob{}).
		Where("status = ? AND next_retry_at <= ?", constants.SyncJobStatusPending, now).
		Where("claimed_until IS NULL OR claimed_until < ?", now).
		Order("next_retry_at ASC").
		Limit(limit).
		Pluck("id", &candidateIDs).Error
	if err != nil {
		return nil, err
	}
	if len(candidateIDs) == 0 {
		return []models.SyncJob{}, nil
	}

	claimedUntil := now.Add(claimTTL)
	claimedIDs := make([]uint, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		result := r.db.Model(&models.SyncJob{}).
			Where("id = ? AND status = ?", id, constants.SyncJobStatusPending).
			Where("claimed_until IS NULL OR claimed_until < ?", now).
			Updates(map[string]interface{}{
				"claimed_by":    workerID,
				"claimed_until": claimedUntil,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected > 0 {
			claimedIDs = append(claimedIDs, id)
		}
	}
	if len(claimedIDs) == 0 {
		return []models.SyncJob{}, nil
	}

	var jobs []models.SyncJob
	if err := r.db.Where("id IN ?", claimedIDs).Order("next_retry_at ASC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkDone 标记任务完成并释放抢占
func (r *GormSyncJobRepository) MarkDone(id uint, remoteID string, now time.Time) error {
	return r.db.Model(&models.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        constants.SyncJobStatusDone,
			"remote_id":     remoteID,
			"done_at":       now,
			"claimed_by":    "",
			"claimed_until": nil,
			"last_error":    "",
		}).Error
}

// MarkRetry 记录失败并安排下次重试，同时释放抢占
func (r *GormSyncJobRepository) MarkRetry(id uint, attempts int, nextRetryAt time.Time, lastError string) error {
	return r.db.Model(&models.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":      attempts,
			"next_retry_at": nextRetryAt,
			"last_error":    truncateError(lastError),
			"claimed_by":    "",
			"claimed_until": nil,
		}).Error
}

// MarkTerminal 标记任务为终态失败，保留记录供人工处理
func (r *GormSyncJobRepository) MarkTerminal(id uint, lastError string) error {
	return r.db.Model(&models.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        constants.SyncJobStatusTerminal,
			"last_error":    truncateError(lastError),
			"claimed_by":    "",
			"claimed_until": nil,
		}).Error
}

// ResetTerminal 将终态任务重置为待处理，用于人工重试
func (r *GormSyncJobRepository) ResetTerminal(id uint, now time.Time) (bool, error) {
	result := r.db.Model(&models.SyncJob{}).
		Where("id = ? AND status = ?", id, constants.SyncJobStatusTerminal).
		Updates(map[string]interface{}{
			"status":        constants.SyncJobStatusPending,
			"attempts":      0,
			"next_retry_at": now,
			"last_error":    "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseClaim 主动释放抢占，不改变任务状态
func (r *GormSyncJobRepository) ReleaseClaim(id uint) error {
	return r.db.Model(&models.SyncJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"claimed_by":    "",
			"claimed_until": nil,
		}).Error
}

// ReclaimExpired 清理抢占超时的任务，使其重新可被抢占
func (r *GormSyncJobRepository) ReclaimExpired(now time.Time) (int64, error) {
	result := r.db.Model(&models.SyncJob{}).
		Where("status = ? AND claimed_until IS NOT NULL AND claimed_until < ?", constants.SyncJobStatusPending, now).
		Updates(map[string]interface{}{
			"claimed_by":    "",
			"claimed_until": nil,
		})
	return result.RowsAffected, result.Error
}

// CountByStatus 按状态统计任务数量
func (r *GormSyncJobRepository) CountByStatus() (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	err := r.db.Model(&models.SyncJob{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func truncateError(msg string) string {
	const maxLen = 500
	if len(msg) > maxLen {
		return msg[:maxLen]
	}
	return msg
}
