package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/crm"
	"github.com/puntoz/puntoz/internal/logger"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/queue"
	"github.com/puntoz/puntoz/internal/repository"

	"gorm.io/gorm"
)

// SyncService 外部 CRM 同步服务（发件箱）
// 同步任务与业务数据在同一事务写入，提交后先尝试一次立即同步，
// 失败则留给后台按指数退避重试，达到最大次数或遇到永久性拒绝进入终态。
type SyncService struct {
	syncRepo   repository.SyncJobRepository
	memberRepo repository.MemberRepository
	client     *crm.Client
	queueCli   *queue.Client
	notifSvc   *NotificationService
	cfg        config.OutboxConfig
}

// NewSyncService 创建同步服务
func NewSyncService(
	syncRepo repository.SyncJobRepository,
	memberRepo repository.MemberRepository,
	client *crm.Client,
	queueCli *queue.Client,
	notifSvc *NotificationService,
	cfg config.OutboxConfig,
) *SyncService {
	return &SyncService{
		syncRepo:   syncRepo,
		memberRepo: memberRepo,
		client:     client,
		queueCli:   queueCli,
		notifSvc:   notifSvc,
		cfg:        cfg,
	}
}

// TicketPayload 工单同步载荷
type TicketPayload struct {
	Kind    string                 `json:"kind"`
	Subject string                 `json:"subject"`
	Body    string                 `json:"body"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// StatusPayload 状态同步载荷
type StatusPayload struct {
	RemoteID string `json:"remote_id"`
	Status   string `json:"status"`
	Note     string `json:"note,omitempty"`
}

// EnqueueTx 在事务内写入同步任务
func (s *SyncService) EnqueueTx(tx *gorm.DB, opType, resourceID string, payload interface{}, source string) (*models.SyncJob, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	job := &models.SyncJob{
		OpType:      opType,
		ResourceID:  resourceID,
		Payload:     string(body),
		Source:      source,
		Status:      constants.SyncJobStatusPending,
		NextRetryAt: time.Now(),
	}
	if err := s.syncRepo.WithTx(tx).Create(job); err != nil {
		return nil, err
	}
	return job, nil
}

// EnqueueAccountSyncTx 在事务内写入账户同步任务
func (s *SyncService) EnqueueAccountSyncTx(tx *gorm.DB, member *models.Member, source string) (*models.SyncJob, error) {
	if member == nil {
		return nil, ErrMemberNotFound
	}
	payload := crm.AccountInput{
		Phone:  member.Phone,
		Name:   member.Name,
		Tier:   member.Tier,
		Points: member.Points,
	}
	return s.EnqueueTx(tx, constants.SyncOpAccountSync, strconv.FormatUint(uint64(member.ID), 10), payload, source)
}

// AfterCommit 事务提交后处理：立即尝试同步一次，并投递唤醒任务兜底
func (s *SyncService) AfterCommit(jobs ...*models.SyncJob) {
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := s.queueCli.EnqueueSyncKick(queue.SyncKickPayload{SyncJobID: job.ID}, 0); err != nil {
			logger.Warnw("sync_enqueue_kick_failed", "sync_job_id", job.ID, "error", err)
		}
		s.attemptImmediate(job.ID)
	}
}

// attemptImmediate 对指定任务做一次短超时的立即同步
func (s *SyncService) attemptImmediate(jobID uint) {
	timeout := time.Duration(s.cfg.ImmediateTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.ProcessOne(ctx, jobID, "immediate"); err != nil {
		logger.Debugw("sync_immediate_attempt_deferred", "sync_job_id", jobID, "error", err)
	}
}

// ProcessOne 抢占并处理单个任务
// 任务不存在、已完成或被其他进程持有时直接返回 nil。
func (s *SyncService) ProcessOne(ctx context.Context, jobID uint, workerID string) error {
	now := time.Now()
	claimTTL := s.claimTTL()
	claimed, err := s.claimOne(jobID, workerID, now, claimTTL)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	job, err := s.syncRepo.GetByID(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}
	return s.process(ctx, job)
}

// ProcessDue 抢占并处理一批到期任务，返回处理数量
func (s *SyncService) ProcessDue(ctx context.Context, workerID string) (int, error) {
	batch := s.cfg.BatchSize
	if batch <= 0 {
		batch = 20
	}
	jobs, err := s.syncRepo.ClaimDue(workerID, time.Now(), s.claimTTL(), batch)
	if err != nil {
		return 0, err
	}
	processed := 0
	for i := range jobs {
		if ctx.Err() != nil {
			_ = s.syncRepo.ReleaseClaim(jobs[i].ID)
			break
		}
		if err := s.process(ctx, &jobs[i]); err != nil {
			logger.Warnw("sync_job_process_failed", "sync_job_id", jobs[i].ID, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// ReclaimExpired 清理抢占超时的任务
func (s *SyncService) ReclaimExpired() (int64, error) {
	return s.syncRepo.ReclaimExpired(time.Now())
}

// RetryTerminal 人工重置终态任务重新排队
func (s *SyncService) RetryTerminal(jobID uint) error {
	job, err := s.syncRepo.GetByID(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrSyncJobNotFound
	}
	reset, err := s.syncRepo.ResetTerminal(jobID, time.Now())
	if err != nil {
		return err
	}
	if !reset {
		return ErrSyncJobNotTerminal
	}
	if err := s.queueCli.EnqueueSyncKick(queue.SyncKickPayload{SyncJobID: jobID}, 0); err != nil {
		logger.Warnw("sync_enqueue_kick_failed", "sync_job_id", jobID, "error", err)
	}
	return nil
}

// List 分页查询同步任务
func (s *SyncService) List(filter repository.SyncJobListFilter) ([]models.SyncJob, int64, error) {
	return s.syncRepo.List(filter)
}

// CountByStatus 按状态统计任务数量
func (s *SyncService) CountByStatus() (map[string]int64, error) {
	return s.syncRepo.CountByStatus()
}

// Backoff 计算第 attempt 次失败后的重试间隔
// 基数按失败次数翻倍，封顶于配置上限，保证间隔单调不减。
func (s *SyncService) Backoff(attempt int) time.Duration {
	base := time.Duration(s.cfg.BackoffBaseSeconds) * time.Second
	if base <= 0 {
		base = 30 * time.Second
	}
	max := time.Duration(s.cfg.BackoffMaxSeconds) * time.Second
	if max <= 0 {
		max = 30 * time.Minute
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func (s *SyncService) claimTTL() time.Duration {
	ttl := time.Duration(s.cfg.ClaimTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return ttl
}

func (s *SyncService) maxAttempts() int {
	if s.cfg.MaxAttempts > 0 {
		return s.cfg.MaxAttempts
	}
	return 8
}

// claimOne 条件抢占单个任务
func (s *SyncService) claimOne(jobID uint, workerID string, now time.Time, ttl time.Duration) (bool, error) {
	result := models.DB.Model(&models.SyncJob{}).
		Where("id = ? AND status = ? AND next_retry_at <= ?", jobID, constants.SyncJobStatusPending, now).
		Where("claimed_until IS NULL OR claimed_until < ?", now).
		Updates(map[string]interface{}{
			"claimed_by":    workerID,
			"claimed_until": now.Add(ttl),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// process 执行单个已抢占任务并落地结果
func (s *SyncService) process(ctx context.Context, job *models.SyncJob) error {
	remoteID, err := s.dispatch(ctx, job)
	now := time.Now()
	if err == nil {
		if markErr := s.syncRepo.MarkDone(job.ID, remoteID, now); markErr != nil {
			return markErr
		}
		logger.Infow("sync_job_done", "sync_job_id", job.ID, "op_type", job.OpType, "remote_id", remoteID)
		return nil
	}

	attempts := job.Attempts + 1
	if crm.Permanent(err) || attempts >= s.maxAttempts() {
		if markErr := s.syncRepo.MarkTerminal(job.ID, err.Error()); markErr != nil {
			return markErr
		}
		logger.Errorw("sync_job_terminal", "sync_job_id", job.ID, "op_type", job.OpType, "attempts", attempts, "error", err)
		s.notifyTerminal(job, err)
		return nil
	}

	nextRetryAt := now.Add(s.Backoff(attempts))
	if markErr := s.syncRepo.MarkRetry(job.ID, attempts, nextRetryAt, err.Error()); markErr != nil {
		return markErr
	}
	logger.Warnw("sync_job_retry_scheduled",
		"sync_job_id", job.ID,
		"op_type", job.OpType,
		"attempts", attempts,
		"next_retry_at", nextRetryAt,
		"error", err,
	)
	return nil
}

// dispatch 按操作类型调用 CRM
func (s *SyncService) dispatch(ctx context.Context, job *models.SyncJob) (string, error) {
	switch job.OpType {
	case constants.SyncOpAccountSync:
		var input crm.AccountInput
		if err := json.Unmarshal([]byte(job.Payload), &input); err != nil {
			return "", fmt.Errorf("%w: %v", crm.ErrRejected, err)
		}
		result, err := s.client.SyncAccount(ctx, input)
		if err != nil {
			return "", err
		}
		s.recordMemberSynced(job.ResourceID, result.RemoteID)
		return result.RemoteID, nil

	case constants.SyncOpTicketCreate:
		var payload TicketPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return "", fmt.Errorf("%w: %v", crm.ErrRejected, err)
		}
		result, err := s.client.CreateTicket(ctx, crm.TicketInput{
			IdempotencyKey: fmt.Sprintf("job:%d", job.ID),
			Kind:           payload.Kind,
			Subject:        payload.Subject,
			Body:           payload.Body,
			Fields:         payload.Fields,
		})
		if err != nil {
			return "", err
		}
		return result.RemoteID, nil

	case constants.SyncOpStatusUpdate:
		var payload StatusPayload
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			return "", fmt.Errorf("%w: %v", crm.ErrRejected, err)
		}
		// 远端工单号在工单同步完成前未知，这里按资源回查；
		// 上游工单尚未同步完成时按可重试失败处理，等下一轮。
		if payload.RemoteID == "" {
			ticketJob, err := s.syncRepo.GetDoneByResource(constants.SyncOpTicketCreate, job.ResourceID)
			if err != nil {
				return "", err
			}
			if ticketJob == nil || ticketJob.RemoteID == "" {
				return "", fmt.Errorf("%w: upstream ticket not synced yet", crm.ErrUnavailable)
			}
			payload.RemoteID = ticketJob.RemoteID
		}
		err := s.client.UpdateStatus(ctx, crm.StatusUpdateInput{
			RemoteID: payload.RemoteID,
			Status:   payload.Status,
			Note:     payload.Note,
		})
		if err != nil {
			return "", err
		}
		return payload.RemoteID, nil

	default:
		return "", fmt.Errorf("%w: unknown op type %s", crm.ErrRejected, job.OpType)
	}
}

// recordMemberSynced 回写会员的远端账户标识
func (s *SyncService) recordMemberSynced(resourceID, remoteID string) {
	memberID, err := strconv.ParseUint(resourceID, 10, 64)
	if err != nil || memberID == 0 {
		return
	}
	now := time.Now()
	err = models.DB.Model(&models.Member{}).
		Where("id = ?", uint(memberID)).
		Updates(map[string]interface{}{
			"crm_remote_id": remoteID,
			"crm_synced_at": now,
		}).Error
	if err != nil {
		logger.Warnw("sync_member_remote_id_write_failed", "member_id", memberID, "error", err)
	}
}

// notifyTerminal 终态任务通知管理员
func (s *SyncService) notifyTerminal(job *models.SyncJob, cause error) {
	notif, err := s.notifSvc.Emit(EmitInput{
		Event:    constants.NotifyEventSyncTerminal,
		Audience: constants.NotifyAudienceAdmins,
		Title:    "同步任务失败",
		Body:     fmt.Sprintf("任务 #%d（%s）已达最大重试次数或被永久拒绝：%v", job.ID, job.OpType, cause),
		Payload:  models.JSON{"sync_job_id": job.ID, "op_type": job.OpType, "resource_id": job.ResourceID},
	})
	if err != nil {
		logger.Warnw("sync_terminal_notify_failed", "sync_job_id", job.ID, "error", err)
		return
	}
	s.notifSvc.DispatchAfterCommit(notif)
}
