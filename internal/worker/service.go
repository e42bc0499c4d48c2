package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/logger"
	"github.com/puntoz/puntoz/internal/queue"

	"github.com/hibiken/asynq"
)

const referralExpireInterval = time.Minute

// Service 后台处理服务
// 承载 outbox 轮询、认领超时回收、推荐关系过期扫描与异步队列消费
type Service struct {
	name     string
	cfg      *config.Config
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	workerID string
}

// WorkerID 生成本进程的 worker 标识
func WorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// NewService 创建后台处理服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}

	s := &Service{
		name:     "worker",
		cfg:      cfg,
		consumer: consumer,
		workerID: consumer.workerID,
	}

	// 队列禁用时仅运行轮询循环，outbox 不依赖 Redis
	if cfg.Queue.Enabled {
		opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
		s.server = asynq.NewServer(opt, serverCfg)
		s.mux = asynq.NewServeMux()
		consumer.Register(s.mux)
	}
	return s, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	go s.runOutboxPollLoop(ctx)
	go s.runReclaimLoop(ctx)
	go s.runReferralExpireLoop(ctx)

	if s.server != nil && s.mux != nil {
		return s.server.Run(s.mux)
	}
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runOutboxPollLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.SyncService == nil {
		return
	}
	interval := time.Duration(s.cfg.Outbox.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	runOnce := func() {
		processed, err := s.consumer.SyncService.ProcessDue(ctx, s.workerID)
		if err != nil {
			logger.Warnw("worker_outbox_poll_failed", "worker_id", s.workerID, "error", err)
			return
		}
		if processed > 0 {
			logger.Debugw("worker_outbox_poll_processed", "worker_id", s.workerID, "count", processed)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Service) runReclaimLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.SyncService == nil {
		return
	}
	interval := time.Duration(s.cfg.Outbox.ReclaimCheckSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := s.consumer.SyncService.ReclaimExpired()
			if err != nil {
				logger.Warnw("worker_reclaim_failed", "worker_id", s.workerID, "error", err)
				continue
			}
			if reclaimed > 0 {
				logger.Infow("worker_reclaim_released", "worker_id", s.workerID, "count", reclaimed)
			}
		}
	}
}

func (s *Service) runReferralExpireLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ReferralService == nil {
		return
	}
	limit := s.cfg.Outbox.RetrySweepBatchLimit
	if limit <= 0 {
		limit = 100
	}
	ticker := time.NewTicker(referralExpireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.consumer.ReferralService.ExpireOverdue(limit)
			if err != nil {
				logger.Warnw("worker_referral_expire_failed", "error", err)
				continue
			}
			if expired > 0 {
				logger.Infow("worker_referral_expired", "count", expired)
			}
		}
	}
}
