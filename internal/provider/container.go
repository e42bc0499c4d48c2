package provider

import (
	"time"

	"github.com/puntoz/puntoz/internal/authz"
	"github.com/puntoz/puntoz/internal/cache"
	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/crm"
	"github.com/puntoz/puntoz/internal/logger"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/queue"
	"github.com/puntoz/puntoz/internal/repository"
	"github.com/puntoz/puntoz/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	CRMClient   *crm.Client

	// Repositories
	AdminRepo        repository.AdminRepository
	MemberRepo       repository.MemberRepository
	LedgerRepo       repository.LedgerRepository
	RewardRepo       repository.RewardRepository
	RedemptionRepo   repository.RedemptionRepository
	GiftLinkRepo     repository.GiftLinkRepository
	ReferralRepo     repository.ReferralRepository
	SyncJobRepo      repository.SyncJobRepository
	NotificationRepo repository.NotificationRepository
	SettingRepo      repository.SettingRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	SettingService      *service.SettingService
	NotificationService *service.NotificationService
	SyncService         *service.SyncService
	LedgerService       *service.LedgerService
	MemberService       *service.MemberService
	ReferralService     *service.ReferralService
	GiftLinkService     *service.GiftLinkService
	RewardService       *service.RewardService
	RedemptionService   *service.RedemptionService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		CRMClient: crm.NewClient(crm.Config{
			BaseURL: cfg.CRM.BaseURL,
			Token:   cfg.CRM.Token,
			Timeout: time.Duration(cfg.CRM.TimeoutSeconds) * time.Second,
		}),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.MemberRepo = repository.NewMemberRepository(db)
	c.LedgerRepo = repository.NewLedgerRepository(db)
	c.RewardRepo = repository.NewRewardRepository(db)
	c.RedemptionRepo = repository.NewRedemptionRepository(db)
	c.GiftLinkRepo = repository.NewGiftLinkRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.SyncJobRepo = repository.NewSyncJobRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
}

// initServices 按依赖顺序装配服务
// Notification → Sync → Ledger → Member → Referral → GiftLink → Redemption
func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.AdminRepo, c.Config.JWT)
	c.SettingService = service.NewSettingService(c.SettingRepo, c.Config.Program.SettingCacheTTLSeconds)
	c.NotificationService = service.NewNotificationService(c.NotificationRepo, c.QueueClient, nil)
	c.SyncService = service.NewSyncService(c.SyncJobRepo, c.MemberRepo, c.CRMClient, c.QueueClient, c.NotificationService, c.Config.Outbox)
	c.LedgerService = service.NewLedgerService(c.MemberRepo, c.LedgerRepo, c.SyncService, c.NotificationService)
	c.MemberService = service.NewMemberService(c.MemberRepo, c.LedgerRepo, c.LedgerService, c.SyncService, c.Config.Program)
	c.ReferralService = service.NewReferralService(c.ReferralRepo, c.MemberRepo, c.MemberService, c.LedgerService, c.SyncService, c.NotificationService, c.Config.Program)
	c.GiftLinkService = service.NewGiftLinkService(c.GiftLinkRepo, c.MemberRepo, c.MemberService, c.LedgerService, c.SyncService, c.NotificationService, c.Config.Program)
	c.RewardService = service.NewRewardService(c.RewardRepo)
	c.RedemptionService = service.NewRedemptionService(c.MemberRepo, c.RewardRepo, c.RedemptionRepo, c.LedgerService, c.ReferralService, c.SyncService, c.NotificationService)
}
