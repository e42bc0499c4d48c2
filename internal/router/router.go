package router

import (
	"fmt"
	"strings"

	"github.com/puntoz/puntoz/internal/cache"
	"github.com/puntoz/puntoz/internal/config"
	adminhandlers "github.com/puntoz/puntoz/internal/http/handlers/admin"
	publichandlers "github.com/puntoz/puntoz/internal/http/handlers/public"
	"github.com/puntoz/puntoz/internal/logger"
	"github.com/puntoz/puntoz/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pz"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "too many login attempts",
	}
	claimRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:gift_claim", redisPrefix),
		WindowSeconds: cfg.Security.ClaimRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ClaimRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.ClaimRateLimit.BlockSeconds,
		Message:       "too many claim attempts",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 礼品链接公开接口
		gifts := apiV1.Group("/gifts")
		{
			gifts.GET("/:code", publicHandler.ViewGiftLink)
			gifts.POST("/:code/claim", RateLimitMiddleware(redisClient, claimRule, KeyByIPAndJSONField("phone")), publicHandler.ClaimGiftLink)
		}

		// 管理端接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIP), adminHandler.AdminLogin)

			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/profile", adminHandler.GetProfile)
				authorized.POST("/change-password", adminHandler.ChangePassword)

				// 会员
				authorized.GET("/members", adminHandler.GetMembers)
				authorized.POST("/members", adminHandler.CreateMember)
				authorized.GET("/members/:id", adminHandler.GetMember)
				authorized.PUT("/members/:id", adminHandler.UpdateMember)
				authorized.POST("/members/:id/grant", adminHandler.GrantMemberPoints)
				authorized.GET("/members/:id/ledger", adminHandler.GetMemberLedger)
				authorized.GET("/members/:id/balance-check", adminHandler.CheckMemberBalance)
				authorized.GET("/members/:id/referral-code", adminHandler.GetMemberReferralCode)

				// 积分流水
				authorized.GET("/ledger", adminHandler.GetLedgerEntries)

				// 奖品
				authorized.GET("/rewards", adminHandler.GetRewards)
				authorized.POST("/rewards", adminHandler.CreateReward)
				authorized.GET("/rewards/:id", adminHandler.GetReward)
				authorized.PUT("/rewards/:id", adminHandler.UpdateReward)
				authorized.DELETE("/rewards/:id", adminHandler.DeleteReward)

				// 兑换
				authorized.GET("/redemptions", adminHandler.GetRedemptions)
				authorized.POST("/redemptions", adminHandler.CreateRedemption)
				authorized.GET("/redemptions/:id", adminHandler.GetRedemption)
				authorized.POST("/redemptions/:id/deliver", adminHandler.DeliverRedemption)
				authorized.POST("/redemptions/:id/revert", adminHandler.RevertRedemption)

				// 礼品链接
				authorized.GET("/gift-links", adminHandler.GetGiftLinks)
				authorized.POST("/gift-links", adminHandler.CreateGiftLink)
				authorized.GET("/gift-links/:id", adminHandler.GetGiftLink)
				authorized.POST("/gift-links/:id/disable", adminHandler.DisableGiftLink)
				authorized.GET("/gift-links/:id/claims", adminHandler.GetGiftLinkClaims)

				// 推荐
				authorized.GET("/referrals", adminHandler.GetReferrals)

				// 同步队列
				authorized.GET("/sync-jobs", adminHandler.GetSyncJobs)
				authorized.GET("/sync-jobs/stats", adminHandler.GetSyncStats)
				authorized.GET("/sync-jobs/:id", adminHandler.GetSyncJob)
				authorized.POST("/sync-jobs/:id/retry", adminHandler.RetrySyncJob)
				authorized.POST("/sync-jobs/reclaim", adminHandler.ReclaimSyncJobs)

				// 通知
				authorized.GET("/notifications", adminHandler.GetNotifications)

				// 设置
				authorized.GET("/settings", adminHandler.GetSettings)
				authorized.GET("/settings/:key", adminHandler.GetSetting)
				authorized.PUT("/settings/:key", adminHandler.SetSetting)

				// 角色策略
				authorized.GET("/roles", adminHandler.GetRoles)
				authorized.GET("/roles/:role/policies", adminHandler.GetRolePolicies)
				authorized.POST("/roles/:role/policies", adminHandler.GrantRolePolicy)
				authorized.DELETE("/roles/:role/policies", adminHandler.RevokeRolePolicy)
				authorized.GET("/admins/:id/roles", adminHandler.GetAdminRoles)
				authorized.PUT("/admins/:id/roles", adminHandler.SetAdminRoles)
			}
		}
	}

	// 内部接口（POS / CRM 集成，静态令牌鉴权）
	internalV1 := r.Group("/internal/v1")
	internalV1.Use(APITokenMiddleware(cfg.API))
	{
		internalV1.POST("/members", publicHandler.InternalFindOrCreateMember)
		internalV1.GET("/members/by-phone", publicHandler.InternalGetMemberByPhone)
		internalV1.GET("/members/:id/balance", publicHandler.InternalGetMemberBalance)
		internalV1.GET("/members/:id/ledger", publicHandler.InternalGetMemberLedger)
		internalV1.POST("/points/grant", publicHandler.InternalGrantPoints)
		internalV1.POST("/redemptions", publicHandler.InternalCreateRedemption)
		internalV1.POST("/referrals/apply", publicHandler.InternalApplyReferral)
	}

	// 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
