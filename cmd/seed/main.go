package main

import (
	"time"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/logger"
	"github.com/puntoz/puntoz/internal/models"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加演示会员
	members := []models.Member{
		{Phone: "+8613800000001", Name: "林晓", Tier: constants.MemberTierVIP, Status: constants.MemberStatusActive},
		{Phone: "+8613800000002", Name: "王磊", Tier: constants.MemberTierStandard, Status: constants.MemberStatusActive},
		{Phone: "+8613800000003", Name: "陈雨", Tier: constants.MemberTierStandard, Status: constants.MemberStatusActive},
	}
	for _, m := range members {
		var existing models.Member
		if err := models.DB.Where("phone = ?", m.Phone).First(&existing).Error; err != nil {
			if err := models.DB.Create(&m).Error; err != nil {
				stdLog.Printf("Failed to create member %s: %v", m.Phone, err)
			} else {
				stdLog.Printf("Created member: %s", m.Phone)
			}
		} else {
			stdLog.Printf("Member already exists: %s", m.Phone)
		}
	}

	// 添加演示奖品
	rewards := []models.Reward{
		{
			Name:        "不锈钢保温杯",
			Kind:        constants.RewardKindPhysical,
			Description: "500ml 双层真空保温杯，热销兑换款",
			PointsCost:  800,
			Stock:       50,
			RetailValue: models.NewMoneyFromFloat(59.00),
			IsActive:    true,
			SortOrder:   10,
		},
		{
			Name:        "蓝牙便携音箱",
			Kind:        constants.RewardKindPhysical,
			Description: "小巧便携，续航 12 小时",
			PointsCost:  3500,
			Stock:       20,
			RetailValue: models.NewMoneyFromFloat(199.00),
			IsActive:    true,
			SortOrder:   20,
		},
		{
			Name:        "上门深度保养服务",
			Kind:        constants.RewardKindService,
			Description: "技师上门提供一次深度保养服务",
			PointsCost:  2000,
			Stock:       constants.RewardStockUnlimited,
			RetailValue: models.NewMoneyFromFloat(280.00),
			IsActive:    true,
			SortOrder:   30,
		},
	}
	for _, r := range rewards {
		var existing models.Reward
		if err := models.DB.Where("name = ?", r.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&r).Error; err != nil {
				stdLog.Printf("Failed to create reward %s: %v", r.Name, err)
			} else {
				stdLog.Printf("Created reward: %s", r.Name)
			}
		} else {
			stdLog.Printf("Reward already exists: %s", r.Name)
		}
	}

	// 添加演示礼品链接
	campaignExpiry := time.Now().Add(30 * 24 * time.Hour)
	giftLinks := []models.GiftLink{
		{
			Code:         "WELCOME2026",
			Title:        "新春感恩回馈",
			Message:      "感谢一路同行，点击领取 500 积分",
			BenefitType:  constants.GiftBenefitPoints,
			PointsAmount: 500,
			IsCampaign:   true,
			MaxClaims:    200,
			Status:       constants.GiftLinkStatusActive,
			ExpiresAt:    &campaignExpiry,
			CreatedBy:    "seed",
		},
		{
			Code:           "VIPCARE001",
			Title:          "老客户专属保养礼",
			Message:        "您的专属免费保养服务已就绪",
			BenefitType:    constants.GiftBenefitService,
			ServiceName:    "免费基础保养一次",
			ServiceValue:   models.NewMoneyFromFloat(120.00),
			RecipientPhone: "+8613800000001",
			MaxClaims:      1,
			Status:         constants.GiftLinkStatusActive,
			CreatedBy:      "seed",
		},
	}
	for _, g := range giftLinks {
		var existing models.GiftLink
		if err := models.DB.Where("code = ?", g.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&g).Error; err != nil {
				stdLog.Printf("Failed to create gift link %s: %v", g.Code, err)
			} else {
				stdLog.Printf("Created gift link: %s", g.Code)
			}
		} else {
			stdLog.Printf("Gift link already exists: %s", g.Code)
		}
	}

	// 添加演示设置
	settings := []models.Setting{
		{
			Key: "notify.templates.points_granted",
			Value: models.JSON(map[string]interface{}{
				"title": "积分到账通知",
				"body":  "您获得了 {points} 积分，当前余额 {balance}",
			}),
			Remark: "积分发放通知模板",
		},
		{
			Key: "program.display",
			Value: models.JSON(map[string]interface{}{
				"name":   "PuntoZ 会员计划",
				"slogan": "积分常在，权益常新",
			}),
			Remark: "小程序展示文案",
		},
	}
	for _, s := range settings {
		var existing models.Setting
		if err := models.DB.Where("key = ?", s.Key).First(&existing).Error; err != nil {
			if err := models.DB.Create(&s).Error; err != nil {
				stdLog.Printf("Failed to create setting %s: %v", s.Key, err)
			} else {
				stdLog.Printf("Created setting: %s", s.Key)
			}
		} else {
			stdLog.Printf("Setting already exists: %s", s.Key)
		}
	}

	stdLog.Printf("Seed data initialized")
}
