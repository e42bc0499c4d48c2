package config

import (
	"fmt"
	"strings"

	"github.com/puntoz/puntoz/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	API      APIConfig      `mapstructure:"api"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	CRM      CRMConfig      `mapstructure:"crm"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Program  ProgramConfig  `mapstructure:"program"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 管理端 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// APIConfig 内部接口访问令牌配置
type APIConfig struct {
	Tokens []string `mapstructure:"tokens"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit RateLimitConfig `mapstructure:"login_rate_limit"`
	ClaimRateLimit RateLimitConfig `mapstructure:"claim_rate_limit"`
}

// CRMConfig 外部 CRM 配置
type CRMConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// OutboxConfig 同步队列（outbox）配置
type OutboxConfig struct {
	PollIntervalSeconds  int `mapstructure:"poll_interval_seconds"`
	BatchSize            int `mapstructure:"batch_size"`
	ClaimTTLSeconds      int `mapstructure:"claim_ttl_seconds"`
	MaxAttempts          int `mapstructure:"max_attempts"`
	BackoffBaseSeconds   int `mapstructure:"backoff_base_seconds"`
	BackoffMaxSeconds    int `mapstructure:"backoff_max_seconds"`
	ReclaimCheckSeconds  int `mapstructure:"reclaim_check_seconds"`
	ImmediateTimeoutMS   int `mapstructure:"immediate_timeout_ms"`
	RetrySweepBatchLimit int `mapstructure:"retry_sweep_batch_limit"`
}

// ProgramConfig 积分计划默认配置
type ProgramConfig struct {
	WelcomeBonusPoints      int64 `mapstructure:"welcome_bonus_points"`
	ReferrerRewardPoints    int64 `mapstructure:"referrer_reward_points"`
	ReferredRewardPoints    int64 `mapstructure:"referred_reward_points"`
	ReferralWindowDays      int   `mapstructure:"referral_window_days"`
	ReferralMaxUses         int   `mapstructure:"referral_max_uses"`
	SettingCacheTTLSeconds  int   `mapstructure:"setting_cache_ttl_seconds"`
	GiftLinkDefaultTTLHours int   `mapstructure:"gift_link_default_ttl_hours"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "puntoz.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/puntoz.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("api.tokens", []string{})
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "pz")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.login_rate_limit.window_seconds", 300)
	viper.SetDefault("security.login_rate_limit.max_attempts", 5)
	viper.SetDefault("security.login_rate_limit.block_seconds", 900)
	viper.SetDefault("security.claim_rate_limit.window_seconds", 60)
	viper.SetDefault("security.claim_rate_limit.max_attempts", 10)
	viper.SetDefault("security.claim_rate_limit.block_seconds", 300)
	viper.SetDefault("crm.base_url", "")
	viper.SetDefault("crm.token", "")
	viper.SetDefault("crm.timeout_seconds", 10)
	viper.SetDefault("outbox.poll_interval_seconds", 15)
	viper.SetDefault("outbox.batch_size", 20)
	viper.SetDefault("outbox.claim_ttl_seconds", 120)
	viper.SetDefault("outbox.max_attempts", 12)
	viper.SetDefault("outbox.backoff_base_seconds", 30)
	viper.SetDefault("outbox.backoff_max_seconds", 3600)
	viper.SetDefault("outbox.reclaim_check_seconds", 60)
	viper.SetDefault("outbox.immediate_timeout_ms", 2000)
	viper.SetDefault("program.welcome_bonus_points", 0)
	viper.SetDefault("program.referrer_reward_points", 100)
	viper.SetDefault("program.referred_reward_points", 50)
	viper.SetDefault("program.referral_window_days", 30)
	viper.SetDefault("program.referral_max_uses", 50)
	viper.SetDefault("program.setting_cache_ttl_seconds", 60)
	viper.SetDefault("program.gift_link_default_ttl_hours", 72)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("配置文件未找到，使用默认配置")
		} else {
			fmt.Printf("读取配置文件失败: %v，使用默认配置\n", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Printf("解析配置失败: %v，使用默认配置\n", err)
		return defaultConfig()
	}
	normalize(&cfg)
	return &cfg
}

func defaultConfig() *Config {
	var cfg Config
	_ = viper.Unmarshal(&cfg)
	normalize(&cfg)
	return &cfg
}

func normalize(cfg *Config) {
	cfg.Server.Mode = strings.ToLower(strings.TrimSpace(cfg.Server.Mode))
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Outbox.BatchSize <= 0 {
		cfg.Outbox.BatchSize = 20
	}
	if cfg.Outbox.MaxAttempts <= 0 {
		cfg.Outbox.MaxAttempts = 12
	}
	if cfg.Outbox.BackoffBaseSeconds <= 0 {
		cfg.Outbox.BackoffBaseSeconds = 30
	}
	if cfg.Outbox.BackoffMaxSeconds < cfg.Outbox.BackoffBaseSeconds {
		cfg.Outbox.BackoffMaxSeconds = cfg.Outbox.BackoffBaseSeconds
	}
}
