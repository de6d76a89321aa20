package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// ServerConfig 进程配置
type ServerConfig struct {
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Service    string `mapstructure:"service"`
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
		Level:      c.Level,
		Service:    c.Service,
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

// MetricsConfig 指标端点配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Addr 指标监听地址
func (c MetricsConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// EngineConfig 收益与佣金引擎配置
type EngineConfig struct {
	Timezone                 string `mapstructure:"timezone" validate:"required"`
	RootAccountID            uint   `mapstructure:"root_account_id" validate:"required"`
	CreditRoot               bool   `mapstructure:"credit_root"`
	CommissionPolicy         string `mapstructure:"commission_policy" validate:"oneof=investment direct_referral"`
	RequireActivationInCycle bool   `mapstructure:"require_activation_in_cycle"`
	FallbackDailyRate        string `mapstructure:"fallback_daily_rate" validate:"numeric"`
	AtomicUnit               bool   `mapstructure:"atomic_unit"`
	ItemTimeoutSeconds       int    `mapstructure:"item_timeout_seconds" validate:"gte=1,lte=3600"`
	ItemMaxRetries           int    `mapstructure:"item_max_retries" validate:"gte=0,lte=10"`
	RetryIntervalMillis      int    `mapstructure:"retry_interval_ms" validate:"gte=0"`
	RunStaleAfterMinutes     int    `mapstructure:"run_stale_after_minutes" validate:"gte=1"`
	LockTTLSeconds           int    `mapstructure:"lock_ttl_seconds" validate:"gte=1"`
	Schedule                 string `mapstructure:"schedule" validate:"required"`
	StaleSweepSeconds        int    `mapstructure:"stale_sweep_seconds" validate:"gte=0"`
}

// Location 解析参考时区
func (c EngineConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// ItemTimeout 单条处理超时
func (c EngineConfig) ItemTimeout() time.Duration {
	return time.Duration(c.ItemTimeoutSeconds) * time.Second
}

// RetryInterval 重试初始间隔
func (c EngineConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMillis) * time.Millisecond
}

// RunStaleAfter 运行中批次视为僵死的时长
func (c EngineConfig) RunStaleAfter() time.Duration {
	return time.Duration(c.RunStaleAfterMinutes) * time.Minute
}

// LockTTL 周期锁有效期
func (c EngineConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Validate 校验引擎配置
func (c EngineConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("engine 配置无效: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("engine.timezone 无效: %w", err)
	}
	rate, err := decimal.NewFromString(c.FallbackDailyRate)
	if err != nil || !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("engine.fallback_daily_rate 须在 (0, 100] 之间: %q", c.FallbackDailyRate)
	}
	return nil
}

// DefaultEngineConfig 默认引擎配置，测试与种子数据共用
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Timezone:                 "UTC",
		RootAccountID:            1,
		CreditRoot:               true,
		CommissionPolicy:         constants.CommissionPolicyInvestment,
		RequireActivationInCycle: false,
		FallbackDailyRate:        "0.266",
		AtomicUnit:               true,
		ItemTimeoutSeconds:       30,
		ItemMaxRetries:           3,
		RetryIntervalMillis:      200,
		RunStaleAfterMinutes:     120,
		LockTTLSeconds:           3600,
		Schedule:                 "5 0 * * *",
		StaleSweepSeconds:        300,
	}
}

// Load 从 config.yml 加载配置
func Load() *Config {
	// .env 文件可选，仅用于本地开发
	if err := godotenv.Load(); err == nil {
		logger.Infow("config_dotenv_loaded")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults(viper.GetViper())

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 engine.timezone -> ENGINE_TIMEZONE)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	if err := cfg.Engine.Validate(); err != nil {
		logger.Errorw("config_engine_invalid", "error", err)
		panic(err)
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	engine := DefaultEngineConfig()

	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("log.service", "profit-engine")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "engine.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/engine.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", constants.RedisPrefixDefault)
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 1)
	v.SetDefault("queue.queues", map[string]int{
		constants.QueueCritical: 5,
		constants.QueueDefault:  1,
	})
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.host", "0.0.0.0")
	v.SetDefault("metrics.port", "9464")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("engine.timezone", engine.Timezone)
	v.SetDefault("engine.root_account_id", engine.RootAccountID)
	v.SetDefault("engine.credit_root", engine.CreditRoot)
	v.SetDefault("engine.commission_policy", engine.CommissionPolicy)
	v.SetDefault("engine.require_activation_in_cycle", engine.RequireActivationInCycle)
	v.SetDefault("engine.fallback_daily_rate", engine.FallbackDailyRate)
	v.SetDefault("engine.atomic_unit", engine.AtomicUnit)
	v.SetDefault("engine.item_timeout_seconds", engine.ItemTimeoutSeconds)
	v.SetDefault("engine.item_max_retries", engine.ItemMaxRetries)
	v.SetDefault("engine.retry_interval_ms", engine.RetryIntervalMillis)
	v.SetDefault("engine.run_stale_after_minutes", engine.RunStaleAfterMinutes)
	v.SetDefault("engine.lock_ttl_seconds", engine.LockTTLSeconds)
	v.SetDefault("engine.schedule", engine.Schedule)
	v.SetDefault("engine.stale_sweep_seconds", engine.StaleSweepSeconds)
}
