// Package config 提供配置管理
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/paiban/kebiao/pkg/scheduler/score"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Input     InputConfig     `mapstructure:"input"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Addr 返回Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SchedulerConfig 排课引擎配置
type SchedulerConfig struct {
	Attempts       int           `mapstructure:"attempts"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Seed           int64         `mapstructure:"seed"` // 0 表示随机
	Sequential     bool          `mapstructure:"sequential"`
	SemesterWeeks  int           `mapstructure:"semester_weeks"`
	MinFreePeriods int           `mapstructure:"min_free_periods"`
	Weights        score.Weights `mapstructure:"weights"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

// InputConfig 数据来源配置
type InputConfig struct {
	Source string `mapstructure:"source"` // csv/postgres
	Dir    string `mapstructure:"dir"`
}

// 环境变量与配置键的对应关系
var envKeys = map[string]string{
	"app.name":                            "APP_NAME",
	"app.env":                             "APP_ENV",
	"app.log_level":                       "APP_LOG_LEVEL",
	"app.log_format":                      "APP_LOG_FORMAT",
	"database.host":                       "DB_HOST",
	"database.port":                       "DB_PORT",
	"database.name":                       "DB_NAME",
	"database.user":                       "DB_USER",
	"database.password":                   "DB_PASSWORD",
	"database.ssl_mode":                   "DB_SSL_MODE",
	"database.max_open_conns":             "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns":             "DB_MAX_IDLE_CONNS",
	"database.conn_max_lifetime":          "DB_CONN_MAX_LIFETIME",
	"redis.enabled":                       "REDIS_ENABLED",
	"redis.host":                          "REDIS_HOST",
	"redis.port":                          "REDIS_PORT",
	"redis.password":                      "REDIS_PASSWORD",
	"redis.db":                            "REDIS_DB",
	"redis.pool_size":                     "REDIS_POOL_SIZE",
	"redis.cache_ttl":                     "CACHE_TTL",
	"scheduler.attempts":                  "SCHEDULER_ATTEMPTS",
	"scheduler.timeout":                   "SCHEDULER_TIMEOUT",
	"scheduler.seed":                      "SCHEDULER_SEED",
	"scheduler.sequential":                "SCHEDULER_SEQUENTIAL",
	"scheduler.semester_weeks":            "SCHEDULER_SEMESTER_WEEKS",
	"scheduler.min_free_periods":          "SCHEDULER_MIN_FREE_PERIODS",
	"scheduler.weights.base":              "SCORE_BASE",
	"scheduler.weights.violation_penalty": "SCORE_VIOLATION_PENALTY",
	"scheduler.weights.workload_penalty":  "SCORE_WORKLOAD_PENALTY",
	"scheduler.weights.room_bonus":        "SCORE_ROOM_BONUS",
	"scheduler.weights.idle_gap_penalty":  "SCORE_IDLE_GAP_PENALTY",
	"metrics.enabled":                     "METRICS_ENABLED",
	"metrics.textfile":                    "METRICS_TEXTFILE",
	"input.source":                        "INPUT_SOURCE",
	"input.dir":                           "INPUT_DIR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "kebiao")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "kebiao")
	v.SetDefault("database.user", "kebiao")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.cache_ttl", 24*time.Hour)

	v.SetDefault("scheduler.attempts", 3)
	v.SetDefault("scheduler.timeout", 30*time.Second)
	v.SetDefault("scheduler.seed", 0)
	v.SetDefault("scheduler.sequential", false)
	v.SetDefault("scheduler.semester_weeks", 16)
	v.SetDefault("scheduler.min_free_periods", 2)

	w := score.DefaultWeights()
	v.SetDefault("scheduler.weights.base", w.Base)
	v.SetDefault("scheduler.weights.violation_penalty", w.ViolationPenalty)
	v.SetDefault("scheduler.weights.workload_penalty", w.WorkloadPenalty)
	v.SetDefault("scheduler.weights.room_bonus", w.RoomBonus)
	v.SetDefault("scheduler.weights.idle_gap_penalty", w.IdleGapPenalty)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("input.source", "csv")
	v.SetDefault("input.dir", "./data")
}

// Load 从环境变量和当前目录下的 .env 加载配置
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile 从环境变量和指定的 env 文件加载配置，文件不存在时忽略
//
// 环境变量优先于文件中的值。
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s 失败: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Input.Source {
	case "csv", "postgres":
	default:
		return fmt.Errorf("INPUT_SOURCE 只能是 csv 或 postgres，当前为 %q", c.Input.Source)
	}
	if c.Scheduler.Attempts < 1 {
		return fmt.Errorf("SCHEDULER_ATTEMPTS 必须大于 0")
	}
	if c.Scheduler.Timeout <= 0 {
		return fmt.Errorf("SCHEDULER_TIMEOUT 必须大于 0")
	}
	w := c.Scheduler.Weights
	if w.ViolationPenalty < 0 || w.WorkloadPenalty < 0 || w.RoomBonus < 0 || w.IdleGapPenalty < 0 {
		return fmt.Errorf("SCORE_* 评分权重不能为负数")
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}
