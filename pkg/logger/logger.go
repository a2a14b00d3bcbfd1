// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

type ctxKey string

// RequestIDKey 上下文中的请求ID键
const RequestIDKey ctxKey = "request_id"

// Config 日志配置
type Config struct {
	Level      string `mapstructure:"level" json:"level"`
	Format     string `mapstructure:"format" json:"format"` // json/console
	Output     string `mapstructure:"output" json:"output"` // stdout/stderr/file
	FilePath   string `mapstructure:"file_path" json:"file_path,omitempty"`
	TimeFormat string `mapstructure:"time_format" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，只有第一次调用生效
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))
		logger = zerolog.New(openOutput(cfg)).With().Timestamp().Logger()
	})
}

func openOutput(cfg Config) io.Writer {
	var output io.Writer = os.Stdout
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "file":
		if cfg.FilePath != "" {
			if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				output = f
			}
		}
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
		}
	}
	return output
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器，未初始化时使用默认配置
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}
	return &l
}

// ContextWithRequestID 在上下文中写入请求ID
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// SchedulerLogger 排课引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排课引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// NewSchedulerLoggerFrom 基于指定日志器创建，测试中传入 zerolog.Nop()
func NewSchedulerLoggerFrom(base zerolog.Logger) *SchedulerLogger {
	l := base.With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// StartGeneration 记录生成开始
func (l *SchedulerLogger) StartGeneration(runID string, batches, classrooms, attempts int, constraints map[string]interface{}) {
	l.base.Info().
		Str("run_id", runID).
		Int("batches", batches).
		Int("classrooms", classrooms).
		Int("attempts", attempts).
		Interface("constraints", constraints).
		Msg("开始生成课表")
}

// AttemptComplete 记录单次尝试完成
func (l *SchedulerLogger) AttemptComplete(runID string, attempt, entries, violations int, score float64) {
	l.base.Info().
		Str("run_id", runID).
		Int("attempt", attempt).
		Int("entries", entries).
		Int("violations", violations).
		Float64("score", score).
		Msg("排课尝试完成")
}

// AttemptDiscarded 记录空尝试被丢弃
func (l *SchedulerLogger) AttemptDiscarded(runID string, attempt, violations int) {
	l.base.Warn().
		Str("run_id", runID).
		Int("attempt", attempt).
		Int("violations", violations).
		Msg("排课尝试未产生任何课次，已丢弃")
}

// ConstraintViolation 记录约束违反
func (l *SchedulerLogger) ConstraintViolation(violationType, message string) {
	l.base.Warn().
		Str("constraint", violationType).
		Str("details", message).
		Msg("约束违反")
}

// PlacementRejected 记录候选时段被拒绝
func (l *SchedulerLogger) PlacementRejected(batchID, subjectID string, day int, start, reason string) {
	l.base.Debug().
		Str("batch_id", batchID).
		Str("subject_id", subjectID).
		Int("day", day).
		Str("start", start).
		Str("reason", reason).
		Msg("候选时段被拒绝")
}

// GenerationComplete 记录生成完成
func (l *SchedulerLogger) GenerationComplete(runID string, duration time.Duration, candidates int, bestScore float64) {
	l.base.Info().
		Str("run_id", runID).
		Dur("duration", duration).
		Int("candidates", candidates).
		Float64("best_score", bestScore).
		Msg("课表生成完成")
}

// GenerationFailed 记录生成失败
func (l *SchedulerLogger) GenerationFailed(runID string, duration time.Duration, violations int) {
	l.base.Error().
		Str("run_id", runID).
		Dur("duration", duration).
		Int("violations", violations).
		Msg("所有排课尝试均为空，生成失败")
}
