// Package logging 结构化日志
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	ViewKey   ContextKey = "view"
	DomainKey ContextKey = "domain"
	UserKey   ContextKey = "username"
)

// Logger 结构化日志器
type Logger struct {
	*slog.Logger
	component string
}

// Config 日志配置
type Config struct {
	Level     string `json:"level"`
	Format    string `json:"format"` // json or text
	Output    string `json:"output"` // stdout, stderr, or file path
	Component string `json:"component"`
}

// New 创建新的日志器
func New(cfg Config) *Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var output io.Writer
	switch cfg.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			output = os.Stdout
		} else {
			output = f
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		Logger:    slog.New(handler),
		component: cfg.Component,
	}
}

// Default 创建默认日志器
func Default(component string) *Logger {
	return New(Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    os.Getenv("LOG_FORMAT"),
		Output:    "stdout",
		Component: component,
	})
}

// WithContext 从上下文提取追踪信息
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := []any{slog.String("component", l.component)}

	if view, ok := ctx.Value(ViewKey).(string); ok && view != "" {
		attrs = append(attrs, slog.String("view", view))
	}
	if domain, ok := ctx.Value(DomainKey).(string); ok && domain != "" {
		attrs = append(attrs, slog.String("domain", domain))
	}
	if user, ok := ctx.Value(UserKey).(string); ok && user != "" {
		attrs = append(attrs, slog.String("username", user))
	}

	return &Logger{
		Logger:    l.Logger.With(attrs...),
		component: l.component,
	}
}

// WithView 添加视图标识
func (l *Logger) WithView(view string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(slog.String("view", view)),
		component: l.component,
	}
}

// WithDomain 添加同步领域标识
func (l *Logger) WithDomain(domain string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(slog.String("domain", domain)),
		component: l.component,
	}
}

// WithError 添加错误信息
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{
		Logger:    l.Logger.With(slog.String("error", err.Error())),
		component: l.component,
	}
}

// SyncCycleLog 同步周期日志
func (l *Logger) SyncCycleLog(source string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("source", source),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		l.Logger.Warn("Sync cycle finished with errors", attrs...)
	} else {
		l.Logger.Debug("Sync cycle completed", attrs...)
	}
}

// AuthLog 认证操作日志
func (l *Logger) AuthLog(operation, username string, success bool) {
	l.Logger.Info("Auth operation",
		slog.String("operation", operation),
		slog.String("username", username),
		slog.Bool("success", success),
	)
}
