package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

var (
	mu        sync.RWMutex
	debugMode = false
	log       = newLogger(os.Stdout, false)
)

func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetDebug 设置是否开启调试模式 (调试模式下使用控制台格式输出)
func SetDebug(debug bool) {
	SetOutput(os.Stdout, debug)
}

// SetOutput 替换日志输出，主要用于测试
func SetOutput(w io.Writer, debug bool) {
	mu.Lock()
	defer mu.Unlock()
	debugMode = debug
	log = newLogger(w, debug)
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

// Info 打印信息日志
func Info(format string, v ...interface{}) {
	current().Info().Msgf(format, v...)
}

// Debug 打印调试日志
func Debug(format string, v ...interface{}) {
	current().Debug().Msgf(format, v...)
}

// Warn 打印警告日志
func Warn(format string, v ...interface{}) {
	current().Warn().Msgf(format, v...)
}

// Error 打印错误日志
func Error(format string, v ...interface{}) {
	current().Error().Msgf(format, v...)
}

// Fatal 打印错误日志并退出
func Fatal(format string, v ...interface{}) {
	current().Fatal().Msgf(format, v...)
}

// WithRequestID 将请求 ID 放入 context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID 从 context 中取出请求 ID，不存在时返回空串
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Ctx 返回带有 request_id 字段的 logger
func Ctx(ctx context.Context) *zerolog.Logger {
	l := current()
	if id := RequestID(ctx); id != "" {
		withID := l.With().Str("request_id", id).Logger()
		return &withID
	}
	return l
}

// IsDebug 返回当前是否处于调试模式
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}
