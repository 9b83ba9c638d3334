package logger

import (
	"bracketflow/conf"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

func init() {
	// 未初始化前输出到 stderr，方便测试和命令行工具
	l, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	set(l)
}

func set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugar = l.Sugar()
}

func get() (*zap.Logger, *zap.SugaredLogger) {
	mu.RLock()
	defer mu.RUnlock()
	return base, sugar
}

// InitLogger 按配置初始化全局日志，文件按大小切割
func InitLogger(cfg *conf.LogConfig, appName string) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.TimeFormat != "" {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(cfg.TimeFormat)
	}
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if cfg.FileName != "" {
		writer := &lumberjack.Logger{
			Filename:   cfg.FileName,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  cfg.LocalTime,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), level))
	}
	if cfg.Console || len(cores) == 0 {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).
		With(zap.String("app", appName))
	set(l)
	return nil
}

// Pair 结构化日志字段
func Pair(key string, value any) zap.Field {
	return zap.Any(key, value)
}

func Debug(msg string, fields ...zap.Field) {
	l, _ := get()
	l.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	l, _ := get()
	l.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	l, _ := get()
	l.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	l, _ := get()
	l.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	l, _ := get()
	l.Fatal(msg, fields...)
}

func Debugf(template string, args ...any) {
	_, s := get()
	s.Debugf(template, args...)
}

func Infof(template string, args ...any) {
	_, s := get()
	s.Infof(template, args...)
}

func Warnf(template string, args ...any) {
	_, s := get()
	s.Warnf(template, args...)
}

func Errorf(template string, args ...any) {
	_, s := get()
	s.Errorf(template, args...)
}

func Fatalf(template string, args ...any) {
	_, s := get()
	s.Fatalf(template, args...)
}

func Sync() error {
	l, _ := get()
	return l.Sync()
}
