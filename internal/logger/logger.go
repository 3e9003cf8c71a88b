// Package logger owns the process-wide zap logger.
package logger

import (
	"os"
	"strings"

	"github.com/zfogg/biolink/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger. It discards everything until Initialize runs,
// so packages can log from tests without setup.
var Log = zap.NewNop()

// Initialize builds the global logger. Development gets a colored console on
// stdout; other environments write JSON to stdout for log shipping. When
// cfg.File is set, JSON is also written there with size-based rotation.
func Initialize(cfg config.LogConfig, environment string) error {
	level := parseLogLevel(cfg.Level)

	jsonConfig := zap.NewProductionEncoderConfig()
	jsonConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var stdout zapcore.Encoder
	if environment == "development" {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stdout = zapcore.NewConsoleEncoder(consoleConfig)
	} else {
		stdout = zapcore.NewJSONEncoder(jsonConfig)
	}

	cores := []zapcore.Core{zapcore.NewCore(stdout, zapcore.Lock(os.Stdout), level)}
	if cfg.File != "" {
		rotating := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), rotating, level))
	}

	Log = zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("env", environment)),
	)
	Log.Info("Logger initialized",
		zap.String("level", level.String()),
		zap.String("file", cfg.File),
	)
	return nil
}

// Close flushes buffered entries
func Close() error {
	return Log.Sync()
}

func parseLogLevel(s string) zapcore.Level {
	s = strings.ToLower(s)
	if s == "warning" {
		s = "warn"
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// WarnWithFields logs msg at warn level, attaching err when non-nil
func WarnWithFields(msg string, err error) {
	Log.Warn(msg, errField(err)...)
}

// ErrorWithFields logs msg at error level, attaching err when non-nil
func ErrorWithFields(msg string, err error) {
	Log.Error(msg, errField(err)...)
}

// FatalWithFields logs msg and exits
func FatalWithFields(msg string, err error) {
	Log.Fatal(msg, errField(err)...)
}

func errField(err error) []zap.Field {
	if err == nil {
		return nil
	}
	return []zap.Field{zap.Error(err)}
}

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}
