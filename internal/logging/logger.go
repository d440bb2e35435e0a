// Package logging builds the services' zap loggers and carries request-scoped
// loggers through contexts.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	return ec
}

// NewLogger writes JSON lines to stdout and, when logFile is set, appends the
// same lines to that file. Debug output is enabled only in development.
func NewLogger(service, env, logFile string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if env == "development" {
		level = zapcore.DebugLevel
	}
	enc := zapcore.NewJSONEncoder(encoderConfig())
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level)}

	if logFile != "" {
		f, err := openLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(f), level))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", service), zap.String("env", env)),
	), nil
}

// MustNewLogger is NewLogger for service mains.
func MustNewLogger(service, env, logFile string) *zap.Logger {
	l, err := NewLogger(service, env, logFile)
	if err != nil {
		panic(err)
	}
	return l
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
