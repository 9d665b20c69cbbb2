// Package logging builds the zap logger shared by every command.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"exohabit/config"
)

// New returns a logger writing to cfg.File through a rotating sink, or to
// stderr when no file is set. The returned level can be changed at runtime.
func New(cfg config.Log) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := SetLevel(level, cfg.Level); err != nil {
		return nil, level, err
	}

	encoder, err := newEncoder(cfg.Encoding)
	if err != nil {
		return nil, level, err
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(sink(cfg)), level)
	return zap.New(core, zap.AddCaller()), level, nil
}

// SetLevel parses name ("debug", "info", ...) and applies it to level.
func SetLevel(level zap.AtomicLevel, name string) error {
	if name == "" {
		return nil
	}
	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level %q: %w", name, err)
	}
	level.SetLevel(parsed)
	return nil
}

func newEncoder(encoding string) (zapcore.Encoder, error) {
	switch encoding {
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec), nil
	default:
		return nil, fmt.Errorf("unknown log encoding %q", encoding)
	}
}

func sink(cfg config.Log) io.Writer {
	if cfg.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
}
