package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logger configuration
type Config struct {
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// Path is the log file path; empty logs to Output
	Path string
	// MaxSize is the maximum file size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of rotated files to keep
	MaxBackups int
	// Output is used when Path is empty (default: stderr)
	Output io.Writer
}

// ZapLogger implements Logger on top of a zap core
type ZapLogger struct {
	base   *zap.Logger
	closer io.Closer
}

// New builds a zap-backed logger
func New(cfg Config) (*ZapLogger, error) {
	var (
		sink   zapcore.WriteSyncer
		closer io.Closer
	)

	switch {
	case cfg.Path != "":
		rf, err := OpenRotatingFile(cfg.Path, cfg.MaxSize, cfg.MaxBackups)
		if err != nil {
			return nil, err
		}
		sink, closer = rf, rf
	case cfg.Output != nil:
		sink = zapcore.AddSync(cfg.Output)
	default:
		sink = zapcore.Lock(os.Stderr)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		NameKey:        "logger",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encCfg)
	case FormatText, "":
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(zapLevel(cfg.Level)))
	return &ZapLogger{base: zap.New(core), closer: closer}, nil
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.base.Debug(msg, zapFields(ctx, nil, fields)...)
}

func (l *ZapLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.base.Info(msg, zapFields(ctx, nil, fields)...)
}

func (l *ZapLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.base.Warn(msg, zapFields(ctx, nil, fields)...)
}

func (l *ZapLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.base.Error(msg, zapFields(ctx, err, fields)...)
}

// WithFields returns a logger with additional fields
func (l *ZapLogger) WithFields(fields Fields) Logger {
	return &ZapLogger{
		base:   l.base.With(zapFields(nil, nil, fields)...),
		closer: l.closer,
	}
}

// Close flushes buffered entries and closes the log file, if any
func (l *ZapLogger) Close() error {
	// Sync on a terminal returns EINVAL on some platforms; nothing to flush there.
	_ = l.base.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// zapFields converts fields to zap fields in key order so that output is stable
func zapFields(ctx context.Context, err error, fields Fields) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys)+2)
	if id := RequestID(ctx); id != "" {
		out = append(out, zap.String("request_id", id))
	}
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	if err != nil {
		out = append(out, zap.Error(err))
	}
	return out
}
