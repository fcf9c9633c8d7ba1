package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
)

var defaultLogger *slog.Logger

// Options controls where and how the process logs. A zero value logs text at debug level to stdout.
type Options struct {
	Env        string
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func Init(env string) {
	Setup(Options{Env: env})
}

// Setup installs the process logger. When File is set, records are also written
// to a size-rotated file next to stdout.
func Setup(opts Options) *slog.Logger {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}

	defaultLogger = slog.New(newHandler(out, opts))
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

func newHandler(out io.Writer, opts Options) slog.Handler {
	level := slog.LevelDebug
	format := opts.Format
	if opts.Env == "production" {
		level = slog.LevelInfo
		if format == "" {
			format = "json"
		}
	}
	if opts.Level != "" {
		level = ParseLevel(opts.Level)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(out, handlerOpts)
	}
	return slog.NewTextHandler(out, handlerOpts)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func LoggerWrapper() *slog.Logger {
	if defaultLogger == nil {
		// lazy initialize a development logger to avoid nil pointer panics
		Init("development")
	}
	return defaultLogger
}
