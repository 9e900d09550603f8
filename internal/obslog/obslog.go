package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// globalLogger is a Nop until initialised.
var (
	globalLogger *zap.Logger = zap.NewNop()
)

// L returns the global logger.
func L() *zap.Logger { return globalLogger }

// Named returns a child of the global logger for one component.
func Named(component string) *zap.Logger { return globalLogger.Named(component) }

// Options controls logger construction. Zero values fall back to the
// environment defaults used by InitFromEnv.
type Options struct {
	Level   string
	Format  string // legacy | json | console
	Console bool
	File    string // empty disables the file sink
	Caller  bool
}

func optionsFromEnv() Options {
	opts := Options{
		Level:   getenvDefault("LOG_LEVEL", "info"),
		Format:  strings.ToLower(strings.TrimSpace(getenvDefault("LOG_FORMAT", "legacy"))),
		Console: strings.EqualFold(getenvDefault("LOG_TO_CONSOLE", "true"), "true"),
		Caller:  strings.EqualFold(getenvDefault("LOG_CALLER", "false"), "true"),
	}
	if strings.EqualFold(getenvDefault("LOG_TO_FILE", "false"), "true") {
		opts.File = strings.TrimSpace(getenvDefault("LOG_FILE", filepath.Join("logs", "quizd.log")))
	}
	return opts
}

// InitFromEnv initialises the global logger from LOG_* environment variables.
func InitFromEnv() error { return Init(optionsFromEnv()) }

// Init builds the global logger, teeing console and file sinks.
func Init(opts Options) error {
	level := parseLevel(opts.Level)
	format := opts.Format
	if format != "json" && format != "console" {
		format = "legacy"
	}

	var cores []zapcore.Core
	if opts.Console {
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.AddSync(os.Stdout), level))
	}
	if opts.File != "" {
		if err := ensureDir(filepath.Dir(opts.File)); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoderFor(format), zapcore.AddSync(f), level))
	}
	if len(cores) == 0 {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), level))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if opts.Caller || format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	globalLogger = logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	return nil
}

// Sync flushes buffered entries; errors from syncing stdout are ignored.
func Sync() { _ = globalLogger.Sync() }

func encoderFor(format string) zapcore.Encoder {
	switch format {
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	}
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		if strings.EqualFold(strings.TrimSpace(s), "warning") {
			return zapcore.WarnLevel
		}
		return zapcore.InfoLevel
	}
	return lvl
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
