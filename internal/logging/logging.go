package logging

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

var (
	baseLogger *zap.Logger
	sugar      *zap.SugaredLogger
	service    atomic.Value
)

func init() {
	baseLogger = zap.NewNop()
	sugar = baseLogger.Sugar()
}

func InitFromEnv() error {
	cfg := Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}
	return Init(cfg)
}

func Init(cfg Config) error {
	level := strings.ToLower(strings.TrimSpace(cfg.Level))
	if level == "" {
		level = "info"
	}

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "console"
	}

	var zapCfg zap.Config
	switch format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %s", cfg.Format)
	}

	atomLevel := zap.NewAtomicLevel()
	if err := atomLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %s", cfg.Level)
	}
	zapCfg.Level = atomLevel

	logger, err := zapCfg.Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	SetLogger(logger)
	return nil
}

// SetLogger replaces the process logger. Tests use it with an observer core.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseLogger = logger
	sugar = logger.Sugar()
}

func Sync() {
	if baseLogger != nil {
		_ = baseLogger.Sync()
	}
}

// SetService tags every log line with the binary that produced it.
func SetService(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	service.Store(name)
}

// ForSession returns a logger carrying the request session fields. It does
// not skip a caller frame, unlike the package-level helpers.
func ForSession(id, kind string) *zap.SugaredLogger {
	return With("session_id", id, "kind", kind)
}

// With returns a component logger carrying the given key/value pairs.
func With(args ...interface{}) *zap.SugaredLogger {
	return withFields().Desugar().WithOptions(zap.AddCallerSkip(-1)).Sugar().With(args...)
}

func Debugf(format string, args ...interface{}) {
	withFields().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	withFields().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	withFields().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	withFields().Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	withFields().Fatalf(format, args...)
}

func withFields() *zap.SugaredLogger {
	name, _ := service.Load().(string)
	if name == "" {
		return sugar
	}
	return sugar.With("service", name)
}
