// Package log provides the process-wide zap logger. It is a trimmed copy
// of zoekt's log package (log/log.go): the same Init-once/Get/Scoped shape,
// without the OpenTelemetry Resource-field and otfields/encoders plumbing —
// those subpackages weren't retrieved alongside the rest of zoekt, so there
// is nothing here to ground a faithful reproduction of them against.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger     *zap.Logger
	globalLoggerInit sync.Once
	devMode          bool
)

const (
	envDevelopment = "RANKSTAGE_DEVELOPMENT"
	envLogLevel    = "RANKSTAGE_LOG_LEVEL"
)

// DevMode reports whether the process was started with development logging
// (human-readable console output instead of JSON).
func DevMode() bool { return devMode }

// Init initializes the global logger. It must be called once from main();
// subsequent calls panic. Returns a sync callback to call before exit.
func Init() (sync func() error) {
	if IsInitialized() {
		panic("log.Init initialized multiple times")
	}
	globalLoggerInit.Do(func() {
		globalLogger = newLogger()
	})
	return globalLogger.Sync
}

// IsInitialized reports whether Init has run.
func IsInitialized() bool {
	return globalLogger != nil
}

// Get returns the global logger, or a discarding no-op logger if Init
// hasn't run (useful in tests that don't care about log output).
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Scoped returns a child logger tagged with name, the way every ranking
// component identifies its own log lines (e.g. log.Scoped("resolver")).
func Scoped(name string) *zap.Logger {
	return Get().Named(name)
}

func newLogger() *zap.Logger {
	devMode = os.Getenv(envDevelopment) == "true"
	level := zap.NewAtomicLevelAt(parseLevel(os.Getenv(envLogLevel)))

	var cfg zap.Config
	if devMode {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = level

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		panic(err.Error())
	}
	return logger
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
