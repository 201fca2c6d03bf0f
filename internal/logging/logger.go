// Package logging provides config-driven categorized logging for the decision core.
// Each category gets its own named zap logger; logging is controlled by
// debug_mode in the config - when false, every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Boot/initialization
	CategoryBudget   Category = "budget"   // Budget admission
	CategoryRouter   Category = "router"   // Strategy bandit
	CategoryExperts  Category = "experts"  // Expert bandit
	CategorySections Category = "sections" // Section variant bandit
	CategoryDesign   Category = "design"   // Design token search
	CategoryLayout   Category = "layout"   // Layout gate and solver
	CategoryAudit    Category = "audit"    // Audit summarizer and writer
	CategoryStore    Category = "store"    // KV store operations
	CategoryUsage    Category = "usage"    // Spend ledger
)

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	root      = zap.NewNop()
	cfg       config.LoggingConfig
	cfgMu     sync.RWMutex
)

// Initialize builds the root zap logger from config.
// Calling it with debug_mode=false leaves every category as a no-op.
func Initialize(lc config.LoggingConfig) error {
	cfgMu.Lock()
	cfg = lc
	cfgMu.Unlock()

	resetLoggers()

	if !lc.DebugMode {
		setRoot(zap.NewNop())
		return nil
	}

	zc := zap.NewProductionConfig()
	if strings.EqualFold(lc.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(parseLevel(lc.Level))
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	if lc.LogsDir != "" {
		if err := os.MkdirAll(lc.LogsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		date := time.Now().Format("2006-01-02")
		zc.OutputPaths = []string{filepath.Join(lc.LogsDir, fmt.Sprintf("%s_ybuilt.log", date))}
	}

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	setRoot(l)

	Boot("logging initialized (level=%s, dir=%s)", lc.Level, lc.LogsDir)
	return nil
}

// UseLogger installs an externally built zap logger (e.g. from the CLI) and
// enables every category.
func UseLogger(l *zap.Logger) {
	cfgMu.Lock()
	cfg = config.LoggingConfig{DebugMode: l != nil}
	cfgMu.Unlock()
	resetLoggers()
	if l == nil {
		l = zap.NewNop()
	}
	setRoot(l)
}

func setRoot(l *zap.Logger) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	root = l
}

func resetLoggers() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	loggers = make(map[Category]*Logger)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{
		category: category,
		sugar:    root.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// StructuredLog writes a message with key/value fields attached.
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	switch strings.ToLower(level) {
	case "debug":
		l.sugar.Debugw(msg, kv...)
	case "warn", "warning":
		l.sugar.Warnw(msg, kv...)
	case "error":
		l.sugar.Errorw(msg, kv...)
	default:
		l.sugar.Infow(msg, kv...)
	}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes the root logger.
func Sync() {
	loggersMu.RLock()
	r := root
	loggersMu.RUnlock()
	_ = r.Sync()
}

// =============================================================================
// CATEGORY HELPERS
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Budget(format string, args ...interface{})      { Get(CategoryBudget).Info(format, args...) }
func BudgetDebug(format string, args ...interface{}) { Get(CategoryBudget).Debug(format, args...) }

func SectionsDebug(format string, args ...interface{}) { Get(CategorySections).Debug(format, args...) }
func SectionsWarn(format string, args ...interface{})  { Get(CategorySections).Warn(format, args...) }

func DesignDebug(format string, args ...interface{}) { Get(CategoryDesign).Debug(format, args...) }
func DesignWarn(format string, args ...interface{})  { Get(CategoryDesign).Warn(format, args...) }

func Layout(format string, args ...interface{})      { Get(CategoryLayout).Info(format, args...) }
func LayoutDebug(format string, args ...interface{}) { Get(CategoryLayout).Debug(format, args...) }

func AuditDebug(format string, args ...interface{}) { Get(CategoryAudit).Debug(format, args...) }
func AuditWarn(format string, args ...interface{})  { Get(CategoryAudit).Warn(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreWarn(format string, args ...interface{})  { Get(CategoryStore).Warn(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func UsageDebug(format string, args ...interface{}) { Get(CategoryUsage).Debug(format, args...) }
func UsageWarn(format string, args ...interface{})  { Get(CategoryUsage).Warn(format, args...) }

// =============================================================================
// TIMING
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer starts timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold warns when the operation exceeded threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
