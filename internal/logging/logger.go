// Package logging provides config-driven categorized logging backed by zap.
// In debug mode every enabled category writes to its own file under the
// logs directory; an attached core (stderr with --verbose, an observer in
// tests) receives every category regardless of debug mode.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config, shutdown
	CategoryCodec    Category = "codec"    // URI encode/decode
	CategoryModel    Category = "model"    // Editable intent model
	CategorySync     Category = "sync"     // Field sync controller
	CategoryCatalog  Category = "catalog"  // Component manifests and resolution
	CategoryDispatch Category = "dispatch" // Sending intents out
	CategoryInbox    Category = "inbox"    // Inbound envelope watching
	CategoryJournal  Category = "journal"  // Persistent history
	CategoryUI       Category = "ui"       // Interactive console
	CategoryTactile  Category = "tactile"  // External command execution
)

// Categories lists every known category.
var Categories = []Category{
	CategoryBoot, CategoryCodec, CategoryModel, CategorySync, CategoryCatalog,
	CategoryDispatch, CategoryInbox, CategoryJournal, CategoryUI, CategoryTactile,
}

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	DebugMode  bool
	Level      string // debug, info, warn, error
	Format     string // text or json
	Categories map[string]bool
}

// Logger is a category-scoped printf-style logger. The zero value drops
// everything.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu       sync.RWMutex
	logsDir  string
	opts     Options
	attached zapcore.Core
	loggers  = make(map[Category]*Logger)
	files    []*os.File
)

// Initialize points file logging at dir and applies o. Loggers created
// before the call are discarded. Nothing is created on disk unless
// o.DebugMode is set.
func Initialize(dir string, o Options) error {
	if o.DebugMode && dir == "" {
		return fmt.Errorf("logs directory required in debug mode")
	}
	if _, err := ParseLevel(o.Level); err != nil {
		return err
	}

	mu.Lock()
	closeFilesLocked()
	logsDir = dir
	opts = o
	mu.Unlock()

	if !o.DebugMode {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== intercept logging initialized ===")
	boot.Info("Logs directory: %s", dir)
	boot.Info("Log level: %s", levelOrDefault(o.Level))
	if len(o.Categories) == 0 {
		boot.Info("All categories enabled (no category filter)")
	} else {
		for cat, enabled := range o.Categories {
			boot.Debug("Category '%s': %v", cat, enabled)
		}
	}
	return nil
}

// Attach tees every category into core in addition to any log files.
// Passing nil detaches.
func Attach(core zapcore.Core) {
	mu.Lock()
	defer mu.Unlock()
	attached = core
	loggers = make(map[Category]*Logger)
}

// IsDebugMode returns whether file logging is enabled.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled reports whether category is written to file.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if !opts.DebugMode {
		return false
	}
	enabled, ok := opts.Categories[string(category)]
	return !ok || enabled
}

// ParseLevel maps a config level name onto a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

func levelOrDefault(name string) string {
	if name == "" {
		return "info"
	}
	return name
}

// Get returns (or creates) the logger for category.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	var cores []zapcore.Core
	if categoryEnabledLocked(category) && logsDir != "" {
		if core, err := fileCoreLocked(category); err != nil {
			fmt.Fprintf(os.Stderr, "[logging] Warning: %v\n", err)
		} else {
			cores = append(cores, core)
		}
	}
	if attached != nil {
		cores = append(cores, attached)
	}

	l := &Logger{category: category}
	if len(cores) > 0 {
		l.sugar = zap.New(zapcore.NewTee(cores...)).Named(string(category)).Sugar()
	}
	loggers[category] = l
	return l
}

// fileCoreLocked opens <date>_<category>.log in the logs directory.
func fileCoreLocked(category Category) (zapcore.Core, error) {
	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file %s: %w", path, err)
	}
	files = append(files, file)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if opts.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	level, _ := ParseLevel(opts.Level)
	return zapcore.NewCore(enc, zapcore.AddSync(file), level), nil
}

// CloseAll flushes and closes every log file (call at shutdown).
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	closeFilesLocked()
}

func closeFilesLocked() {
	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
	}
	for _, f := range files {
		_ = f.Close()
	}
	files = nil
	loggers = make(map[Category]*Logger)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l == nil || l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

// BootWarn logs a warning to the boot category
func BootWarn(format string, args ...interface{}) { Get(CategoryBoot).Warn(format, args...) }

// CodecDebug logs debug to the codec category
func CodecDebug(format string, args ...interface{}) { Get(CategoryCodec).Debug(format, args...) }

// Model logs to the model category
func Model(format string, args ...interface{}) { Get(CategoryModel).Info(format, args...) }

// ModelDebug logs debug to the model category
func ModelDebug(format string, args ...interface{}) { Get(CategoryModel).Debug(format, args...) }

// SyncDebug logs debug to the sync category
func SyncDebug(format string, args ...interface{}) { Get(CategorySync).Debug(format, args...) }

// Catalog logs to the catalog category
func Catalog(format string, args ...interface{}) { Get(CategoryCatalog).Info(format, args...) }

// CatalogDebug logs debug to the catalog category
func CatalogDebug(format string, args ...interface{}) { Get(CategoryCatalog).Debug(format, args...) }

// CatalogWarn logs a warning to the catalog category
func CatalogWarn(format string, args ...interface{}) { Get(CategoryCatalog).Warn(format, args...) }

// Dispatch logs to the dispatch category
func Dispatch(format string, args ...interface{}) { Get(CategoryDispatch).Info(format, args...) }

// DispatchDebug logs debug to the dispatch category
func DispatchDebug(format string, args ...interface{}) { Get(CategoryDispatch).Debug(format, args...) }

// DispatchError logs an error to the dispatch category
func DispatchError(format string, args ...interface{}) { Get(CategoryDispatch).Error(format, args...) }

// Inbox logs to the inbox category
func Inbox(format string, args ...interface{}) { Get(CategoryInbox).Info(format, args...) }

// InboxDebug logs debug to the inbox category
func InboxDebug(format string, args ...interface{}) { Get(CategoryInbox).Debug(format, args...) }

// InboxWarn logs a warning to the inbox category
func InboxWarn(format string, args ...interface{}) { Get(CategoryInbox).Warn(format, args...) }

// JournalDebug logs debug to the journal category
func JournalDebug(format string, args ...interface{}) { Get(CategoryJournal).Debug(format, args...) }

// JournalError logs an error to the journal category
func JournalError(format string, args ...interface{}) { Get(CategoryJournal).Error(format, args...) }

// UI logs to the ui category
func UI(format string, args ...interface{}) { Get(CategoryUI).Info(format, args...) }

// UIDebug logs debug to the ui category
func UIDebug(format string, args ...interface{}) { Get(CategoryUI).Debug(format, args...) }

// TactileDebug logs debug to the tactile category
func TactileDebug(format string, args ...interface{}) { Get(CategoryTactile).Debug(format, args...) }

// TactileWarn logs a warning to the tactile category
func TactileWarn(format string, args ...interface{}) { Get(CategoryTactile).Warn(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
