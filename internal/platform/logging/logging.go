package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Module tags understood by the console handler.
const (
	TagBoot    = "BOOT"
	TagHTTP    = "HTTP"
	TagCache   = "CACHE"
	TagSession = "SESSION"
	TagAuth    = "AUTH"
	TagBus     = "BUS"
	TagCLI     = "CLI"
)

// LogRetentionDays is how long rotated log files are kept.
const LogRetentionDays = 7

// Config captures logging configuration options.
type Config struct {
	Level    string `yaml:"level" json:"level" env:"JABB_LOG_LEVEL"`
	Dir      string `yaml:"dir" json:"dir" env:"JABB_LOG_DIR"`
	Filename string `yaml:"file" json:"file"`
	NoColor  bool   `yaml:"no_color" json:"no_color"`
	// Console receives the colored text output. Defaults to os.Stderr so
	// command output on stdout stays clean.
	Console io.Writer `yaml:"-" json:"-"`
}

// Logger writes colored text to the console and, when a directory is
// configured, JSON lines to a daily rotated file.
type Logger struct {
	config      Config
	level       *slog.LevelVar
	textLogger  *slog.Logger
	jsonLogger  *slog.Logger
	logFile     *os.File
	currentDate string
	mu          sync.RWMutex
	ticker      *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
}

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New creates a Logger. An empty Dir disables the file sink.
func New(cfg Config) (*Logger, error) {
	if cfg.Console == nil {
		cfg.Console = os.Stderr
	}
	if cfg.Filename == "" {
		cfg.Filename = "jabbctl.log"
	}

	level := &slog.LevelVar{}
	level.Set(ParseLevel(cfg.Level))

	l := &Logger{
		config:      cfg,
		level:       level,
		textLogger:  slog.New(NewTextHandler(cfg.Console, level, cfg.NoColor)),
		currentDate: time.Now().Format("2006-01-02"),
		stopCh:      make(chan struct{}),
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(filepath.Join(cfg.Dir, cfg.Filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.logFile = file
		l.jsonLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		l.startRotationChecker()
	}

	return l, nil
}

// Discard returns a logger that drops everything. Useful for tests and
// for components constructed without a logger.
func Discard() *Logger {
	l, _ := New(Config{Level: "error", Console: io.Discard, NoColor: true})
	return l
}

// SetLevel changes the level of both sinks at runtime.
func (l *Logger) SetLevel(level string) {
	if l == nil {
		return
	}
	l.level.Set(ParseLevel(level))
}

func (l *Logger) startRotationChecker() {
	l.ticker = time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-l.ticker.C:
				l.checkAndRotate()
			case <-l.stopCh:
				return
			}
		}
	}()
}

func (l *Logger) checkAndRotate() {
	today := time.Now().Format("2006-01-02")
	l.mu.RLock()
	current := l.currentDate
	l.mu.RUnlock()
	if today != current {
		l.rotateLogFile(today)
		l.cleanOldLogs()
	}
}

func (l *Logger) rotateLogFile(newDate string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		l.logFile.Close()
	}

	current := filepath.Join(l.config.Dir, l.config.Filename)
	base := strings.TrimSuffix(l.config.Filename, filepath.Ext(l.config.Filename))
	archived := filepath.Join(l.config.Dir, fmt.Sprintf("%s-%s%s", base, l.currentDate, filepath.Ext(l.config.Filename)))

	if _, err := os.Stat(current); err == nil {
		if err := os.Rename(current, archived); err != nil {
			l.textLogger.Error("rotate log file failed", slog.String("error", err.Error()))
		}
	}

	file, err := os.OpenFile(current, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.textLogger.Error("reopen log file failed", slog.String("error", err.Error()))
		l.logFile = nil
		l.jsonLogger = nil
		return
	}
	l.logFile = file
	l.currentDate = newDate
	l.jsonLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: l.level}))
}

func (l *Logger) cleanOldLogs() {
	entries, err := os.ReadDir(l.config.Dir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -LogRetentionDays)
	ext := filepath.Ext(l.config.Filename)
	prefix := strings.TrimSuffix(l.config.Filename, ext) + "-"

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext))
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			_ = os.Remove(filepath.Join(l.config.Dir, name))
		}
	}
}

// Close stops rotation and closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var err error
	l.closeOnce.Do(func() {
		if l.ticker != nil {
			l.ticker.Stop()
		}
		close(l.stopCh)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.logFile != nil {
			err = l.logFile.Close()
			l.logFile = nil
			l.jsonLogger = nil
		}
	})
	return err
}

func (l *Logger) log(level slog.Level, msg string, fields ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var attrs []slog.Attr
	if len(fields) > 0 && fields[0] != nil {
		if m, ok := fields[0].(map[string]any); ok {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				attrs = append(attrs, slog.Any(k, m[k]))
			}
		} else {
			attrs = append(attrs, slog.Any("fields", fields[0]))
		}
	}

	ctx := context.Background()
	if l.jsonLogger != nil {
		l.jsonLogger.LogAttrs(ctx, level, msg, attrs...)
	}
	l.textLogger.LogAttrs(ctx, level, msg, attrs...)
}

func (l *Logger) logf(level slog.Level, msg string, args ...any) {
	if l == nil {
		return
	}
	if len(args) > 0 && strings.Contains(msg, "%") {
		l.log(level, fmt.Sprintf(msg, args...))
		return
	}
	l.log(level, msg, args...)
}

// Debug logs at debug level. A message containing % is treated as a format string.
func (l *Logger) Debug(msg string, args ...any) { l.logf(slog.LevelDebug, msg, args...) }

func (l *Logger) Info(msg string, args ...any) { l.logf(slog.LevelInfo, msg, args...) }

func (l *Logger) Warn(msg string, args ...any) { l.logf(slog.LevelWarn, msg, args...) }

func (l *Logger) Error(msg string, args ...any) { l.logf(slog.LevelError, msg, args...) }

// FormatLog prefixes message with a single [tag]. Messages that already
// start with "[" are returned as is.
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" || strings.HasPrefix(message, "[") {
		return message
	}
	return fmt.Sprintf("[%s] %s", tag, message)
}

func (l *Logger) DebugTag(tag, msg string, args ...any) {
	l.logf(slog.LevelDebug, FormatLog(tag, msg), args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...any) {
	l.logf(slog.LevelInfo, FormatLog(tag, msg), args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...any) {
	l.logf(slog.LevelWarn, FormatLog(tag, msg), args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...any) {
	l.logf(slog.LevelError, FormatLog(tag, msg), args...)
}

// Slog exposes the console logger for structured integrations.
func (l *Logger) Slog() *slog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.textLogger
}
