package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

var (
	colorReset   = "\x1b[0m"
	colorTime    = "\x1b[90m"
	colorDebug   = "\x1b[36m"
	colorInfo    = "\x1b[32m"
	colorWarn    = "\x1b[33m"
	colorError   = "\x1b[31m"
	colorBoot    = "\x1b[96m"
	colorHTTP    = "\x1b[95m"
	colorCache   = "\x1b[34m"
	colorSession = "\x1b[94m"
	colorAuth    = "\x1b[92m"
	colorBus     = "\x1b[35m"
)

var tagColors = map[string]string{
	TagBoot:    colorBoot,
	TagHTTP:    colorHTTP,
	TagCache:   colorCache,
	TagSession: colorSession,
	TagAuth:    colorAuth,
	TagBus:     colorBus,
	TagCLI:     colorTime,
}

// CustomTextHandler renders colored single-line records for the console.
type CustomTextHandler struct {
	writer  io.Writer
	level   slog.Leveler
	noColor bool
	attrs   []slog.Attr
	mu      *sync.Mutex
}

// NewTextHandler returns a console handler writing to w at the given level.
func NewTextHandler(w io.Writer, level slog.Leveler, noColor bool) *CustomTextHandler {
	return &CustomTextHandler{
		writer:  w,
		level:   level,
		noColor: noColor,
		mu:      &sync.Mutex{},
	}
}

func (h *CustomTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CustomTextHandler) Handle(_ context.Context, r slog.Record) error {
	timeStr := r.Time.Format("2006-01-02 15:04:05.000")
	msg := r.Message

	var b strings.Builder
	if tagColor, ok := moduleColor(msg); ok {
		fmt.Fprintf(&b, "%s %s",
			h.paint(colorTime, "["+timeStr+"]"),
			h.paint(tagColor, msg))
	} else {
		fmt.Fprintf(&b, "%s %s %s",
			h.paint(colorTime, "["+timeStr+"]"),
			h.paint(levelColor(r.Level), "["+levelName(r.Level)+"]"),
			msg)
	}

	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		b.WriteString(" {")
		for _, a := range h.attrs {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		}
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		b.WriteString(" }")
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *CustomTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup is not supported; groups are flattened.
func (h *CustomTextHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *CustomTextHandler) paint(color, s string) string {
	if h.noColor {
		return s
	}
	return color + s + colorReset
}

func moduleColor(msg string) (string, bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", false
	}
	end := strings.Index(msg, "]")
	if end < 0 {
		return "", false
	}
	color, ok := tagColors[msg[1:end]]
	return color, ok
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorError
	case level >= slog.LevelWarn:
		return colorWarn
	case level >= slog.LevelInfo:
		return colorInfo
	default:
		return colorDebug
	}
}
