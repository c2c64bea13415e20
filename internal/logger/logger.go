// Package logger provides structured logging with colored console output,
// optional rotating file output, and per-component logger prefixing using
// log/slog.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Guliveer/election-monitor-go/internal/model"
)

var eventEmoji = map[string]string{
	"LEADER_CHANGED":          "🏁",
	"HIGH_IMPORTANCE_INSIGHT": "🧠",
	"POLLING_FALLBACK":        "🐢",
	"CONNECTION_RESTORED":     "🔌",
	"BOOTSTRAP_FAILED":        "⛔",
	"TEST":                    "🧪",
}

// ANSI color codes for terminal output.
const (
	colorReset     = "\033[0m"
	colorRed       = "\033[31m"
	colorGreen     = "\033[32m"
	colorYellow    = "\033[33m"
	colorLightBlue = "\033[94m"
	colorMagenta   = "\033[35m"
	colorCyan      = "\033[36m"
	colorGray      = "\033[90m"
)

// coloredAttrKeys maps slog attribute keys to ANSI color codes for value highlighting.
var coloredAttrKeys = map[string]string{
	"candidate":    colorMagenta,
	"leader":       colorMagenta,
	"constituency": colorLightBlue,
	"state":        colorCyan,
}

// NotifyFunc is a callback invoked when a log event matches notification criteria.
// Implementations should be non-blocking.
type NotifyFunc func(ctx context.Context, message string, event model.Event)

// RotationConfig controls rotation of the log file.
type RotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config holds logger configuration options.
type Config struct {
	Level     slog.Level
	FileLevel slog.Level
	Colored   bool
	LogDir    string
	Rotation  RotationConfig
	Component string
	NotifyFn  NotifyFunc

	// Output overrides the console writer. Defaults to os.Stdout.
	Output io.Writer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		FileLevel: slog.LevelDebug,
		Colored:   true,
		Rotation: RotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Logger wraps slog.Logger with component-scoped context and notification dispatch.
type Logger struct {
	*slog.Logger
	cfg      Config
	file     io.Writer
	notifyFn atomic.Value // stores NotifyFunc
}

// Setup creates a new Logger based on the provided configuration.
// It sets up console and optional rotating file handlers.
func Setup(cfg Config) (*Logger, error) {
	var file io.Writer
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory %s: %w", cfg.LogDir, err)
		}

		file = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "monitor.log"),
			MaxSize:    cfg.Rotation.MaxSizeMB,
			MaxBackups: cfg.Rotation.MaxBackups,
			MaxAge:     cfg.Rotation.MaxAgeDays,
			Compress:   cfg.Rotation.Compress,
		}
	}

	return build(cfg, file), nil
}

func build(cfg Config, file io.Writer) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	handlers := []slog.Handler{newColorHandler(out, cfg.Level, cfg.Colored, cfg.Component)}
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{
			Level: cfg.FileLevel,
		}).WithAttrs(componentAttrs(cfg.Component)))
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = &multiHandler{handlers: handlers}
	}

	logger := &Logger{
		Logger: slog.New(handler),
		cfg:    cfg,
		file:   file,
	}

	if cfg.NotifyFn != nil {
		logger.notifyFn.Store(cfg.NotifyFn)
	}

	return logger
}

func componentAttrs(component string) []slog.Attr {
	if component == "" {
		return nil
	}
	return []slog.Attr{slog.String("component", component)}
}

// Discard returns a Logger that writes nowhere. Useful in tests.
func Discard() *Logger {
	cfg := DefaultConfig()
	cfg.Colored = false
	cfg.Output = io.Discard
	return build(cfg, nil)
}

// WithComponent returns a new Logger whose console lines are prefixed with
// the component name. It shares the file writer and notification callback.
func (l *Logger) WithComponent(name string) *Logger {
	newCfg := l.cfg
	newCfg.Component = name
	if fn, ok := l.notifyFn.Load().(NotifyFunc); ok {
		newCfg.NotifyFn = fn
	}
	return build(newCfg, l.file)
}

// Event logs a message at INFO level and dispatches a notification if configured.
// If the event has a mapped emoji, it is prepended to the log message.
func (l *Logger) Event(ctx context.Context, event model.Event, msg string, args ...any) {
	if emoji, ok := eventEmoji[string(event)]; ok {
		msg = emoji + " " + msg
	}
	l.Logger.Info(msg, append(args, "event", string(event))...)

	if fn, ok := l.notifyFn.Load().(NotifyFunc); ok && fn != nil {
		formattedMsg := msg
		if len(args) > 0 {
			formattedMsg = fmt.Sprintf("%s %v", msg, args)
		}
		fn(ctx, formattedMsg, event)
	}
}

// SetNotifyFunc sets the notification callback function. Thread-safe.
func (l *Logger) SetNotifyFunc(fn NotifyFunc) {
	l.notifyFn.Store(fn)
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type colorHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     slog.Level
	colored   bool
	component string
	attrs     []slog.Attr
}

func newColorHandler(w io.Writer, level slog.Level, colored bool, component string) *colorHandler {
	return &colorHandler{
		mu:        &sync.Mutex{},
		writer:    w,
		level:     level,
		colored:   colored,
		component: component,
	}
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeStr := record.Time.Format("02/01/06 15:04:05")
	levelStr := record.Level.String()
	msg := record.Message

	prefix := ""
	if h.component != "" {
		prefix = fmt.Sprintf("[%s] ", h.component)
	}

	if h.colored {
		fmt.Fprintf(h.writer, "%s%s - %s%s%s - %s%s",
			colorGray, timeStr,
			h.levelColor(record.Level), levelStr, colorReset,
			prefix, msg,
		)
	} else {
		fmt.Fprintf(h.writer, "%s - %s - %s%s", timeStr, levelStr, prefix, msg)
	}

	for _, a := range h.attrs {
		h.writeAttr(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		h.writeAttr(a)
		return true
	})

	fmt.Fprintln(h.writer)
	return nil
}

func (h *colorHandler) writeAttr(a slog.Attr) {
	if h.colored {
		if color, ok := coloredAttrKeys[a.Key]; ok {
			fmt.Fprintf(h.writer, " %s=%s%v%s", a.Key, color, a.Value, colorReset)
			return
		}
	}
	fmt.Fprintf(h.writer, " %s=%v", a.Key, a.Value)
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		colored:   h.colored,
		component: h.component,
		attrs:     append(copyAttrs(h.attrs), attrs...),
	}
}

func (h *colorHandler) WithGroup(_ string) slog.Handler {
	return &colorHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		colored:   h.colored,
		component: h.component,
		attrs:     copyAttrs(h.attrs),
	}
}

func copyAttrs(attrs []slog.Attr) []slog.Attr {
	if len(attrs) == 0 {
		return nil
	}
	cp := make([]slog.Attr, len(attrs))
	copy(cp, attrs)
	return cp
}

func (h *colorHandler) levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorGreen
	default:
		return colorCyan
	}
}

type multiHandler struct {
	handlers []slog.Handler
}

func (handler *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range handler.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handler *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range handler.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handler *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(handler.handlers))
	for i, h := range handler.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (handler *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(handler.handlers))
	for i, h := range handler.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
