package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel is the textual level accepted in settings and on the command line.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ParseLevel maps a settings value onto a LogLevel. Unknown values fall back to info.
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn, "warning":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger wraps slog with the component and provider helpers used across echoassist.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a text logger on stderr.
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a text logger writing to w.
func NewLoggerTo(w io.Writer, level LogLevel) *Logger {
	opts := &slog.HandlerOptions{
		Level: level.slogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "time",
					Value: slog.StringValue(a.Value.Time().Format("15:04:05")),
				}
			}
			return a
		},
	}
	return &Logger{Logger: slog.New(slog.NewTextHandler(w, opts))}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, LogLevelError)
}

// WithComponent tags records with the subsystem that produced them.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// WithProvider tags records with the backend name.
func (l *Logger) WithProvider(provider string) *Logger {
	return &Logger{Logger: l.Logger.With("provider", provider)}
}

// WithRequest tags records with a queued request id.
func (l *Logger) WithRequest(id string) *Logger {
	return &Logger{Logger: l.Logger.With("request", id)}
}

func (l *Logger) InfoWithIcon(icon string, msg string, args ...any) {
	l.Info(icon+" "+msg, args...)
}

func (l *Logger) WarnWithIcon(icon string, msg string, args ...any) {
	l.Warn(icon+" "+msg, args...)
}

func (l *Logger) ErrorWithIcon(icon string, msg string, args ...any) {
	l.Error(icon+" "+msg, args...)
}

func (l *Logger) DebugWithIcon(icon string, msg string, args ...any) {
	l.Debug(icon+" "+msg, args...)
}

// Default is the process-wide logger. Component loggers derive from it.
var Default = NewLogger(LogLevelInfo)

// SetGlobalLogLevel replaces Default. Component loggers created earlier keep
// their old level.
func SetGlobalLogLevel(level LogLevel) {
	Default = NewLogger(level)
}

// NewComponentLogger derives a component logger from Default.
func NewComponentLogger(component string) *Logger {
	return Default.WithComponent(component)
}
