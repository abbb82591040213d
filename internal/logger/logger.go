package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex
	once          sync.Once
)

// Init initializes the default logger with a JSON handler writing to os.Stdout.
// It ensures that the logger is initialized only once.
func Init() {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if defaultLogger == nil {
			defaultLogger = newLogger(os.Stdout, "info", "json")
			slog.SetDefault(defaultLogger)
		}
	})
}

// Configure replaces the default logger using the level and format from config.
// Format is "json" or "text"; unknown values fall back to json.
func Configure(level, format string) *slog.Logger {
	return ConfigureWriter(os.Stdout, level, format)
}

// ConfigureWriter is Configure with an explicit destination.
func ConfigureWriter(w io.Writer, level, format string) *slog.Logger {
	l := newLogger(w, level, format)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
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

// Get returns the initialized default logger.
// It calls Init() to ensure the logger is ready before returning it.
func Get() *slog.Logger {
	Init()
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Info logs an informational message using the default logger.
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	Get().Error(msg, args...)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}
