package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is a configured log level name.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config holds logger configuration.
type Config struct {
	Level       Level
	Format      string // "json" or "text"
	Output      string // "stdout", "stderr" or a file path
	Component   string
	Environment string
}

// Logger wraps slog.Logger with component and request helpers.
type Logger struct {
	*slog.Logger
	config Config
}

// DefaultConfig returns JSON logging at info level on stdout.
func DefaultConfig() Config {
	return Config{
		Level:       LevelInfo,
		Format:      "json",
		Output:      "stdout",
		Environment: "development",
	}
}

// New creates a logger from config. Unknown levels fall back to info and
// an unwritable output file falls back to stdout.
func New(config Config) *Logger {
	var output io.Writer
	switch config.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		if file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666); err == nil {
			output = file
		} else {
			output = os.Stdout
		}
	}
	return newWithWriter(config, output)
}

func newWithWriter(config Config, output io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(string(config.Level))}

	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	l := slog.New(handler)
	if config.Component != "" {
		l = l.With("component", config.Component)
	}
	if config.Environment != "" {
		l = l.With("environment", config.Environment)
	}
	return &Logger{Logger: l, config: config}
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) slog.Level {
	switch Level(strings.ToLower(s)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// With returns a logger with additional attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), config: l.config}
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(component string) *Logger {
	return l.With("component", component)
}

// Fatal logs at error level and exits.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}

// Nop returns a logger that discards everything. Tests use it.
func Nop() *Logger {
	return newWithWriter(Config{Level: LevelError}, io.Discard)
}
