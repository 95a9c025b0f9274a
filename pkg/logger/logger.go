// Package logger is the leveled, optionally colored logger shared by the
// FHVAEKit commands and packages.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	// OFF suppresses every line.
	OFF
)

// Interface is the logging surface components accept. *Logger satisfies it.
type Interface interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	OFF:   "OFF",
}

var levelColors = map[LogLevel]string{
	DEBUG: "\033[90m",
	INFO:  "\033[34m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

const colorReset = "\033[0m"

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a case-insensitive level name to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "OFF", "NONE":
		return OFF, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", name)
}

type Config struct {
	Level      LogLevel
	Colorize   bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Colorize:   true,
		ShowTime:   true,
		TimeFormat: time.DateTime,
		Output:     os.Stderr,
	}
}

type Logger struct {
	mu  sync.Mutex
	cfg Config
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.DateTime
	}
	return &Logger{cfg: cfg}
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the process-wide logger. LOG_LEVEL overrides the level
// and NO_COLOR disables ANSI colors.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if level, err := ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
			cfg.Level = level
		}
		if os.Getenv("NO_COLOR") != "" {
			cfg.Colorize = false
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return New(Config{Level: OFF, Output: io.Discard})
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Level = level
}

func (l *Logger) logf(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.cfg.Level {
		return
	}

	var b strings.Builder
	if l.cfg.ShowTime {
		b.WriteString(time.Now().Format(l.cfg.TimeFormat))
		b.WriteByte(' ')
	}
	if l.cfg.Colorize {
		b.WriteString(levelColors[level])
	}
	fmt.Fprintf(&b, "[%s]", level)
	if l.cfg.Colorize {
		b.WriteString(colorReset)
	}
	b.WriteByte(' ')
	fmt.Fprintf(&b, format, args...)
	fmt.Fprintln(l.cfg.Output, b.String())
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(ERROR, format, args...) }

// SetLevel sets the level of the process-wide logger.
func SetLevel(level LogLevel) { GetLogger().SetLevel(level) }
