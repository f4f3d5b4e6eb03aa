package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	levelNames = map[LogLevel]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
		FATAL: "FATAL",
	}

	levelColors = map[LogLevel]string{
		DEBUG: "\033[36m", // Cyan
		INFO:  "\033[32m", // Green
		WARN:  "\033[33m", // Yellow
		ERROR: "\033[31m", // Red
		FATAL: "\033[35m", // Magenta
	}

	resetColor = "\033[0m"
)

// ParseLevel maps a textual level (as found in config files) to a LogLevel.
func ParseLevel(value string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", value)
}

// Logger writes levelled lines to the console and, optionally, a daily log file.
type Logger struct {
	level      LogLevel
	console    io.Writer
	useColor   bool
	prefix     string
	showCaller bool

	logDir  string
	maxAge  int
	file    *os.File
	fileDay string

	mu sync.Mutex
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Config describes how the logger should be initialised.
type Config struct {
	Level      LogLevel
	LogDir     string
	MaxAge     int // days
	UseColor   bool
	ShowCaller bool
	Prefix     string
}

// Initialize boots the global logger instance if it has not been created yet.
func Initialize(config Config) error {
	var err error
	once.Do(func() {
		l := &Logger{
			level:      config.Level,
			console:    os.Stdout,
			useColor:   config.UseColor,
			prefix:     config.Prefix,
			showCaller: config.ShowCaller,
			logDir:     config.LogDir,
			maxAge:     config.MaxAge,
		}

		if config.LogDir != "" {
			if err = os.MkdirAll(config.LogDir, 0755); err != nil {
				return
			}
			if err = l.openDailyFile(time.Now()); err != nil {
				return
			}
		}
		defaultLogger = l
	})

	return err
}

// SetOutput redirects console output. Tests use it to capture log lines.
func SetOutput(w io.Writer) {
	if defaultLogger == nil {
		defaultLogger = &Logger{level: INFO}
	}
	defaultLogger.mu.Lock()
	defaultLogger.console = w
	defaultLogger.useColor = false
	defaultLogger.mu.Unlock()
}

// openDailyFile opens server-YYYY-MM-DD.log and prunes files older than maxAge.
// Must be called with mu held (or before the logger is published).
func (l *Logger) openDailyFile(now time.Time) error {
	day := now.Format("2006-01-02")
	logPath := filepath.Join(l.logDir, fmt.Sprintf("server-%s.log", day))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.fileDay = day

	if l.maxAge > 0 {
		files, _ := filepath.Glob(filepath.Join(l.logDir, "server-*.log"))
		for _, f := range files {
			info, statErr := os.Stat(f)
			if statErr != nil {
				continue
			}
			if now.Sub(info.ModTime()) > time.Duration(l.maxAge)*24*time.Hour {
				os.Remove(f)
			}
		}
	}
	return nil
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	now := time.Now()
	timestamp := now.Format("2006-01-02 15:04:05.000")
	levelName := levelNames[level]
	message := fmt.Sprintf(format, args...)

	caller := ""
	if l.showCaller {
		_, file, line, ok := runtime.Caller(2)
		if ok {
			caller = fmt.Sprintf(" [%s:%d]", filepath.Base(file), line)
		}
	}

	plain := fmt.Sprintf("%s%s [%s]%s %s\n", timestamp, caller, levelName, l.prefix, message)

	if l.console != nil {
		if l.useColor {
			fmt.Fprintf(l.console, "%s%s [%s]%s %s%s%s\n",
				timestamp, caller, levelName, l.prefix, levelColors[level], message, resetColor)
		} else {
			io.WriteString(l.console, plain)
		}
	}

	if l.logDir != "" {
		// Roll over to a new file when the day changes.
		if day := now.Format("2006-01-02"); day != l.fileDay {
			if err := l.openDailyFile(now); err != nil {
				fmt.Fprintf(os.Stderr, "logger: rotate failed: %v\n", err)
			}
		}
		if l.file != nil {
			io.WriteString(l.file, plain)
		}
	}

	if level == FATAL {
		os.Exit(1)
	}
}

func Debug(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(DEBUG, format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(INFO, format, args...)
	} else {
		log.Printf("[INFO] "+format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(WARN, format, args...)
	} else {
		log.Printf("[WARN] "+format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(ERROR, format, args...)
	} else {
		log.Printf("[ERROR] "+format, args...)
	}
}

func Fatal(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.log(FATAL, format, args...)
	} else {
		log.Fatalf("[FATAL] "+format, args...)
	}
}

// WithFields attaches structured fields to the log entry.
func WithFields(fields map[string]interface{}) *LogEntry {
	return &LogEntry{fields: fields}
}

// LogEntry is a structured log entry builder.
type LogEntry struct {
	fields map[string]interface{}
}

func (e *LogEntry) Debug(format string, args ...interface{}) { e.log(DEBUG, format, args...) }
func (e *LogEntry) Info(format string, args ...interface{})  { e.log(INFO, format, args...) }
func (e *LogEntry) Warn(format string, args ...interface{})  { e.log(WARN, format, args...) }
func (e *LogEntry) Error(format string, args ...interface{}) { e.log(ERROR, format, args...) }

// Log emits a message with an explicit level.
func (e *LogEntry) Log(level LogLevel, format string, args ...interface{}) {
	e.log(level, format, args...)
}

func (e *LogEntry) log(level LogLevel, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if len(e.fields) > 0 {
		keys := make([]string, 0, len(e.fields))
		for k := range e.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.fields[k]))
		}
		message = fmt.Sprintf("%s | %s", message, strings.Join(parts, ", "))
	}

	l := defaultLogger
	if l == nil {
		if level >= INFO {
			log.Printf("[%s] %s", levelNames[level], message)
		}
		return
	}
	l.log(level, "%s", message)
}

// SetLevel updates the global logging level.
func SetLevel(level LogLevel) {
	if defaultLogger != nil {
		defaultLogger.mu.Lock()
		defaultLogger.level = level
		defaultLogger.mu.Unlock()
	}
}

// GetLevel returns the current global logging level.
func GetLevel() LogLevel {
	if defaultLogger != nil {
		return defaultLogger.level
	}
	return INFO
}

// Close flushes and closes the log file, if any.
func Close() error {
	if defaultLogger == nil {
		return nil
	}
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	if defaultLogger.file != nil {
		err := defaultLogger.file.Close()
		defaultLogger.file = nil
		return err
	}
	return nil
}
