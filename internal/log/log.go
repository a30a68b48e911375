// Package log provides structured logging for c360cfg.
// Entries carry a level, a category and key=value fields, and go to
// stderr by default or to any writer set with InitWriter.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a Level, defaulting to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Category groups related log messages.
type Category string

const (
	CatPrereq  Category = "prereq"  // Mandatory environment variable checks
	CatEnv     Category = "env"     // Environment table assembly
	CatMaster  Category = "master"  // Cluster master discovery from the host file
	CatStore   Category = "store"   // Configuration store loading
	CatScripts Category = "scripts" // Transfer script synthesis
	CatOutput  Category = "output"  // File writes and dry-run diffs
	CatConfig  Category = "config"  // Tool settings loading/saving
	CatWatcher Category = "watcher" // File watcher events
	CatTrace   Category = "trace"   // Tracing provider lifecycle
)

// Logger provides structured logging.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	writer   io.Writer
	enabled  bool
	minLevel Level
	fields   []any
}

var (
	defaultMu     sync.Mutex
	defaultLogger = &Logger{writer: os.Stderr, enabled: true, minLevel: LevelInfo}
)

// Init adds an append-only log file next to the current writer.
// Returns a cleanup function to close the log file.
func Init(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // G304: path is user-controlled log path
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	l := current()
	l.mu.Lock()
	prev := l.writer
	l.file = f
	l.writer = io.MultiWriter(prev, f)
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		l.writer = prev
		l.file = nil
		l.mu.Unlock()
		_ = f.Close()
	}, nil
}

// InitWriter replaces the global logger with one writing to w at the
// given minimum level. The returned function restores the previous logger.
func InitWriter(w io.Writer, minLevel Level) func() {
	defaultMu.Lock()
	prev := defaultLogger
	defaultLogger = &Logger{writer: w, enabled: true, minLevel: minLevel}
	defaultMu.Unlock()

	return func() {
		defaultMu.Lock()
		defaultLogger = prev
		defaultMu.Unlock()
	}
}

// With sets fields appended to every subsequent entry, such as a run id.
func With(fields ...any) {
	l := current()
	l.mu.Lock()
	l.fields = append(l.fields[:0:0], fields...)
	l.mu.Unlock()
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	l := current()
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	log(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	log(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	log(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	log(LevelError, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	log(LevelError, cat, msg, fields...)
}

func current() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLogger
}

func log(level Level, cat Category, msg string, fields ...any) {
	l := current()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.minLevel || l.writer == nil {
		return
	}

	// Format: 2025-12-06T10:45:00 [ERROR] [prereq] message key=value key2=value2
	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02T15:04:05"))
	fmt.Fprintf(&b, " [%s] [%s] %s", level, cat, msg)

	writeFields(&b, fields)
	writeFields(&b, l.fields)
	b.WriteByte('\n')

	_, _ = io.WriteString(l.writer, b.String())
}

func writeFields(b *strings.Builder, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(b, " %v=%v", fields[i], fields[i+1])
	}
	// Odd field count: keep the orphan key visible
	if len(fields)%2 != 0 {
		fmt.Fprintf(b, " %v=<missing>", fields[len(fields)-1])
	}
}
