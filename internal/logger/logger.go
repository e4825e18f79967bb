// Package logger provides leveled logging with support for debug, info, warn, and error levels.
// The text format wraps the standard log package; the json format writes one
// object per line so monitoring output can be shipped to a log collector.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If an application is running smoothly, it shouldn't generate any error-level logs.
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel maps a config string onto a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger provides leveled logging
type Logger struct {
	level  Level
	json   bool
	out    io.Writer
	logger *log.Logger
	mu     sync.Mutex // serializes json writes
}

var (
	// Global logger instance
	defaultLogger *Logger
)

// Init initializes the default logger with the specified level and format
func Init(level string, format string) {
	initWith(os.Stderr, level, format)
}

// SetOutput re-initializes the default logger to write to w. Intended for tests.
func SetOutput(w io.Writer, level string, format string) {
	initWith(w, level, format)
}

func initWith(w io.Writer, level, format string) {
	// Set log flags based on format
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}

	defaultLogger = &Logger{
		level:  ParseLevel(level),
		json:   strings.ToLower(format) == "json",
		out:    w,
		logger: log.New(w, "", flags),
	}
}

type jsonLine struct {
	Time   string `json:"time"`
	Level  string `json:"level"`
	Msg    string `json:"msg"`
	Caller string `json:"caller,omitempty"`
}

func (l *Logger) output(lvl Level, format string, args ...interface{}) {
	if l == nil || l.level > lvl {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !l.json {
		_ = l.logger.Output(3, "["+lvl.String()+"] "+msg)
		return
	}

	line := jsonLine{
		Time:  time.Now().UTC().Format(time.RFC3339Nano),
		Level: strings.ToLower(lvl.String()),
		Msg:   msg,
	}
	if _, file, no, ok := runtime.Caller(2); ok {
		line.Caller = fmt.Sprintf("%s:%d", shortFile(file), no)
	}
	b, err := json.Marshal(line)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(b, '\n'))
}

func shortFile(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	defaultLogger.output(DebugLevel, format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	defaultLogger.output(InfoLevel, format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	defaultLogger.output(WarnLevel, format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	defaultLogger.output(ErrorLevel, format, args...)
}
