package util

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelOff drops every entry
	LevelOff
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "OFF"
}

// ParseLogLevel maps a config value to a level. Unknown values mean info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "off", "none":
		return LevelOff
	}
	return LevelInfo
}

// Field is a key-value pair attached to an entry
type Field struct {
	Key   string
	Value interface{}
}

// LogFormat selects how outputs encode entries
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// ParseLogFormat maps "json" to FormatJSON and anything else to FormatText
func ParseLogFormat(s string) LogFormat {
	if s == string(FormatJSON) {
		return FormatJSON
	}
	return FormatText
}

// Output is a log destination
type Output interface {
	Write(entry LogEntry) error
	Close() error
}

// LogEntry is one log record. Session is set for entries of a playback
// session logger.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Session   string                 `json:"session,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LoggerInterface is what components log through
type LoggerInterface interface {
	Debug(msg string, fields ...Field)
	Debugf(format string, args ...interface{})
	Info(msg string, fields ...Field)
	Infof(format string, args ...interface{})
	Warn(msg string, fields ...Field)
	Warnf(format string, args ...interface{})
	Error(msg string, fields ...Field)
	Errorf(format string, args ...interface{})
	With(fields ...Field) LoggerInterface
	WithContext(ctx context.Context) LoggerInterface
	SetLevel(level LogLevel)
	AddOutput(output Output)
}

// sink is shared by a logger and every child created with With, so a level
// change or a new output applies to all of them
type sink struct {
	mu      sync.RWMutex
	level   LogLevel
	outputs []Output
}

// Logger writes leveled entries to its outputs
type Logger struct {
	sink    *sink
	session string
	fields  map[string]interface{}
}

// NewLoggerWithFormat creates a logger that writes to logFile, and to stderr
// when debugToConsole is set
func NewLoggerWithFormat(levelStr, logFile string, debugToConsole bool, format LogFormat) (*Logger, error) {
	logger := newLogger(ParseLogLevel(levelStr))
	if debugToConsole {
		logger.AddOutput(NewConsoleOutput(os.Stderr, format))
	}
	if logFile == "" {
		if !debugToConsole {
			return nil, fmt.Errorf("a log file is required unless logging to the console")
		}
		return logger, nil
	}
	out, err := NewFileOutput(logFile, format)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", logFile, err)
	}
	logger.AddOutput(out)
	return logger, nil
}

func newLogger(level LogLevel) *Logger {
	return &Logger{sink: &sink{level: level}, fields: map[string]interface{}{}}
}

func (l *Logger) log(level LogLevel, msg string, fields ...Field) {
	l.sink.mu.RLock()
	defer l.sink.mu.RUnlock()
	if level < l.sink.level || len(l.sink.outputs) == 0 {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Session:   l.session,
		Message:   msg,
	}
	if len(l.fields)+len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(l.fields)+len(fields))
		for k, v := range l.fields {
			entry.Fields[k] = v
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	for _, out := range l.sink.outputs {
		if err := out.Write(entry); err != nil {
			log.Printf("Failed to write log entry: %v", err)
		}
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields...) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, fmt.Sprintf(format, args...))
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields ...Field) LoggerInterface {
	child := &Logger{sink: l.sink, session: l.session, fields: make(map[string]interface{}, len(l.fields)+len(fields))}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for _, f := range fields {
		child.fields[f.Key] = f.Value
	}
	return child
}

type contextKey string

const sessionKey contextKey = "session"

// ContextWithSession attaches a playback session id to ctx
func ContextWithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// WithContext returns a child logger tagged with the session id found in ctx
func (l *Logger) WithContext(ctx context.Context) LoggerInterface {
	child := l.With().(*Logger)
	if id, ok := ctx.Value(sessionKey).(string); ok {
		child.session = id
	}
	return child
}

func (l *Logger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

func (l *Logger) AddOutput(output Output) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.outputs = append(l.sink.outputs, output)
}
