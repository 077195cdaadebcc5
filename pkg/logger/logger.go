package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DebugLevel
	case "INFO":
		return InfoLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Fields is an alias so callers don't need to import logrus for structured logging.
type Fields = logrus.Fields

type Logger struct {
	base  *logrus.Logger
	level LogLevel
}

var defaultLogger *Logger

func init() {
	// LOG_LEVEL may also come from a .env file; cmd re-applies it after loading config.
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "INFO"
	}
	defaultLogger = NewLoggerWithLevel(ParseLogLevel(logLevelStr))
}

// NewLoggerWithLevel creates a new logger instance with specified level.
// Output goes to stderr so command output on stdout stays machine-readable.
func NewLoggerWithLevel(level LogLevel) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	base.SetLevel(level.logrus())
	return &Logger{base: base, level: level}
}

// SetOutput redirects the logger, mostly useful in tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// SetLevel changes the minimum level written by this logger.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.base.SetLevel(level.logrus())
}

// WithFields returns an entry carrying structured fields.
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	return l.base.WithFields(fields)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.base.Infof(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.base.Errorf(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.base.Debugf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.base.Warnf(format, args...)
}

// Package-level convenience functions using the default logger

// SetLogLevel sets the log level for the default logger
func SetLogLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
	defaultLogger.Debug("Log level changed to: %s", level.String())
}

// SetLogLevelFromString sets the log level from a string (convenience function)
func SetLogLevelFromString(level string) {
	SetLogLevel(ParseLogLevel(level))
}

// GetLogLevel returns the current log level
func GetLogLevel() LogLevel {
	return defaultLogger.level
}

// SetOutput redirects the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// WithFields returns an entry of the default logger carrying structured fields.
func WithFields(fields Fields) *logrus.Entry {
	return defaultLogger.WithFields(fields)
}

// Info logs an info message using the default logger
func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

// Error logs an error message using the default logger
func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

// Debug logs a debug message using the default logger
func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

// Warn logs a warning message using the default logger
func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}
