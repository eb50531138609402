package util

import (
	"sync"
)

var (
	globalLogger LoggerInterface
	loggerOnce   sync.Once
)

// InitLoggerWithFormat initializes the global logger writing entries in
// format. Only the first call has an effect.
func InitLoggerWithFormat(logLevel, logFile string, debugToConsole bool, format LogFormat) error {
	var err error
	loggerOnce.Do(func() {
		var logger *Logger
		logger, err = NewLoggerWithFormat(logLevel, logFile, debugToConsole, format)
		if err == nil {
			globalLogger = logger
		}
	})
	return err
}

// LogInfo convenience functions for logging
func LogInfo(msg string) {
	if globalLogger != nil {
		globalLogger.Info(msg)
	}
}

func LogInfof(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Infof(format, args...)
	}
}

func LogDebug(msg string) {
	if globalLogger != nil {
		globalLogger.Debug(msg)
	}
}

func LogDebugf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Debugf(format, args...)
	}
}

func LogWarn(msg string) {
	if globalLogger != nil {
		globalLogger.Warn(msg)
	}
}

func LogWarnf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Warnf(format, args...)
	}
}

func LogError(msg string) {
	if globalLogger != nil {
		globalLogger.Error(msg)
	}
}

func LogErrorf(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Errorf(format, args...)
	}
}

// GetLogger returns the global logger. Before InitLogger it returns a logger
// that discards everything.
func GetLogger() LoggerInterface {
	if globalLogger != nil {
		return globalLogger
	}
	return NewNopLogger()
}

// NewNopLogger returns a logger that drops everything
func NewNopLogger() LoggerInterface {
	return newLogger(LevelOff)
}
