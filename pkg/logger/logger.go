// Package logger provides a minimal leveled logging utility.
package logger

import (
	"fmt"
	"os"
	"strings"
)

// Level is a log severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var currentLevel = LevelInfo

// SetLevel sets the current log level.
func SetLevel(level Level) {
	currentLevel = level
}

// SetLevelFromString sets the log level from its string name.
// Unrecognized names fall back to info.
func SetLevelFromString(level string) {
	switch strings.ToLower(level) {
	case "debug":
		currentLevel = LevelDebug
	case "info":
		currentLevel = LevelInfo
	case "warn", "warning":
		currentLevel = LevelWarn
	case "error":
		currentLevel = LevelError
	default:
		currentLevel = LevelInfo
	}
}

// IsDebugEnabled reports whether debug logging is enabled.
func IsDebugEnabled() bool {
	return currentLevel <= LevelDebug
}

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	if currentLevel <= LevelDebug {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	if currentLevel <= LevelInfo {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	if currentLevel <= LevelWarn {
		fmt.Fprintf(os.Stderr, "[WARN] "+format+"\n", args...)
	}
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	if currentLevel <= LevelError {
		fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
	}
}
