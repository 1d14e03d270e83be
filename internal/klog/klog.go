// Package klog provides leveled logging for the kernel on top of the
// standard library "log" package, matching nornicdb's habit of logging
// through log.Printf in its storage and transaction layers rather than
// pulling in a structured-logging dependency.
package klog

import (
	"log"
	"os"
)

// Level controls which messages reach the underlying logger.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelSilent suppresses all output.
	LevelSilent
)

// Logger is a leveled wrapper around *log.Logger.
type Logger struct {
	level Level
	out   *log.Logger
}

// New returns a Logger writing to stderr with the given minimum level.
func New(level Level) *Logger {
	return &Logger{level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

// Default is the package-level logger used by call sites that don't carry
// their own Logger through. SetDefault replaces it, e.g. with a
// LevelSilent logger for quiet output.
var Default = New(LevelInfo)

// SetDefault replaces the package-level logger.
func SetDefault(l *Logger) { Default = l }

func (l *Logger) log(level Level, format string, args []interface{}) {
	if l == nil || level < l.level {
		return
	}
	if len(args) == 0 {
		l.out.Print(format)
		return
	}
	l.out.Printf(format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, format, args) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args) }

func Debugf(format string, args ...interface{}) { Default.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { Default.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Default.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Default.Errorf(format, args...) }

// ParseLevel maps MEW_LOG_LEVEL-style strings to a Level, defaulting to Info
// on an unrecognized value, mirroring config.LoadFromEnv's tolerant parsing
// of environment variables elsewhere in the stack.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "silent":
		return LevelSilent
	default:
		return LevelInfo
	}
}
