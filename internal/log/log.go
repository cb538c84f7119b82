// Package log is the structured leveled logger the rest of the process
// calls (log.Debug/Info/Warn/Error/WarnOnce/Fatal with log.Pairs), built
// on github.com/go-kit/kit/log, with optional file output rotated by
// gopkg.in/natefinch/lumberjack.v2.
package log

import (
	"fmt"
	"os"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Pairs is a set of structured fields attached to a log line.
type Pairs map[string]interface{}

// Level is a filterable log severity, ordered least to most severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]Level{
	"DEBUG": LevelDebug,
	"INFO":  LevelInfo,
	"WARN":  LevelWarn,
	"ERROR": LevelError,
}

// ParseLevel maps a configured log level name to a Level, defaulting to
// LevelInfo for an unrecognized name.
func ParseLevel(name string) Level {
	if l, ok := levelNames[name]; ok {
		return l
	}
	return LevelInfo
}

// Logger is a level-filtered, go-kit-backed logger.
type Logger struct {
	base   kitlog.Logger
	level  Level
	closer func() error

	mu     sync.Mutex
	warned map[string]bool
}

// New builds a Logger at levelName, writing to stderr, or to logFile
// (rotated by lumberjack) when logFile is non-empty.
func New(levelName, logFile string) *Logger {
	var w = os.Stderr
	var closer func() error
	var base kitlog.Logger

	if logFile != "" {
		lj := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
		}
		base = kitlog.NewLogfmtLogger(lj)
		closer = lj.Close
	} else {
		base = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	}

	base = kitlog.With(base, "ts", kitlog.TimestampFormat(time.Now, time.RFC3339))

	return &Logger{
		base:   base,
		level:  ParseLevel(levelName),
		closer: closer,
		warned: make(map[string]bool),
	}
}

// Close releases the underlying log file, if one is open.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer()
	}
	return nil
}

func (l *Logger) log(level Level, levelName, msg string, p Pairs) {
	if level < l.level {
		return
	}
	kvs := make([]interface{}, 0, 4+len(p)*2)
	kvs = append(kvs, "level", levelName, "event", msg)
	for k, v := range p {
		kvs = append(kvs, k, v)
	}
	l.base.Log(kvs...)
}

// Debug logs msg with fields p at LevelDebug.
func (l *Logger) Debug(msg string, p Pairs) { l.log(LevelDebug, "DEBUG", msg, p) }

// Info logs msg with fields p at LevelInfo.
func (l *Logger) Info(msg string, p Pairs) { l.log(LevelInfo, "INFO", msg, p) }

// Warn logs msg with fields p at LevelWarn.
func (l *Logger) Warn(msg string, p Pairs) { l.log(LevelWarn, "WARN", msg, p) }

// Error logs msg with fields p at LevelError.
func (l *Logger) Error(msg string, p Pairs) { l.log(LevelError, "ERROR", msg, p) }

// WarnOnce logs msg at LevelWarn the first time it is called for a given
// key, and is a no-op on every subsequent call with that key, for
// conditions (like clock skew) that would otherwise spam every
// transaction.
func (l *Logger) WarnOnce(key, msg string, p Pairs) {
	l.mu.Lock()
	already := l.warned[key]
	l.warned[key] = true
	l.mu.Unlock()
	if already {
		return
	}
	l.Warn(msg, p)
}

// Fatal logs msg at LevelError then exits the process with status 1.
func (l *Logger) Fatal(msg string, p Pairs) {
	l.Error(msg, p)
	os.Exit(1)
}

var (
	defaultMu sync.RWMutex
	std       = New("INFO", "")
)

// SetDefault installs l as the package-level logger every free function
// in this package delegates to.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	std = l
	defaultMu.Unlock()
}

func get() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return std
}

// Debug logs msg with fields p at LevelDebug on the default Logger.
func Debug(msg string, p Pairs) { get().Debug(msg, p) }

// Info logs msg with fields p at LevelInfo on the default Logger.
func Info(msg string, p Pairs) { get().Info(msg, p) }

// Warn logs msg with fields p at LevelWarn on the default Logger.
func Warn(msg string, p Pairs) { get().Warn(msg, p) }

// Error logs msg with fields p at LevelError on the default Logger.
func Error(msg string, p Pairs) { get().Error(msg, p) }

// WarnOnce logs msg once per key at LevelWarn on the default Logger.
func WarnOnce(key, msg string, p Pairs) { get().WarnOnce(key, msg, p) }

// Fatal logs msg at LevelError on the default Logger, then exits.
func Fatal(err error) { get().Fatal(fmt.Sprintf("%v", err), nil) }
