package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Package-global leveled logger.
// Lines look like: 2026-01-02T03:04:05Z [INFO] message key=value key2="two words"
// Callers must never pass token strings, passwords or secrets as values.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "info"
}

// ParseLevel is case-insensitive; unknown input maps to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

var (
	mu     sync.RWMutex
	out    = log.New(os.Stdout, "", 0)
	level  = LevelInfo
	exitFn = os.Exit
)

// Init sets the global log level (debug, info, warn, error, fatal). Default is info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(l)
}

// SetOutput redirects log lines; it returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out.Writer()
	out = log.New(w, "", 0)
	return prev
}

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	return level.String()
}

func emit(l Level, line string) {
	mu.RLock()
	defer mu.RUnlock()
	if l < level {
		return
	}
	out.Print(time.Now().UTC().Format(time.RFC3339) + " [" + strings.ToUpper(l.String()) + "] " + line)
}

func Debugf(format string, v ...interface{}) { emit(LevelDebug, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { emit(LevelInfo, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { emit(LevelWarn, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { emit(LevelError, fmt.Sprintf(format, v...)) }

// Fatalf always logs, then exits with status 1.
func Fatalf(format string, v ...interface{}) {
	mu.RLock()
	out.Print(time.Now().UTC().Format(time.RFC3339) + " [FATAL] " + fmt.Sprintf(format, v...))
	mu.RUnlock()
	exitFn(1)
}

func Debug(v string) { emit(LevelDebug, v) }
func Info(v string)  { emit(LevelInfo, v) }
func Warn(v string)  { emit(LevelWarn, v) }
func Error(v string) { emit(LevelError, v) }

// fields renders alternating key/value arguments as " k=v k2=v2".
// A trailing key without a value is rendered as k=<missing>.
func fields(kv []interface{}) string {
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		fmt.Fprint(&b, kv[i])
		b.WriteByte('=')
		if i+1 >= len(kv) {
			b.WriteString("<missing>")
			break
		}
		v := fmt.Sprint(kv[i+1])
		if v == "" || strings.ContainsAny(v, " \t\"=") {
			v = fmt.Sprintf("%q", v)
		}
		b.WriteString(v)
	}
	return b.String()
}

func Debugw(msg string, kv ...interface{}) { emit(LevelDebug, msg+fields(kv)) }
func Infow(msg string, kv ...interface{})  { emit(LevelInfo, msg+fields(kv)) }
func Warnw(msg string, kv ...interface{})  { emit(LevelWarn, msg+fields(kv)) }
func Errorw(msg string, kv ...interface{}) { emit(LevelError, msg+fields(kv)) }
