package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Level is the severity of a log line.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger prefixes every line with the program name and level. A nil *Logger
// discards everything.
type Logger struct {
	prefix string
	mu     sync.Mutex
	w      io.Writer
	quiet  bool
}

// New returns a logger writing to w. When w is nil it writes to stderr.
func New(prefix string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{prefix: prefix, w: w}
}

// Discard returns a logger that drops all lines.
func Discard() *Logger {
	return &Logger{w: io.Discard}
}

// SetQuiet suppresses INFO lines. Warnings and errors are always written.
func (l *Logger) SetQuiet(quiet bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.quiet = quiet
	l.mu.Unlock()
}

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quiet && level == LevelInfo {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	if level == LevelInfo {
		fmt.Fprintf(l.w, "%s: %s\n", l.prefix, msg)
		return
	}
	fmt.Fprintf(l.w, "%s: %s: %s\n", l.prefix, strings.ToLower(string(level)), msg)
}

// Infof logs progress.
func (l *Logger) Infof(format string, args ...any) { l.log(LevelInfo, format, args...) }

// Warnf logs a recovered, degraded path.
func (l *Logger) Warnf(format string, args ...any) { l.log(LevelWarn, format, args...) }

// Errorf logs a fatal failure.
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }
