// Package klog is the kernel diagnostic log. Lines are written as "[module] message"
// with a colored level tag.
package klog

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
)

var (
	warnTag  = color.New(color.FgYellow, color.Bold)
	errorTag = color.New(color.FgRed, color.Bold)
	debugTag = color.New(color.Faint)
)

// Logger writes leveled diagnostics to an io.Writer. It takes no lock, so
// interrupt handlers and the code they interrupt can both log: each line is
// built first and handed to the writer in a single Write.
type Logger struct {
	out   atomic.Pointer[output]
	level atomic.Uint32
}

type output struct {
	w io.Writer
}

// Default is the process-wide kernel log.
var Default = New(os.Stderr, LevelInfo)

// New returns a Logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	l := &Logger{}
	l.SetOutput(w)
	l.SetLevel(level)
	return l
}

// SetOutput redirects the log.
func (l *Logger) SetOutput(w io.Writer) {
	l.out.Store(&output{w: w})
}

// SetLevel changes the verbosity.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(uint32(level))
}

// Level returns the current verbosity.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level != LevelOff && level <= l.Level()
}

func (l *Logger) logf(level Level, module, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	out := l.out.Load()
	if out == nil || out.w == nil {
		return
	}

	var line []byte
	switch level {
	case LevelError:
		line = append(line, errorTag.Sprint("ERROR ")...)
	case LevelWarn:
		line = append(line, warnTag.Sprint("WARNING ")...)
	case LevelDebug:
		line = append(line, debugTag.Sprint("debug ")...)
	}
	line = fmt.Appendf(line, "[%s] ", module)
	line = fmt.Appendf(line, format, args...)
	line = append(line, '\n')
	_, _ = out.w.Write(line)
}

// Module is a Logger bound to a subsystem name.
type Module struct {
	l    *Logger
	name string
}

// For returns a module logger backed by whatever Default is at call time.
func For(name string) Module {
	return Module{name: name}
}

// Module returns a module logger backed by l.
func (l *Logger) Module(name string) Module {
	return Module{l: l, name: name}
}

func (m Module) logger() *Logger {
	if m.l == nil {
		return Default
	}
	return m.l
}

func (m Module) Errorf(format string, args ...any) {
	m.logger().logf(LevelError, m.name, format, args...)
}

func (m Module) Warnf(format string, args ...any) {
	m.logger().logf(LevelWarn, m.name, format, args...)
}

func (m Module) Infof(format string, args ...any) {
	m.logger().logf(LevelInfo, m.name, format, args...)
}

func (m Module) Debugf(format string, args ...any) {
	m.logger().logf(LevelDebug, m.name, format, args...)
}

// DebugEnabled lets callers skip building expensive debug arguments.
func (m Module) DebugEnabled() bool {
	return m.logger().Enabled(LevelDebug)
}
