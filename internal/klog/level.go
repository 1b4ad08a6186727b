package klog

import (
	"fmt"
	"strings"
)

// Level controls diagnostic verbosity.
type Level uint8

const (
	LevelOff   Level = iota // no output
	LevelError              // unrecoverable or surprising conditions
	LevelWarn               // dropped input, unknown syscalls
	LevelInfo               // boot and shutdown milestones
	LevelDebug              // everything, including per-key and per-tick noise
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid log level: %q (expected: off|error|warn|info|debug)", s)
	}
}
