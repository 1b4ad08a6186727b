package klog

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
)

func TestParseLevel(t *testing.T) {
	specs := []struct {
		in     string
		exp    Level
		expErr bool
	}{
		{"off", LevelOff, false},
		{"ERROR", LevelError, false},
		{"warning", LevelWarn, false},
		{"info", LevelInfo, false},
		{"debug", LevelDebug, false},
		{"loud", LevelOff, true},
	}

	for _, spec := range specs {
		got, err := ParseLevel(spec.in)
		if (err != nil) != spec.expErr {
			t.Errorf("ParseLevel(%q): unexpected error state: %v", spec.in, err)
			continue
		}
		if got != spec.exp {
			t.Errorf("ParseLevel(%q): expected %s; got %s", spec.in, spec.exp, got)
		}
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	origNoColor := color.NoColor
	defer func() { color.NoColor = origNoColor }()
	color.NoColor = true

	var buf bytes.Buffer
	log := New(&buf, LevelWarn).Module("kbd")

	log.Debugf("key %d", 1)
	log.Infof("boot")
	log.Warnf("scancode queue full; dropping keyboard input")
	log.Errorf("bad %s", "state")

	exp := "WARNING [kbd] scancode queue full; dropping keyboard input\nERROR [kbd] bad state\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected:\n%q\ngot:\n%q", exp, got)
	}
}

func TestLoggerOffWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelOff)
	l.Module("x").Errorf("nope")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
	if l.Enabled(LevelError) {
		t.Fatal("expected LevelError to be disabled when the logger is off")
	}
}

type countingWriter struct{ writes int }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.writes++
	return len(p), nil
}

func TestLoggerWritesEachLineOnce(t *testing.T) {
	w := &countingWriter{}
	log := New(w, LevelDebug).Module("irq")
	log.Warnf("no handler for %s", "IRQ7")
	log.Debugf("tick")
	if w.writes != 2 {
		t.Fatalf("expected one write per line; got %d", w.writes)
	}
}
