// internal/sched/event.go

package sched

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventEnqueue EventKind = iota
	EventDispatch
	EventPreempt
	EventBlock
	EventUnblock
	EventTerminate
	EventIdle
	EventPriorityUpdate
)

func (k EventKind) String() string {
	switch k {
	case EventEnqueue:
		return "Enqueued"
	case EventDispatch:
		return "Dispatch"
	case EventPreempt:
		return "Preempt"
	case EventBlock:
		return "Block"
	case EventUnblock:
		return "Unblock"
	case EventTerminate:
		return "Terminate"
	case EventIdle:
		return "Idle"
	case EventPriorityUpdate:
		return "PriorityUpdate"
	default:
		return "Unknown"
	}
}

// Event is emitted on every state change of a process.
type Event struct {
	Time     time.Time
	Tick     uint64
	Kind     EventKind
	PID      PID
	Name     string
	RanTicks uint64
	Priority uint8
}

// String renders the event as one line of the scheduler trace.
func (ev Event) String() string {
	// an auxiliary function to center the event kind in the output
	center := func(str string, width int) string {
		spaces := (width - len(str)) / 2
		if spaces < 0 {
			return str
		}
		return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
	}

	return fmt.Sprintf("%s = Tick: %07d [%s] => PID: %04d %-10s Total ran: %04d ticks, priority=%03d",
		ev.Time.Format("Jan 02 15:04:05.000"),
		ev.Tick,
		center(ev.Kind.String(), 16),
		ev.PID,
		ev.Name,
		ev.RanTicks,
		ev.Priority,
	)
}

// EventSink consumes scheduler events. Emit is called with the scheduler lock
// held and possibly from the timer interrupt, so it must not block and must not
// call back into the scheduler.
type EventSink interface {
	Emit(ev Event)
}

type discardSink struct{}

func (discardSink) Emit(Event) {}

// ChannelSink forwards events to a buffered channel, dropping them when the
// reader falls behind.
type ChannelSink struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

func (c *ChannelSink) Emit(ev Event) {
	select {
	case c.ch <- ev:
	default:
		c.dropped.Add(1)
	}
}

// C exposes the read-only event stream.
func (c *ChannelSink) C() <-chan Event { return c.ch }

// Close closes the stream. The scheduler must not emit afterwards.
func (c *ChannelSink) Close() { close(c.ch) }

// Dropped returns how many events did not fit in the buffer.
func (c *ChannelSink) Dropped() uint64 { return c.dropped.Load() }

// MultiSink fans every event out to each sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// CSVSink appends one record per event.
type CSVSink struct {
	mu     sync.Mutex
	closer io.Closer
	w      *csv.Writer
	err    error
}

var csvHeader = []string{"timestamp", "tick", "event", "pid", "name", "ran_ticks", "priority"}

// NewCSVSink writes the header to w and returns the sink.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return &CSVSink{w: cw}, nil
}

// CreateCSV creates (or truncates) path and logs events to it.
func CreateCSV(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("event log: %w", err)
	}
	s, err := NewCSVSink(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("event log %s: %w", path, err)
	}
	s.closer = f
	return s, nil
}

func (s *CSVSink) Emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return
	}
	rec := []string{
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatUint(ev.Tick, 10),
		ev.Kind.String(),
		strconv.FormatUint(uint64(ev.PID), 10),
		ev.Name,
		strconv.FormatUint(ev.RanTicks, 10),
		strconv.FormatUint(uint64(ev.Priority), 10),
	}
	if err := s.w.Write(rec); err != nil {
		s.err = err
	}
}

// Close flushes pending records and closes the underlying file, if any. It
// returns the first write error seen.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Flush()
	if s.err == nil {
		s.err = s.w.Error()
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil && s.err == nil {
			s.err = err
		}
		s.closer = nil
	}
	return s.err
}
