// Package keyboard turns raw PS/2 scancodes delivered by the keyboard interrupt
// into characters for the shell. Source is the interrupt-side half, ScancodeStream
// the task-side half, and Decoder applies the US layout to scancode set 1.
package keyboard

import (
	"sync/atomic"

	"tickos/internal/eventq"
	"tickos/internal/kerr"
	"tickos/internal/klog"
	"tickos/internal/task"
)

// DefaultQueueCapacity is the scancode queue size used by NewScancodeStream.
const DefaultQueueCapacity = 100

var log = klog.For("keyboard")

// Source connects the keyboard interrupt handler to exactly one ScancodeStream.
// The queue is created by the stream; until then every scancode is dropped.
type Source struct {
	queue   atomic.Pointer[eventq.Queue[byte]]
	waker   task.AtomicWaker
	dropped atomic.Uint64
}

var defaultSource Source

// Default returns the kernel-wide Source fed by AddScancode.
func Default() *Source { return &defaultSource }

// AddScancode hands a scancode from the keyboard interrupt to the default Source.
func AddScancode(scancode byte) { defaultSource.AddScancode(scancode) }

// NewScancodeStream creates the stream for the default Source. It may be called
// only once.
func NewScancodeStream() *ScancodeStream {
	return defaultSource.NewStream(DefaultQueueCapacity)
}

// NewStream allocates the scancode queue and returns the stream that consumes
// it. A Source supports a single consumer; a second call is fatal.
func (s *Source) NewStream(capacity int) *ScancodeStream {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := eventq.New[byte](capacity)
	if !s.queue.CompareAndSwap(nil, q) {
		kerr.Fatal("keyboard", "ScancodeStream should only be constructed once")
	}
	return &ScancodeStream{src: s, queue: q}
}

// AddScancode is called from interrupt context. It must not block or allocate:
// a full or missing queue drops the byte with a warning instead of failing.
func (s *Source) AddScancode(scancode byte) {
	q := s.queue.Load()
	if q == nil {
		s.dropped.Add(1)
		log.Warnf("scancode queue uninitialized; dropping keyboard input")
		return
	}
	if !q.Push(scancode) {
		s.dropped.Add(1)
		log.Warnf("scancode queue full; dropping keyboard input")
		return
	}
	s.waker.Wake()
}

// Dropped returns how many scancodes were discarded.
func (s *Source) Dropped() uint64 {
	return s.dropped.Load()
}

// ScancodeStream is a lazy, infinite sequence of raw scancodes.
type ScancodeStream struct {
	src   *Source
	queue *eventq.Queue[byte]
}

// PollNext yields the next scancode, or Pending after registering cx's waker
// with the Source.
func (s *ScancodeStream) PollNext(cx *task.Context) (byte, task.Poll) {
	if b, ok := s.queue.Pop(); ok {
		return b, task.Ready
	}

	s.src.waker.Register(cx.Waker())
	// a byte may have arrived between the pop above and the registration
	if b, ok := s.queue.Pop(); ok {
		s.src.waker.Take()
		return b, task.Ready
	}
	return 0, task.Pending
}
