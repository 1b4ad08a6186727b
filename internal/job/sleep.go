// Package job holds background tasks that run on the executor and are paced
// by the timer interrupt.
package job

import (
	"sync/atomic"

	"tickos/internal/eventq"
	"tickos/internal/klog"
	"tickos/internal/task"
)

// DefaultSleepers bounds how many tasks can wait on Ticks at once.
const DefaultSleepers = 64

var log = klog.For("job")

// registeredFn is mocked by tests to land a tick right after a registration.
var registeredFn = func() {}

// Ticks counts timer interrupts and wakes the tasks sleeping on them. Tick is
// called from interrupt context; sleepers hand their wakers over through a
// wait-free queue.
type Ticks struct {
	n       atomic.Uint64
	waiting *eventq.Queue[*task.Waker]
}

// NewTicks creates a tick source with room for sleepers waiting tasks.
func NewTicks(sleepers int) *Ticks {
	if sleepers <= 0 {
		sleepers = DefaultSleepers
	}
	return &Ticks{waiting: eventq.New[*task.Waker](sleepers)}
}

// Tick advances the counter and wakes every registered sleeper. Sleepers that
// are not due yet register again when polled.
func (t *Ticks) Tick() {
	t.n.Add(1)
	for n := t.waiting.Len(); n > 0; n-- {
		w, ok := t.waiting.Pop()
		if !ok {
			return
		}
		w.Wake()
	}
}

// Now returns the number of ticks seen.
func (t *Ticks) Now() uint64 {
	return t.n.Load()
}

// register queues w for the next tick. With no room left the task is woken
// right away and polls again on the next executor pass.
func (t *Ticks) register(w *task.Waker) {
	if !t.waiting.Push(w) {
		log.Debugf("sleeper queue full; task %d spins", w.ID())
		w.Wake()
	}
	registeredFn()
}

type sleep struct {
	ticks    *Ticks
	n        uint64
	deadline uint64
	armed    bool
}

// SleepTicks returns a future that completes n ticks after its first poll.
func SleepTicks(ticks *Ticks, n uint64) task.Future {
	return &sleep{ticks: ticks, n: n}
}

func (s *sleep) Poll(cx *task.Context) task.Poll {
	if !s.armed {
		s.deadline = s.ticks.Now() + s.n
		s.armed = true
	}
	if s.ticks.Now() >= s.deadline {
		return task.Ready
	}
	s.ticks.register(cx.Waker())
	// the tick may have landed before the registration
	if s.ticks.Now() >= s.deadline {
		return task.Ready
	}
	return task.Pending
}
