// Package task implements the cooperative async runtime: tasks are explicit
// poll-driven state machines, wakers re-queue them from interrupt context, and
// a single-threaded Executor drives them and idles the CPU when nothing is ready.
package task

import "sync/atomic"

// ID identifies a spawned task. IDs come from a process-wide counter and are
// never reused.
type ID uint64

var nextID atomic.Uint64

func newID() ID {
	return ID(nextID.Add(1) - 1)
}

// Poll is the result of polling a Future once.
type Poll uint8

const (
	// Pending means the future cannot make progress until its waker fires.
	Pending Poll = iota
	// Ready means the future has completed.
	Ready
)

func (p Poll) String() string {
	switch p {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Future is a suspendable computation that produces no value. Poll must not
// block: when it cannot progress it arranges for cx.Waker() to be woken and
// returns Pending.
type Future interface {
	Poll(cx *Context) Poll
}

// FutureFunc adapts a poll function to Future.
type FutureFunc func(cx *Context) Poll

// Poll calls f(cx).
func (f FutureFunc) Poll(cx *Context) Poll { return f(cx) }

// Context is handed to Future.Poll.
type Context struct {
	waker *Waker
}

// NewContext returns a Context carrying w.
func NewContext(w *Waker) *Context {
	return &Context{waker: w}
}

// Waker returns the handle that re-queues the task being polled.
func (cx *Context) Waker() *Waker {
	return cx.waker
}

// Task is a unit of cooperative execution owned by an Executor until it
// completes.
type Task struct {
	id     ID
	future Future
}

// New wraps f in a Task with a fresh ID.
func New(f Future) *Task {
	return &Task{id: newID(), future: f}
}

// ID returns the task's identifier.
func (t *Task) ID() ID { return t.id }

func (t *Task) poll(cx *Context) Poll {
	return t.future.Poll(cx)
}
