package task

import (
	"sync/atomic"

	"tickos/internal/eventq"
	"tickos/internal/kerr"
)

// Waker makes a suspended task eligible for polling again by pushing its ID on
// the executor's ready queue.
type Waker struct {
	id    ID
	queue *eventq.Queue[ID]
}

// NewWaker returns a waker for id that feeds queue.
func NewWaker(id ID, queue *eventq.Queue[ID]) *Waker {
	return &Waker{id: id, queue: queue}
}

// ID returns the task the waker belongs to.
func (w *Waker) ID() ID { return w.id }

// Wake queues the task. It is safe to call from interrupt context: it neither
// blocks nor allocates. Waking a task that has already completed is harmless,
// the executor drops the stale ID when it drains the queue. A full ready queue
// is a sizing bug and is fatal.
func (w *Waker) Wake() {
	if !w.queue.Push(w.id) {
		kerr.Fatal("task", "task_queue full; cannot wake task %d", w.id)
	}
}

// AtomicWaker is a single wake slot shared between one consumer and interrupt
// context producers. Register overwrites any previous waker; Wake takes the
// registered waker out of the slot and wakes it.
type AtomicWaker struct {
	w atomic.Pointer[Waker]
}

// Register stores w, replacing any earlier registration.
func (a *AtomicWaker) Register(w *Waker) {
	a.w.Store(w)
}

// Wake wakes and clears the registered waker. It reports whether one was set.
func (a *AtomicWaker) Wake() bool {
	w := a.w.Swap(nil)
	if w == nil {
		return false
	}
	w.Wake()
	return true
}

// Take removes and returns the registered waker without waking it.
func (a *AtomicWaker) Take() *Waker {
	return a.w.Swap(nil)
}

// Registered reports whether a waker is waiting in the slot.
func (a *AtomicWaker) Registered() bool {
	return a.w.Load() != nil
}
