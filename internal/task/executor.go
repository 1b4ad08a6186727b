package task

import (
	"context"

	"tickos/internal/cpu"
	"tickos/internal/eventq"
	"tickos/internal/kerr"
	"tickos/internal/klog"
)

// DefaultQueueCapacity is the ready queue size when Config leaves it unset.
const DefaultQueueCapacity = 100

// Idler is the part of the CPU the executor needs to sleep safely.
type Idler interface {
	DisableInterrupts()
	EnableInterrupts()
	EnableAndHalt()
	Kick()
}

// Config configures an Executor.
type Config struct {
	QueueCapacity int
	CPU           Idler
	Log           *klog.Logger
}

// Stats counts executor activity.
type Stats struct {
	Spawned      uint64
	Polls        uint64
	Completed    uint64
	StaleWakeups uint64
	Halts        uint64
}

// Executor runs tasks on a single goroutine. Its ready queue is the only state
// it shares with interrupt context.
type Executor struct {
	tasks  map[ID]*Task
	queue  *eventq.Queue[ID]
	wakers map[ID]*Waker
	cpu    Idler
	stats  Stats
	log    klog.Module
}

// NewExecutor constructs an executor with the provided configuration.
func NewExecutor(cfg Config) *Executor {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.CPU == nil {
		cfg.CPU = cpu.New()
	}
	log := klog.For("executor")
	if cfg.Log != nil {
		log = cfg.Log.Module("executor")
	}
	return &Executor{
		tasks:  make(map[ID]*Task),
		queue:  eventq.New[ID](cfg.QueueCapacity),
		wakers: make(map[ID]*Waker),
		cpu:    cfg.CPU,
		log:    log,
	}
}

// Spawn stores t and queues it for its first poll. A duplicate ID or a full
// ready queue is fatal.
func (e *Executor) Spawn(t *Task) ID {
	if _, dup := e.tasks[t.id]; dup {
		kerr.Fatal("task", "task with same ID already in tasks: %d", t.id)
	}
	e.tasks[t.id] = t
	if !e.queue.Push(t.id) {
		kerr.Fatal("task", "queue full; cannot spawn task %d", t.id)
	}
	e.stats.Spawned++
	e.log.Debugf("spawned task %d", t.id)
	return t.id
}

// RunReady performs one drain pass. Only the IDs queued when the pass starts are
// serviced, in FIFO order; a task woken during the pass, including one that wakes
// itself, waits for the next pass. It returns the number of tasks polled.
func (e *Executor) RunReady() int {
	n := e.queue.Len()
	polled := 0
	for i := 0; i < n; i++ {
		id, ok := e.queue.Pop()
		if !ok {
			break
		}
		t, ok := e.tasks[id]
		if !ok {
			// task no longer exists
			e.stats.StaleWakeups++
			continue
		}
		w, ok := e.wakers[id]
		if !ok {
			w = NewWaker(id, e.queue)
			e.wakers[id] = w
		}

		e.stats.Polls++
		polled++
		if t.poll(&Context{waker: w}) == Ready {
			delete(e.tasks, id)
			delete(e.wakers, id)
			e.stats.Completed++
			e.log.Debugf("task %d completed", id)
		}
	}
	return polled
}

// Run drives tasks until ctx is cancelled, halting the CPU whenever the ready
// queue is empty. The kernel passes a context that is never cancelled, so on
// the target Run does not return.
func (e *Executor) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, e.cpu.Kick)
	defer stop()

	for {
		e.RunReady()
		if err := ctx.Err(); err != nil {
			return err
		}
		e.sleepIfIdle(ctx)
	}
}

// sleepIfIdle checks for work with interrupts disabled so a wakeup cannot land
// between the check and the halt.
func (e *Executor) sleepIfIdle(ctx context.Context) {
	e.cpu.DisableInterrupts()
	if e.queue.IsEmpty() && ctx.Err() == nil {
		e.stats.Halts++
		e.cpu.EnableAndHalt()
		return
	}
	e.cpu.EnableInterrupts()
}

// Len returns the number of live tasks.
func (e *Executor) Len() int { return len(e.tasks) }

// Has reports whether the task is still live.
func (e *Executor) Has(id ID) bool {
	_, ok := e.tasks[id]
	return ok
}

// Queued returns the number of IDs waiting in the ready queue.
func (e *Executor) Queued() int { return e.queue.Len() }

// Stats returns a copy of the activity counters.
func (e *Executor) Stats() Stats { return e.stats }
