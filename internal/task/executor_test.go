package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"tickos/internal/cpu"
	"tickos/internal/kerr"
)

// pollCounter is pending until released, remembering the last waker it saw.
type pollCounter struct {
	polls    int
	released bool
	waker    *Waker
}

func (p *pollCounter) Poll(cx *Context) Poll {
	p.polls++
	p.waker = cx.Waker()
	if p.released {
		return Ready
	}
	return Pending
}

func expectFatal(t *testing.T, module string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(*kerr.Error)
		if !ok {
			t.Fatalf("expected *kerr.Error panic, got %v (%T)", r, r)
		}
		if err.Module != module {
			t.Fatalf("expected module %q; got %q", module, err.Module)
		}
	}()
	fn()
}

func TestTaskIDsAreUniqueAndIncreasing(t *testing.T) {
	a := New(FutureFunc(func(*Context) Poll { return Ready }))
	b := New(FutureFunc(func(*Context) Poll { return Ready }))
	if b.ID() <= a.ID() {
		t.Fatalf("expected increasing IDs; got %d then %d", a.ID(), b.ID())
	}
}

func TestSpawnedTasksRunToCompletion(t *testing.T) {
	exec := NewExecutor(Config{})
	var order []ID

	var ids []ID
	for i := 0; i < 3; i++ {
		var tk *Task
		tk = New(FutureFunc(func(*Context) Poll {
			order = append(order, tk.ID())
			return Ready
		}))
		ids = append(ids, exec.Spawn(tk))
	}

	if got := exec.RunReady(); got != 3 {
		t.Fatalf("expected 3 polls; got %d", got)
	}
	for i, id := range ids {
		if order[i] != id {
			t.Fatalf("expected FIFO poll order %v; got %v", ids, order)
		}
		if exec.Has(id) {
			t.Fatalf("task %d lingered after completion", id)
		}
	}
	if exec.Len() != 0 || len(exec.wakers) != 0 {
		t.Fatalf("expected no tasks or cached wakers; got %d tasks, %d wakers", exec.Len(), len(exec.wakers))
	}
	if st := exec.Stats(); st.Spawned != 3 || st.Completed != 3 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestPendingTaskWaitsForWake(t *testing.T) {
	exec := NewExecutor(Config{})
	pc := &pollCounter{}
	id := exec.Spawn(New(pc))

	exec.RunReady()
	if pc.polls != 1 {
		t.Fatalf("expected 1 poll; got %d", pc.polls)
	}
	if exec.Queued() != 0 {
		t.Fatal("a pending task must stay out of the ready queue until woken")
	}
	if got := exec.RunReady(); got != 0 {
		t.Fatalf("expected nothing to run without a wakeup; polled %d", got)
	}
	if len(exec.wakers) != 1 {
		t.Fatalf("expected one cached waker; got %d", len(exec.wakers))
	}

	first := pc.waker
	pc.released = true
	first.Wake()
	exec.RunReady()

	if pc.polls != 2 {
		t.Fatalf("expected 2 polls; got %d", pc.polls)
	}
	if pc.waker != first {
		t.Fatal("expected the cached waker to be reused")
	}
	if exec.Has(id) || len(exec.wakers) != 0 {
		t.Fatal("expected the task and its waker to be removed after completion")
	}
}

func TestDoubleWakeIsHarmlessAfterCompletion(t *testing.T) {
	exec := NewExecutor(Config{})
	pc := &pollCounter{}
	exec.Spawn(New(pc))
	exec.RunReady()

	pc.released = true
	pc.waker.Wake()
	pc.waker.Wake()
	if got := exec.Queued(); got != 2 {
		t.Fatalf("expected the task id queued twice; got %d entries", got)
	}

	if got := exec.RunReady(); got != 1 {
		t.Fatalf("expected a single real poll; got %d", got)
	}
	if pc.polls != 2 {
		t.Fatalf("expected the completed task not to be polled again; polls=%d", pc.polls)
	}
	if st := exec.Stats(); st.StaleWakeups != 1 {
		t.Fatalf("expected 1 stale wakeup; got %d", st.StaleWakeups)
	}
}

func TestSelfWakeIsServicedNextPass(t *testing.T) {
	exec := NewExecutor(Config{})
	var hotPolls, otherPolls int

	exec.Spawn(New(FutureFunc(func(cx *Context) Poll {
		hotPolls++
		cx.Waker().Wake()
		return Pending
	})))
	exec.Spawn(New(FutureFunc(func(*Context) Poll {
		otherPolls++
		return Ready
	})))

	if got := exec.RunReady(); got != 2 {
		t.Fatalf("expected 2 polls in the first pass; got %d", got)
	}
	if hotPolls != 1 || otherPolls != 1 {
		t.Fatalf("expected each task polled once; hot=%d other=%d", hotPolls, otherPolls)
	}

	exec.RunReady()
	if hotPolls != 2 {
		t.Fatalf("expected the self-woken task to run on the next pass; hot=%d", hotPolls)
	}
}

func TestSpawnDuplicateIsFatal(t *testing.T) {
	exec := NewExecutor(Config{})
	tk := New(FutureFunc(func(*Context) Poll { return Pending }))
	exec.Spawn(tk)

	expectFatal(t, "task", func() { exec.Spawn(tk) })
}

func TestSpawnIntoFullQueueIsFatal(t *testing.T) {
	exec := NewExecutor(Config{QueueCapacity: 2})
	pending := func(*Context) Poll { return Pending }
	exec.Spawn(New(FutureFunc(pending)))
	exec.Spawn(New(FutureFunc(pending)))

	expectFatal(t, "task", func() { exec.Spawn(New(FutureFunc(pending))) })
}

func TestWakeIntoFullQueueIsFatal(t *testing.T) {
	exec := NewExecutor(Config{QueueCapacity: 1})
	w := NewWaker(42, exec.queue)
	w.Wake()

	expectFatal(t, "task", w.Wake)
}

func TestAtomicWakerTakesRegistration(t *testing.T) {
	exec := NewExecutor(Config{})
	var slot AtomicWaker

	if slot.Wake() {
		t.Fatal("expected Wake on an empty slot to report false")
	}

	slot.Register(NewWaker(1, exec.queue))
	slot.Register(NewWaker(2, exec.queue))
	if !slot.Registered() {
		t.Fatal("expected a registered waker")
	}
	if !slot.Wake() {
		t.Fatal("expected Wake to find the registered waker")
	}
	if slot.Registered() {
		t.Fatal("expected Wake to clear the slot")
	}

	id, ok := exec.queue.Pop()
	if !ok || id != 2 {
		t.Fatalf("expected the last registration (2) to be woken; got %d (ok=%t)", id, ok)
	}
}

func TestRunHaltsWhenIdleAndStopsOnCancel(t *testing.T) {
	c := cpu.New()
	exec := NewExecutor(Config{CPU: c})
	pc := &pollCounter{}
	id := exec.Spawn(New(pc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- exec.Run(ctx) }()

	waitHalted := func() {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for !c.Halted() {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for the executor to halt")
			}
			time.Sleep(time.Millisecond)
		}
	}

	waitHalted()

	// the "interrupt handler" wakes the task
	c.Interrupt(func(*cpu.Registers) {
		pc.released = true
		pc.waker.Wake()
	})
	waitHalted()

	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled; got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return after cancellation")
	}

	if exec.Has(id) {
		t.Fatal("expected the woken task to complete")
	}
	if st := exec.Stats(); st.Halts == 0 {
		t.Fatal("expected the executor to halt while idle")
	}
}
