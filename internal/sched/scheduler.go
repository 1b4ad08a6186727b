// internal/sched/scheduler.go

// Package sched implements the round robin process scheduler driven by the
// timer interrupt.
package sched

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/emirpasic/gods/maps/treemap"

	"tickos/internal/cpu"
)

// DefaultSliceTicks is the number of timer ticks a process runs before it is
// preempted.
const DefaultSliceTicks = 10

var (
	ErrNoSuchProcess = errors.New("no such process")
	ErrDuplicatePID  = errors.New("pid already in use")
	ErrInvalidState  = errors.New("invalid process state")
)

// Options configures a Scheduler.
type Options struct {
	SliceTicks uint64
	Sink       EventSink
	Now        func() time.Time
}

// Scheduler multiplexes processes in FIFO round robin order with a fixed time
// slice. All methods are safe for concurrent use; callers outside interrupt
// context must additionally keep the timer interrupt masked (see
// cpu.WithoutInterrupts) so the timer handler never waits on an interrupted
// lock holder.
type Scheduler struct {
	mu         sync.Mutex
	sliceTicks uint64
	remaining  uint64                 // ticks left in the current slice
	ticks      uint64                 // timer ticks seen so far
	procs      *treemap.Map           // PID -> *Process, ordered by PID
	ready      *doublylinkedlist.List // PIDs, head runs next
	current    PID                    // 0 when idle
	frame      *cpu.Registers         // register file of the running process, nil until TickFrame sees one
	sink       EventSink
	now        func() time.Time
}

// New creates an empty scheduler.
func New(opts Options) *Scheduler {
	if opts.SliceTicks == 0 {
		opts.SliceTicks = DefaultSliceTicks
	}
	if opts.Sink == nil {
		opts.Sink = discardSink{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		sliceTicks: opts.SliceTicks,
		procs:      treemap.NewWith(cmpPID),
		ready:      doublylinkedlist.New(),
		sink:       opts.Sink,
		now:        opts.Now,
	}
}

// cmpPID orders the process table by PID.
func cmpPID(a, b any) int {
	pa, pb := a.(PID), b.(PID)
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// Add inserts p into the process table in the Ready state and queues it at the
// tail of the ready queue.
func (s *Scheduler) Add(p *Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.procs.Get(p.PID); dup {
		return fmt.Errorf("add %d: %w", p.PID, ErrDuplicatePID)
	}
	p.State = Ready
	s.procs.Put(p.PID, p)
	s.ready.Add(p.PID)
	s.emit(EventEnqueue, p)
	return nil
}

// Spawn creates a process named name and adds it.
func (s *Scheduler) Spawn(name string, parent PID) PID {
	p := NewProcess(name, parent)
	// fresh PIDs cannot collide
	_ = s.Add(p)
	return p.PID
}

// Schedule rotates the current process to the tail of the ready queue and
// dispatches the next Ready one. It reports false when nothing is runnable.
func (s *Scheduler) Schedule() (PID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule()
}

// TimerTick accounts one timer tick and forces a rotation when the time slice
// runs out. It switches registers only if TickFrame has attached a frame.
func (s *Scheduler) TimerTick() {
	s.TickFrame(nil)
}

// TickFrame is TimerTick with a trap frame. The scheduler keeps frame as the
// register file of the running process: from then on every dispatch, whether
// caused by slice expiry, Schedule, Block or Terminate, saves frame into the
// outgoing process and loads the incoming one's registers into it. frame must
// stay valid and is only touched under the scheduler lock.
func (s *Scheduler) TickFrame(frame *cpu.Registers) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frame != nil {
		s.frame = frame
	}

	s.ticks++
	if p := s.lookup(s.current); p != nil {
		p.RanTicks++
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.schedule()
	}
}

// schedule implements Schedule. Without an attached frame the rotation is
// logical only.
func (s *Scheduler) schedule() (PID, bool) {
	frame := s.frame
	prev := s.lookup(s.current)
	if prev != nil && prev.State == Running {
		prev.State = Ready
		s.ready.Add(prev.PID)
	}

	for !s.ready.Empty() {
		v, _ := s.ready.Get(0)
		s.ready.Remove(0)

		next := s.lookup(v.(PID))
		if next == nil || next.State != Ready {
			// terminated or blocked after being queued
			continue
		}
		next.State = Running
		s.current = next.PID
		s.remaining = s.sliceTicks

		if prev != next {
			if prev != nil && prev.State == Ready {
				s.emit(EventPreempt, prev)
			}
			if frame != nil {
				// prev is nil when idle or when it was terminated
				if prev != nil {
					prev.Registers = *frame
				}
				*frame = next.Registers
			}
			s.emit(EventDispatch, next)
		}
		return next.PID, true
	}

	if prev != nil && frame != nil {
		prev.Registers = *frame
	}
	if s.current != 0 {
		s.emit(EventIdle, nil)
	}
	s.current = 0
	s.remaining = 0
	return 0, false
}

// Terminate marks pid Terminated and removes it from the process table and
// the ready queue. Terminating the current process dispatches a replacement
// immediately.
func (s *Scheduler) Terminate(pid PID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.lookup(pid)
	if p == nil {
		return fmt.Errorf("terminate %d: %w", pid, ErrNoSuchProcess)
	}
	p.State = Terminated
	s.procs.Remove(pid)
	s.dequeue(pid)
	s.emit(EventTerminate, p)

	if s.current == pid {
		// the table no longer holds pid, so schedule treats it as gone
		s.schedule()
	}
	return nil
}

// Block moves a Ready or Running process to Blocked. Blocking the current
// process dispatches the next one.
func (s *Scheduler) Block(pid PID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.lookup(pid)
	if p == nil {
		return fmt.Errorf("block %d: %w", pid, ErrNoSuchProcess)
	}
	switch p.State {
	case Ready:
		s.dequeue(pid)
	case Running:
	default:
		return fmt.Errorf("block %d (%s): %w", pid, p.State, ErrInvalidState)
	}
	p.State = Blocked
	s.emit(EventBlock, p)

	if s.current == pid {
		s.schedule()
	}
	return nil
}

// Unblock returns a Blocked process to the tail of the ready queue. An idle
// scheduler picks it up on the next tick.
func (s *Scheduler) Unblock(pid PID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.lookup(pid)
	if p == nil {
		return fmt.Errorf("unblock %d: %w", pid, ErrNoSuchProcess)
	}
	if p.State != Blocked {
		return fmt.Errorf("unblock %d (%s): %w", pid, p.State, ErrInvalidState)
	}
	p.State = Ready
	s.ready.Add(pid)
	s.emit(EventUnblock, p)
	return nil
}

// SetPriority changes the informational priority of pid.
func (s *Scheduler) SetPriority(pid PID, prio uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.lookup(pid)
	if p == nil {
		return fmt.Errorf("nice %d: %w", pid, ErrNoSuchProcess)
	}
	p.Priority = prio
	s.emit(EventPriorityUpdate, p)
	return nil
}

// Get returns a copy of the process control block for pid.
func (s *Scheduler) Get(pid PID) (Process, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.lookup(pid)
	if p == nil {
		return Process{}, false
	}
	return p.clone(), true
}

// List returns copies of all live processes ordered by PID.
func (s *Scheduler) List() []Process {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Process, 0, s.procs.Size())
	for _, v := range s.procs.Values() {
		out = append(out, v.(*Process).clone())
	}
	return out
}

// Current returns the running process, if any.
func (s *Scheduler) Current() (PID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != 0
}

// Ticks returns the number of timer ticks seen.
func (s *Scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Len returns the number of live processes.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs.Size()
}

func (s *Scheduler) lookup(pid PID) *Process {
	if pid == 0 {
		return nil
	}
	v, ok := s.procs.Get(pid)
	if !ok {
		return nil
	}
	return v.(*Process)
}

// dequeue removes every queued occurrence of pid.
func (s *Scheduler) dequeue(pid PID) {
	for i := s.ready.IndexOf(pid); i >= 0; i = s.ready.IndexOf(pid) {
		s.ready.Remove(i)
	}
}

func (s *Scheduler) emit(kind EventKind, p *Process) {
	ev := Event{
		Time: s.now(),
		Tick: s.ticks,
		Kind: kind,
	}
	if p != nil {
		ev.PID = p.PID
		ev.Name = p.Name
		ev.RanTicks = p.RanTicks
		ev.Priority = p.Priority
	}
	s.sink.Emit(ev)
}

func (p *Process) clone() Process {
	c := *p
	c.OpenFiles = append([]int(nil), p.OpenFiles...)
	return c
}
