package sched

import (
	"errors"
	"testing"
	"time"

	"tickos/internal/cpu"
)

type recordingSink struct{ events []Event }

func (r *recordingSink) Emit(ev Event) { r.events = append(r.events, ev) }

func (r *recordingSink) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func spawnN(s *Scheduler, names ...string) []PID {
	pids := make([]PID, 0, len(names))
	for _, n := range names {
		pids = append(pids, s.Spawn(n, 0))
	}
	return pids
}

func mustCurrent(t *testing.T, s *Scheduler, exp PID) {
	t.Helper()
	got, ok := s.Current()
	if !ok || got != exp {
		t.Fatalf("expected current pid %d; got %d (running=%t)", exp, got, ok)
	}
}

func TestRoundRobinRotation(t *testing.T) {
	s := New(Options{SliceTicks: 1})
	p := spawnN(s, "p1", "p2", "p3")

	if pid, ok := s.Schedule(); !ok || pid != p[0] {
		t.Fatalf("expected initial dispatch of %d; got %d", p[0], pid)
	}

	for i, exp := range []PID{p[1], p[2], p[0]} {
		s.TimerTick()
		if got, _ := s.Current(); got != exp {
			t.Fatalf("tick %d: expected current %d; got %d", i+1, exp, got)
		}
	}
}

func TestSliceCountdown(t *testing.T) {
	s := New(Options{SliceTicks: 3})
	p := spawnN(s, "a", "b")
	s.Schedule()

	s.TimerTick()
	s.TimerTick()
	mustCurrent(t, s, p[0])

	s.TimerTick()
	mustCurrent(t, s, p[1])

	if got := s.Ticks(); got != 3 {
		t.Fatalf("expected 3 ticks; got %d", got)
	}
	proc, _ := s.Get(p[0])
	if proc.RanTicks != 3 || proc.State != Ready {
		t.Fatalf("expected a Ready process with 3 ticks; got %s with %d", proc.State, proc.RanTicks)
	}
}

func TestSingleProcessKeepsRunning(t *testing.T) {
	sink := &recordingSink{}
	s := New(Options{SliceTicks: 1, Sink: sink})
	pid := s.Spawn("init", 0)
	s.Schedule()

	for i := 0; i < 5; i++ {
		s.TimerTick()
	}
	mustCurrent(t, s, pid)

	exp := []EventKind{EventEnqueue, EventDispatch}
	if got := sink.kinds(); len(got) != len(exp) || got[0] != exp[0] || got[1] != exp[1] {
		t.Fatalf("expected events %v; got %v", exp, got)
	}
}

func TestTerminateCurrentPicksNext(t *testing.T) {
	s := New(Options{SliceTicks: 5})
	p := spawnN(s, "a", "b")
	s.Schedule()

	if err := s.Terminate(p[0]); err != nil {
		t.Fatal(err)
	}
	mustCurrent(t, s, p[1])

	for i := 0; i < 20; i++ {
		s.TimerTick()
		if got, _ := s.Current(); got == p[0] {
			t.Fatalf("terminated process %d became current again", p[0])
		}
	}

	if _, ok := s.Get(p[0]); ok {
		t.Fatal("expected the terminated process to leave the table")
	}
}

func TestTerminateLastProcessGoesIdle(t *testing.T) {
	sink := &recordingSink{}
	s := New(Options{Sink: sink})
	pid := s.Spawn("only", 0)
	s.Schedule()

	if err := s.Terminate(pid); err != nil {
		t.Fatal(err)
	}
	if got, ok := s.Current(); ok {
		t.Fatalf("expected no current process; got %d", got)
	}

	kinds := sink.kinds()
	if kinds[len(kinds)-1] != EventIdle || kinds[len(kinds)-2] != EventTerminate {
		t.Fatalf("expected Terminate then Idle; got %v", kinds)
	}
}

func TestTerminateUnknownPID(t *testing.T) {
	s := New(Options{})
	if err := s.Terminate(12345678); !errors.Is(err, ErrNoSuchProcess) {
		t.Fatalf("expected ErrNoSuchProcess; got %v", err)
	}
}

func TestStaleEntriesAreSkipped(t *testing.T) {
	s := New(Options{SliceTicks: 1})
	p := spawnN(s, "a", "b", "c")

	if err := s.Terminate(p[0]); err != nil {
		t.Fatal(err)
	}
	if err := s.Block(p[1]); err != nil {
		t.Fatal(err)
	}
	if pid, ok := s.Schedule(); !ok || pid != p[2] {
		t.Fatalf("expected %d; got %d", p[2], pid)
	}
}

func TestDuplicateAdd(t *testing.T) {
	s := New(Options{})
	p := NewProcess("dup", 0)
	if err := s.Add(p); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(p); !errors.Is(err, ErrDuplicatePID) {
		t.Fatalf("expected ErrDuplicatePID; got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 process; got %d", s.Len())
	}
}

func TestBlockAndUnblock(t *testing.T) {
	s := New(Options{SliceTicks: 2})
	p := spawnN(s, "a", "b")
	s.Schedule()

	if err := s.Block(p[0]); err != nil {
		t.Fatal(err)
	}
	mustCurrent(t, s, p[1])

	if err := s.Block(p[1]); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Current(); ok {
		t.Fatal("expected idle with every process blocked")
	}
	if err := s.Block(p[1]); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for a blocked process; got %v", err)
	}

	if err := s.Unblock(p[1]); err != nil {
		t.Fatal(err)
	}
	if err := s.Unblock(p[1]); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for a ready process; got %v", err)
	}

	// an idle scheduler picks up new work on the next tick
	s.TimerTick()
	mustCurrent(t, s, p[1])
}

func TestTickFrameSwitchesRegisters(t *testing.T) {
	s := New(Options{SliceTicks: 1})
	p := spawnN(s, "a", "b")
	s.Schedule()

	frame := cpu.DefaultRegisters()
	frame.Rax = 0xA
	frame.Rip = 0x1000

	s.TickFrame(&frame)
	mustCurrent(t, s, p[1])

	saved, _ := s.Get(p[0])
	if saved.Registers.Rax != 0xA || saved.Registers.Rip != 0x1000 {
		t.Fatalf("expected the outgoing frame to be saved; got %+v", saved.Registers)
	}
	if frame != cpu.DefaultRegisters() {
		t.Fatalf("expected the incoming process registers in the frame; got %+v", frame)
	}

	frame.Rbx = 0xB
	s.TickFrame(&frame)
	mustCurrent(t, s, p[0])
	if frame.Rax != 0xA || frame.Rip != 0x1000 {
		t.Fatalf("expected the first process to resume with its registers; got %+v", frame)
	}
	if b, _ := s.Get(p[1]); b.Registers.Rbx != 0xB {
		t.Fatalf("expected rbx of the second process to be saved; got %#x", b.Registers.Rbx)
	}
}

func TestBlockAndTerminateSwitchRegisters(t *testing.T) {
	s := New(Options{SliceTicks: 1})
	p := spawnN(s, "a", "b", "c")

	var frame cpu.Registers
	s.TickFrame(&frame)
	mustCurrent(t, s, p[0])

	frame.Rax = 111
	if err := s.Block(p[0]); err != nil {
		t.Fatal(err)
	}
	mustCurrent(t, s, p[1])
	if a, _ := s.Get(p[0]); a.Registers.Rax != 111 {
		t.Fatalf("expected the blocked process to keep rax=111; got %d", a.Registers.Rax)
	}
	if frame.Rax != 0 {
		t.Fatalf("expected the second process to run on its own registers; got rax=%d", frame.Rax)
	}

	frame.Rax = 222
	if err := s.Unblock(p[0]); err != nil {
		t.Fatal(err)
	}
	// b expires; c was queued before a
	s.TickFrame(&frame)
	mustCurrent(t, s, p[2])
	if b, _ := s.Get(p[1]); b.Registers.Rax != 222 {
		t.Fatalf("expected rax=222 saved for the second process; got %d", b.Registers.Rax)
	}

	frame.Rax = 333
	if err := s.Terminate(p[2]); err != nil {
		t.Fatal(err)
	}
	mustCurrent(t, s, p[0])
	if frame.Rax != 111 {
		t.Fatalf("expected the unblocked process to resume with rax=111; got %d", frame.Rax)
	}

	s.TickFrame(&frame)
	mustCurrent(t, s, p[1])
	if frame.Rax != 222 {
		t.Fatalf("expected the second process to resume with rax=222; got %d", frame.Rax)
	}
}

func TestEventsAndPriority(t *testing.T) {
	sink := &recordingSink{}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := New(Options{SliceTicks: 1, Sink: sink, Now: func() time.Time { return now }})
	p := spawnN(s, "a", "b")
	s.Schedule()
	s.TimerTick()

	if err := s.SetPriority(p[1], 7); err != nil {
		t.Fatal(err)
	}
	if proc, _ := s.Get(p[1]); proc.Priority != 7 {
		t.Fatalf("expected priority 7; got %d", proc.Priority)
	}
	if err := s.SetPriority(0, 1); !errors.Is(err, ErrNoSuchProcess) {
		t.Fatalf("expected ErrNoSuchProcess for pid 0; got %v", err)
	}

	exp := []EventKind{
		EventEnqueue, EventEnqueue,
		EventDispatch,
		EventPreempt, EventDispatch,
		EventPriorityUpdate,
	}
	got := sink.kinds()
	if len(got) != len(exp) {
		t.Fatalf("expected events %v; got %v", exp, got)
	}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("event %d: expected %s; got %s", i, exp[i], got[i])
		}
	}

	last := sink.events[len(sink.events)-1]
	if last.PID != p[1] || last.Priority != 7 || last.Tick != 1 || !last.Time.Equal(now) {
		t.Fatalf("unexpected event %+v", last)
	}
}

func TestListIsOrderedByPID(t *testing.T) {
	s := New(Options{})
	p := spawnN(s, "x", "y", "z")

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 processes; got %d", len(list))
	}
	for i, proc := range list {
		if proc.PID != p[i] {
			t.Fatalf("entry %d: expected pid %d; got %d", i, p[i], proc.PID)
		}
		if proc.Priority != DefaultPriority || proc.Registers.Rflags != 0x202 {
			t.Fatalf("unexpected defaults %+v", proc)
		}
	}
}

func TestPIDsStartAtOneAndIncrease(t *testing.T) {
	a, b := NewProcess("a", 0), NewProcess("b", 0)
	if a.PID == 0 || b.PID <= a.PID {
		t.Fatalf("expected increasing non-zero pids; got %d then %d", a.PID, b.PID)
	}
}
