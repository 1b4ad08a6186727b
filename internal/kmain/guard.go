package kmain

import (
	"tickos/internal/cpu"
	"tickos/internal/sched"
)

// guardedScheduler runs every scheduler call with interrupts disabled, so the
// timer handler can never find the scheduler lock held by the code it
// interrupted.
type guardedScheduler struct {
	cpu *cpu.CPU
	s   *sched.Scheduler
}

func (g *guardedScheduler) List() (out []sched.Process) {
	g.cpu.WithoutInterrupts(func() { out = g.s.List() })
	return out
}

func (g *guardedScheduler) Spawn(name string, parent sched.PID) (pid sched.PID) {
	g.cpu.WithoutInterrupts(func() { pid = g.s.Spawn(name, parent) })
	return pid
}

func (g *guardedScheduler) Terminate(pid sched.PID) (err error) {
	g.cpu.WithoutInterrupts(func() { err = g.s.Terminate(pid) })
	return err
}

func (g *guardedScheduler) Block(pid sched.PID) (err error) {
	g.cpu.WithoutInterrupts(func() { err = g.s.Block(pid) })
	return err
}

func (g *guardedScheduler) Unblock(pid sched.PID) (err error) {
	g.cpu.WithoutInterrupts(func() { err = g.s.Unblock(pid) })
	return err
}

func (g *guardedScheduler) SetPriority(pid sched.PID, prio uint8) (err error) {
	g.cpu.WithoutInterrupts(func() { err = g.s.SetPriority(pid, prio) })
	return err
}

func (g *guardedScheduler) Current() (pid sched.PID, ok bool) {
	g.cpu.WithoutInterrupts(func() { pid, ok = g.s.Current() })
	return pid, ok
}

func (g *guardedScheduler) Schedule() (pid sched.PID, ok bool) {
	g.cpu.WithoutInterrupts(func() { pid, ok = g.s.Schedule() })
	return pid, ok
}
