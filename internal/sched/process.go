// internal/sched/process.go

package sched

import (
	"sync/atomic"

	"tickos/internal/cpu"
)

// PID uniquely identifies a process. PID 0 is never allocated and stands for
// "no process" (no parent, nothing running).
type PID uint64

var lastPID atomic.Uint64

// newPID hands out PIDs starting at 1, so the first process is init.
func newPID() PID {
	return PID(lastPID.Add(1))
}

// DefaultPriority is assigned to every new process. Priority is reported by ps
// and snapshots but does not influence the round robin order.
const DefaultPriority uint8 = 100

// State is the lifecycle state of a process.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Blocked:
		return "Blocked"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Process is a process control block.
type Process struct {
	PID        PID
	Parent     PID // 0 when the process has no parent
	State      State
	Name       string
	Priority   uint8
	MemoryBase uint64
	MemorySize uint64
	Registers  cpu.Registers // saved when the process is switched out
	OpenFiles  []int
	RanTicks   uint64 // timer ticks spent as the current process
}

// NewProcess creates a Ready process with a fresh PID and default registers.
func NewProcess(name string, parent PID) *Process {
	return &Process{
		PID:       newPID(),
		Parent:    parent,
		State:     Ready,
		Name:      name,
		Priority:  DefaultPriority,
		Registers: cpu.DefaultRegisters(),
	}
}
