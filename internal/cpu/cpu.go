// Package cpu models the single host-simulated processor: its interrupt-enable
// flag, the halt instruction, and the register file seen by interrupt handlers.
//
// The IF flag is a gate. Code that clears it holds the gate, and interrupt
// delivery has to acquire the gate before a handler can run, so a handler can
// never interleave with a section that runs with interrupts disabled. Handlers
// themselves run with the gate held, exactly like an interrupt gate clearing IF.
package cpu

import (
	"sync"
	"sync/atomic"
)

// CPU is one simulated core.
type CPU struct {
	gate sync.Mutex // held while IF is clear
	wake *sync.Cond

	// guarded by gate
	seq  uint64
	regs Registers

	ifClear atomic.Bool
	halted  atomic.Bool
	halts   atomic.Uint64
	irqs    atomic.Uint64
}

// New returns a CPU with interrupts enabled and a default register file.
func New() *CPU {
	c := &CPU{regs: DefaultRegisters()}
	c.wake = sync.NewCond(&c.gate)
	return c
}

// DisableInterrupts clears IF. It blocks while an interrupt handler is running.
// Calls must not nest.
func (c *CPU) DisableInterrupts() {
	c.gate.Lock()
	c.ifClear.Store(true)
}

// EnableInterrupts sets IF again.
func (c *CPU) EnableInterrupts() {
	c.ifClear.Store(false)
	c.gate.Unlock()
}

// InterruptsEnabled reports the current IF state.
func (c *CPU) InterruptsEnabled() bool {
	return !c.ifClear.Load()
}

// EnableAndHalt sets IF and halts until the next interrupt has been handled, as
// one step. It must be called with interrupts disabled: an interrupt raised
// after the caller's last check is delivered after the CPU is asleep and wakes
// it, never in between. Interrupts are enabled when it returns.
func (c *CPU) EnableAndHalt() {
	seq := c.seq
	c.halts.Add(1)
	c.halted.Store(true)
	c.ifClear.Store(false)
	for c.seq == seq {
		c.wake.Wait()
	}
	c.halted.Store(false)
	c.gate.Unlock()
}

// WithoutInterrupts runs fn with IF clear.
func (c *CPU) WithoutInterrupts(fn func()) {
	c.DisableInterrupts()
	defer c.EnableInterrupts()
	fn()
}

// Interrupt delivers one interrupt. It waits until IF is set, runs handler with
// IF clear and the current register file as its trap frame, then wakes a halted
// CPU. A nil handler is a bare wakeup.
func (c *CPU) Interrupt(handler func(frame *Registers)) {
	c.gate.Lock()
	c.ifClear.Store(true)
	defer func() {
		c.seq++
		c.irqs.Add(1)
		c.ifClear.Store(false)
		c.wake.Broadcast()
		c.gate.Unlock()
	}()
	if handler != nil {
		handler(&c.regs)
	}
}

// Kick wakes a halted CPU without running a handler. It is the shutdown path.
func (c *CPU) Kick() {
	c.Interrupt(nil)
}

// Halted reports whether the CPU is currently sleeping in EnableAndHalt.
func (c *CPU) Halted() bool {
	return c.halted.Load()
}

// Stats returns the number of halts entered and interrupts delivered.
func (c *CPU) Stats() (halts, interrupts uint64) {
	return c.halts.Load(), c.irqs.Load()
}

// Registers returns a copy of the register file. It must not be called with
// interrupts disabled.
func (c *CPU) Registers() Registers {
	c.gate.Lock()
	defer c.gate.Unlock()
	return c.regs
}

// LoadRegisters replaces the register file. It must not be called with
// interrupts disabled.
func (c *CPU) LoadRegisters(r Registers) {
	c.gate.Lock()
	c.regs = r
	c.gate.Unlock()
}
