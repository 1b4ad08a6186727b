package irq

import (
	"sync"
	"sync/atomic"

	"tickos/internal/cpu"
	"tickos/internal/klog"
)

var log = klog.For("irq")

// Handler services one interrupt. frame is the interrupted register file;
// changes to it take effect when the handler returns.
type Handler func(frame *cpu.Registers)

// Table is the interrupt vector table.
type Table struct {
	mu       sync.RWMutex
	handlers [256]Handler
}

// Set installs h for v, replacing any previous handler.
func (t *Table) Set(v Vector, h Handler) {
	t.mu.Lock()
	t.handlers[v] = h
	t.mu.Unlock()
}

// Lookup returns the handler for v, or nil.
func (t *Table) Lookup(v Vector) Handler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handlers[v]
}

// Controller raises device interrupts on a CPU.
type Controller struct {
	cpu   *cpu.CPU
	pic   *PIC
	table *Table

	delivered [256]atomic.Uint64
	spurious  atomic.Uint64
}

// NewController wires a PIC and a vector table to c.
func NewController(c *cpu.CPU, pic *PIC, table *Table) *Controller {
	return &Controller{cpu: c, pic: pic, table: table}
}

// PIC returns the interrupt controller handlers acknowledge.
func (c *Controller) PIC() *PIC { return c.pic }

// Raise requests v and delivers it once the CPU has interrupts enabled. It is
// called by device goroutines and returns after the handler has run. Masked
// vectors are dropped and Raise reports false.
func (c *Controller) Raise(v Vector) bool {
	if !c.pic.request(v) {
		return false
	}
	c.cpu.Interrupt(func(frame *cpu.Registers) {
		c.dispatch(v, frame)
	})
	return true
}

// Line returns a func that raises v, for devices that only know how to pull
// their IRQ line.
func (c *Controller) Line(v Vector) func() {
	return func() { c.Raise(v) }
}

// dispatch runs with interrupts disabled.
func (c *Controller) dispatch(v Vector, frame *cpu.Registers) {
	c.pic.acknowledge(v)
	h := c.table.Lookup(v)
	if h == nil {
		c.spurious.Add(1)
		c.pic.EndOfInterrupt(v)
		log.Warnf("no handler for %s", v)
		return
	}
	h(frame)
	c.delivered[v].Add(1)
	if c.pic.InService(v) {
		c.pic.EndOfInterrupt(v)
		log.Errorf("%s handler returned without EOI", v)
	}
}

// Delivered returns how many times the handler for v ran.
func (c *Controller) Delivered(v Vector) uint64 {
	return c.delivered[v].Load()
}

// Spurious returns how many interrupts arrived without a handler.
func (c *Controller) Spurious() uint64 {
	return c.spurious.Load()
}
