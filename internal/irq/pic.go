// Package irq routes hardware interrupts raised by host devices to their
// handlers through a simulated 8259 PIC pair and an interrupt vector table.
package irq

import (
	"fmt"
	"sync/atomic"
)

// Vector describes an interrupt vector slot.
type Vector uint8

const (
	// PIC1Offset is the vector the primary PIC maps IRQ0 to, just past the
	// 32 CPU exception slots.
	PIC1Offset = Vector(32)

	// PIC2Offset is the vector of the secondary PIC's IRQ8.
	PIC2Offset = PIC1Offset + 8

	// Timer is raised by the PIT on IRQ0.
	Timer = PIC1Offset

	// Keyboard is raised by the PS/2 controller on IRQ1.
	Keyboard = PIC1Offset + 1
)

func (v Vector) String() string {
	switch v {
	case Timer:
		return "Timer"
	case Keyboard:
		return "Keyboard"
	default:
		return fmt.Sprintf("vector %d", uint8(v))
	}
}

// line returns the IRQ line for v and whether v belongs to the PIC pair.
func (v Vector) line() (uint, bool) {
	if v < PIC1Offset || v >= PIC2Offset+8 {
		return 0, false
	}
	return uint(v - PIC1Offset), true
}

// PIC models the chained 8259 pair as three 16-bit registers, one bit per IRQ
// line: requested (IRR), in service (ISR) and masked (IMR).
type PIC struct {
	irr atomic.Uint32
	isr atomic.Uint32
	imr atomic.Uint32
}

// Mask disables delivery of v.
func (p *PIC) Mask(v Vector) {
	if l, ok := v.line(); ok {
		p.imr.Or(1 << l)
	}
}

// Unmask enables delivery of v.
func (p *PIC) Unmask(v Vector) {
	if l, ok := v.line(); ok {
		p.imr.And(^uint32(1 << l))
	}
}

// Masked reports whether v is masked.
func (p *PIC) Masked(v Vector) bool {
	l, ok := v.line()
	return ok && p.imr.Load()&(1<<l) != 0
}

// request latches v in IRR. It reports false for masked or foreign vectors.
func (p *PIC) request(v Vector) bool {
	l, ok := v.line()
	if !ok || p.Masked(v) {
		return false
	}
	p.irr.Or(1 << l)
	return true
}

// acknowledge moves v from IRR to ISR, as the CPU's interrupt acknowledge
// cycle does.
func (p *PIC) acknowledge(v Vector) {
	if l, ok := v.line(); ok {
		p.irr.And(^uint32(1 << l))
		p.isr.Or(1 << l)
	}
}

// EndOfInterrupt clears v from ISR. Every handler must send it before
// returning.
func (p *PIC) EndOfInterrupt(v Vector) {
	if l, ok := v.line(); ok {
		p.isr.And(^uint32(1 << l))
	}
}

// InService reports whether v is being handled and has not been acknowledged
// with EndOfInterrupt yet.
func (p *PIC) InService(v Vector) bool {
	l, ok := v.line()
	return ok && p.isr.Load()&(1<<l) != 0
}

// Pending reports whether v has been requested but not delivered.
func (p *PIC) Pending(v Vector) bool {
	l, ok := v.line()
	return ok && p.irr.Load()&(1<<l) != 0
}
