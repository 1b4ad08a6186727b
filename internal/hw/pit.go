// internal/hw/pit.go

// Package hw contains the host-side devices that raise interrupts on the
// simulated CPU: the programmable interval timer and the PS/2 keyboard
// controller.
package hw

import (
	"context"
	"sync/atomic"
	"time"
)

// PIT raises the timer IRQ at a fixed interval and counts ticks atomically.
type PIT struct {
	interval time.Duration
	raise    func()
	count    atomic.Uint64
}

// NewPIT creates a timer but does not start it. raise pulls the IRQ0 line.
func NewPIT(interval time.Duration, raise func()) *PIT {
	return &PIT{interval: interval, raise: raise}
}

// Run emits ticks until ctx is done.
func (p *PIT) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Tick()
		case <-ctx.Done():
			return nil
		}
	}
}

// Tick fires one timer interrupt immediately.
func (p *PIT) Tick() {
	p.count.Add(1)
	p.raise()
}

// Count returns the current tick count atomically.
func (p *PIT) Count() uint64 {
	return p.count.Load()
}

// Interval returns the tick period.
func (p *PIT) Interval() time.Duration {
	return p.interval
}
