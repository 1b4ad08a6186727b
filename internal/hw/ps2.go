package hw

import (
	"bufio"
	"context"
	"errors"
	"io"

	"tickos/internal/eventq"
	"tickos/internal/keyboard"
	"tickos/internal/klog"
)

// PS/2 controller ports.
const (
	PS2Data   = 0x60
	PS2Status = 0x64

	// StatusOutputFull is set while a byte waits in the output buffer.
	StatusOutputFull = 1 << 0
)

const ps2BufferSize = 16

// ErrHostInterrupt is returned by Feed when the host terminal sends ctrl+c or
// ctrl+d. In raw mode those keys arrive as bytes instead of signals.
var ErrHostInterrupt = errors.New("interrupted from the host terminal")

var log = klog.For("ps2")

// PS2 is the keyboard controller. Scancodes sent by the host keyboard are
// latched in the output buffer and announced with IRQ1, one interrupt per byte.
type PS2 struct {
	out   *eventq.Queue[byte]
	raise func()
}

// NewPS2 creates the controller. raise pulls the IRQ1 line and returns once the
// interrupt has been handled.
func NewPS2(raise func()) *PS2 {
	return &PS2{out: eventq.New[byte](ps2BufferSize), raise: raise}
}

// ReadPort implements inb on the controller ports. Reading the data port with
// an empty buffer returns 0.
func (p *PS2) ReadPort(port uint16) byte {
	switch port {
	case PS2Data:
		b, _ := p.out.Pop()
		return b
	case PS2Status:
		if p.out.IsEmpty() {
			return 0
		}
		return StatusOutputFull
	default:
		return 0xFF
	}
}

// Send latches one scancode and raises IRQ1. It reports false when the output
// buffer overflowed.
func (p *PS2) Send(scancode byte) bool {
	if !p.out.Push(scancode) {
		log.Warnf("output buffer overrun; scancode %#02x lost", scancode)
		return false
	}
	p.raise()
	return true
}

// Type sends the make and break codes for r. It reports false when the US
// layout has no key for r.
func (p *PS2) Type(r rune) bool {
	codes, ok := keyboard.AppendScancodes(nil, r)
	if !ok {
		return false
	}
	for _, b := range codes {
		p.Send(b)
	}
	return true
}

// TypeString types every character of s and returns how many were skipped.
func (p *PS2) TypeString(s string) int {
	skipped := 0
	for _, r := range s {
		if !p.Type(r) {
			skipped++
		}
	}
	return skipped
}

// Feed types runes read from r until EOF or until ctx is done. Characters the
// layout cannot produce are logged and skipped; ctrl+c and ctrl+d stop the
// feed with ErrHostInterrupt.
func (p *PS2) Feed(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)
	for ctx.Err() == nil {
		c, _, err := br.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if c == 0x03 || c == 0x04 {
			return ErrHostInterrupt
		}
		if !p.Type(c) {
			log.Debugf("no key for %q", c)
		}
	}
	return nil
}
