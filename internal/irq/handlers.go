package irq

import "tickos/internal/cpu"

// PS2DataPort is the PS/2 controller data port.
const PS2DataPort = 0x60

// PortReader reads an 8-bit I/O port.
type PortReader interface {
	ReadPort(port uint16) byte
}

// FrameTicker is the scheduler side of the timer interrupt.
type FrameTicker interface {
	TickFrame(frame *cpu.Registers)
}

// Ticker is anything else counting timer ticks.
type Ticker interface {
	Tick()
}

// KeyboardHandler reads the scancode and hands it to add before acknowledging
// the PIC, so no byte is acknowledged and then lost.
func KeyboardHandler(pic *PIC, ports PortReader, add func(scancode byte)) Handler {
	return func(*cpu.Registers) {
		add(ports.ReadPort(PS2DataPort))
		pic.EndOfInterrupt(Keyboard)
	}
}

// TimerHandler advances the scheduler with the interrupted frame, then every
// other ticker, then acknowledges the PIC.
func TimerHandler(pic *PIC, sched FrameTicker, tickers ...Ticker) Handler {
	return func(frame *cpu.Registers) {
		sched.TickFrame(frame)
		for _, t := range tickers {
			t.Tick()
		}
		pic.EndOfInterrupt(Timer)
	}
}
