package cpu

// FlagIF is the interrupt-enable bit in RFLAGS. Bit 1 is reserved and always set.
const (
	flagReserved = 1 << 1
	FlagIF       = 1 << 9
)

// Registers is the saved general purpose register file plus instruction pointer
// and flags. It is the trap frame handed to interrupt handlers.
type Registers struct {
	Rax, Rbx, Rcx, Rdx uint64
	Rsi, Rdi, Rbp, Rsp uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64
	Rip                uint64
	Rflags             uint64
}

// DefaultRegisters returns the register file a new process starts with: all
// zeroes except RFLAGS, which has interrupts enabled (0x202).
func DefaultRegisters() Registers {
	return Registers{Rflags: flagReserved | FlagIF}
}
