// Package syscall implements the kernel side of the Linux x86-64 system call
// subset tickos supports.
package syscall

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"fortio.org/safecast"

	"tickos/internal/klog"
	"tickos/internal/sched"
)

// Number is a system call number.
type Number uint64

const (
	Read       = Number(0)
	Write      = Number(1)
	Open       = Number(2)
	Close      = Number(3)
	SchedYield = Number(24)
	GetPID     = Number(39)
	Exit       = Number(60)
	Kill       = Number(62)
	Uname      = Number(63)
)

func (n Number) String() string {
	switch n {
	case Read:
		return "read"
	case Write:
		return "write"
	case Open:
		return "open"
	case Close:
		return "close"
	case SchedYield:
		return "sched_yield"
	case GetPID:
		return "getpid"
	case Exit:
		return "exit"
	case Kill:
		return "kill"
	case Uname:
		return "uname"
	default:
		return fmt.Sprintf("syscall %d", uint64(n))
	}
}

var log = klog.For("syscall")

// Args are the six register arguments (rdi, rsi, rdx, r10, r8, r9). Buf
// stands in for the user memory a pointer argument refers to.
type Args struct {
	A   [6]uint64
	Buf []byte
}

// Processes is the scheduler surface the system calls need.
type Processes interface {
	Current() (sched.PID, bool)
	Terminate(pid sched.PID) error
	Schedule() (sched.PID, bool)
}

// Handler dispatches system calls.
type Handler struct {
	procs   Processes
	console io.Writer
	uts     Utsname
}

// NewHandler creates a handler that writes stdout and stderr to console.
func NewHandler(procs Processes, console io.Writer, uts Utsname) *Handler {
	return &Handler{procs: procs, console: console, uts: uts}
}

// Dispatch executes system call num. Failures are returned as Errno.
func (h *Handler) Dispatch(num Number, args Args) (uint64, error) {
	switch num {
	case Read:
		return h.read(args)
	case Write:
		return h.write(args)
	case Open:
		// there is no file system
		return 0, ENOENT
	case Close:
		if args.A[0] > 2 {
			return 0, nil
		}
		return 0, EBADF
	case SchedYield:
		h.procs.Schedule()
		return 0, nil
	case GetPID:
		pid, _ := h.procs.Current()
		return uint64(pid), nil
	case Exit:
		return h.exit(args)
	case Kill:
		return h.kill(sched.PID(args.A[0]))
	case Uname:
		return h.uname(args)
	default:
		log.Warnf("unimplemented system call: %d", uint64(num))
		return 0, EINVAL
	}
}

// Return encodes the result of Dispatch as the signed rax value.
func Return(v uint64, err error) int64 {
	var errno Errno
	if errors.As(err, &errno) {
		return errno.Return()
	}
	if err != nil {
		return EINVAL.Return()
	}
	r, cerr := safecast.Conv[int64](v)
	if cerr != nil {
		return EINVAL.Return()
	}
	return r
}

func (h *Handler) read(args Args) (uint64, error) {
	if args.A[0] != 0 {
		return 0, EBADF
	}
	// stdin is owned by the shell; user reads see end of file
	return 0, nil
}

func (h *Handler) write(args Args) (uint64, error) {
	fd, count := args.A[0], args.A[2]
	if fd != 1 && fd != 2 {
		return 0, EBADF
	}
	if count > uint64(len(args.Buf)) {
		return 0, EFAULT
	}
	data := args.Buf[:count]
	if !utf8.Valid(data) {
		return 0, EINVAL
	}
	if _, err := h.console.Write(data); err != nil {
		return 0, EIO
	}
	return count, nil
}

func (h *Handler) exit(args Args) (uint64, error) {
	pid, ok := h.procs.Current()
	if !ok {
		return 0, ESRCH
	}
	log.Infof("process %d exiting with status %d", pid, int32(args.A[0]))
	if err := h.procs.Terminate(pid); err != nil {
		return 0, ESRCH
	}
	return 0, nil
}

func (h *Handler) kill(pid sched.PID) (uint64, error) {
	if err := h.procs.Terminate(pid); err != nil {
		if errors.Is(err, sched.ErrNoSuchProcess) {
			return 0, ESRCH
		}
		return 0, EINVAL
	}
	return 0, nil
}

func (h *Handler) uname(args Args) (uint64, error) {
	if len(args.Buf) < UtsnameSize {
		return 0, EFAULT
	}
	h.uts.put(args.Buf)
	return 0, nil
}
