package kerr

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	// haltFn is mocked by tests. On the host a halted kernel is a process exit.
	haltFn = func() { os.Exit(1) }

	errRuntimePanic = &Error{Module: "rt", Message: "unknown cause"}

	bannerColor = color.New(color.FgRed, color.Bold)
)

const bannerRule = "-----------------------------------"

// Panic outputs the supplied error (if not nil) to w and halts the CPU. Calls to
// Panic do not return unless the halt hook has been replaced.
func Panic(w io.Writer, e any) {
	PanicHalt(w, e, nil)
}

// PanicHalt is Panic with a replacement for the host exit. A nil halt exits.
func PanicHalt(w io.Writer, e any, halt func()) {
	var err *Error

	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		err = &Error{Module: errRuntimePanic.Module, Message: t}
	case error:
		err = &Error{Module: errRuntimePanic.Module, Message: t.Error()}
	case nil:
	default:
		err = &Error{Module: errRuntimePanic.Module, Message: fmt.Sprint(t)}
	}

	fmt.Fprintf(w, "\n%s\n", bannerRule)
	if err != nil {
		bannerColor.Fprintf(w, "[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	bannerColor.Fprint(w, "*** kernel panic: system halted ***")
	fmt.Fprintf(w, "\n%s\n", bannerRule)

	if halt == nil {
		halt = haltFn
	}
	halt()
}

// Guard runs fn and turns any panic it raises into a kernel panic on w. Device
// goroutines run under Guard so a fatal error reaches the console instead of
// tearing the host process down with a Go stack trace.
func Guard(w io.Writer, fn func()) {
	GuardHalt(w, nil, fn)
}

// GuardHalt is Guard with a replacement halt hook; see PanicHalt. It reports
// whether fn panicked.
func GuardHalt(w io.Writer, halt func(), fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			PanicHalt(w, r, halt)
		}
	}()
	fn()
	return false
}
