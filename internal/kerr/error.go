// Package kerr defines the kernel error type and the unrecoverable failure path.
package kerr

import "fmt"

// Error describes a kernel error. Module names the subsystem that raised it.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Fatal panics with a *Error. It is reserved for invariant violations that leave
// scheduling state unusable; recoverable conditions are returned as errors instead.
func Fatal(module, format string, args ...any) {
	panic(&Error{Module: module, Message: fmt.Sprintf(format, args...)})
}
