package machine

import "strings"

// RuntimeError is returned by Run when a bytecode instruction fails: wrong
// operand types, an undefined global, calling a non-callable value, and so
// on. It carries the formatted call stack the reference implementation
// prints to stderr before unwinding.
type RuntimeError struct {
	Message string
	Trace   []string // one line per frame, innermost first
}

func (e *RuntimeError) Error() string {
	if len(e.Trace) == 0 {
		return e.Message
	}
	return e.Message + "\n" + strings.Join(e.Trace, "\n")
}
