package machine

import (
	"time"

	"github.com/dolthub/swiss"
	"github.com/vellum-lang/vellum/lang/heap"
)

// natives is a debug symbol index of every native function name bound
// into a VM's globals at startup. The natives themselves dispatch as
// ordinary global NativeObj values via CALL, same as any closure; this
// index exists only so a runtime error's stack trace can tell a native
// frame apart from a vellum one by name, without a linear scan of
// globals. It's backed by a SwissTable rather than the VM's own
// open-addressed Table: entries here are write-once at startup and never
// deleted, so none of Table's tombstone/weak-sweep machinery buys
// anything, while SwissTable's lookup is faster for the handful of names
// consulted on every reported error.
type natives struct {
	lines *swiss.Map[string, int]
}

func newNatives() *natives {
	return &natives{lines: swiss.NewMap[string, int](8)}
}

func (n *natives) register(name string, line int) {
	n.lines.Put(name, line)
}

// isNative reports whether name is bound to a native function.
func (n *natives) isNative(name string) bool {
	_, ok := n.lines.Get(name)
	return ok
}

// installNatives registers the VM's builtins into globals so ordinary
// GET_GLOBAL/CALL opcodes can reach them like any other global function.
func (vm *VM) installNatives() {
	vm.defineNative("clock", nativeClock)
}

func (vm *VM) defineNative(name string, fn heap.NativeFn) {
	vm.natives.register(name, 0)
	globalName := vm.heap.NewString(name, vm)
	vm.globals.Set(globalName, vm.heap.NewNative(name, fn, vm))
}

func nativeClock(args []heap.Value) (heap.Value, error) {
	return heap.Number(float64(time.Now().UnixNano()) / float64(time.Second)), nil
}
