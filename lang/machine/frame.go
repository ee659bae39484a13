package machine

import "github.com/vellum-lang/vellum/lang/heap"

// CallFrame is one activation record on the VM's call stack: which
// closure is running, where its instruction pointer currently sits in
// that closure's chunk, and the base slot its locals start at within the
// shared operand stack.
type CallFrame struct {
	Closure  *heap.ClosureObj
	IP       int
	BaseSlot int
}

func (f *CallFrame) chunk() *heap.Chunk { return &f.Closure.Function.Chunk }

// line returns the source line the instruction just executed (IP-1) came
// from, for runtime error reporting.
func (f *CallFrame) line() int {
	lines := f.chunk().Lines
	if f.IP == 0 || f.IP > len(lines) {
		return 0
	}
	return lines[f.IP-1]
}
