// Package machine implements the bytecode virtual machine: a stack of
// operand values shared across a stack of call frames, dispatching one
// compiler.Opcode at a time.
package machine

import (
	"fmt"
	"io"
	"os"

	"github.com/vellum-lang/vellum/lang/compiler"
	"github.com/vellum-lang/vellum/lang/heap"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// VM runs compiled chunks. A single VM is reused across every line typed
// into a REPL, or across the one Run call that executes a whole file, so
// that globals and the heap's interned strings persist for the lifetime
// of the process, matching how the reference implementation's process-wide
// vm global works.
type VM struct {
	heap *heap.Heap

	stack    [stackMax]heap.Value
	stackTop int

	frames     [framesMax]CallFrame
	frameCount int

	openUpvalues *heap.UpvalueObj // sorted by descending Slot

	globals *heap.Table
	natives *natives

	Stdout io.Writer
	Stderr io.Writer
}

// New returns a VM ready to run compiled chunks against h. If stdout or
// stderr is nil, os.Stdout/os.Stderr is used.
func New(h *heap.Heap, stdout, stderr io.Writer) *VM {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	vm := &VM{
		heap:    h,
		globals: heap.NewTable(),
		natives: newNatives(),
		Stdout:  stdout,
		Stderr:  stderr,
	}
	vm.installNatives()
	return vm
}

// MarkRoots implements heap.RootMarker: every value currently on the
// operand stack, every closure (and its upvalues) referenced by an active
// call frame, every still-open upvalue, and the globals table are all
// roots a collection must trace from.
func (vm *VM) MarkRoots(h *heap.Heap) {
	for i := 0; i < vm.stackTop; i++ {
		h.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		h.MarkObject(vm.frames[i].Closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		h.MarkObject(uv)
	}
	vm.globals.Mark(h)
}

func (vm *VM) push(v heap.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() heap.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) heap.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Run compiles nothing itself: it takes an already-compiled top-level
// function, wraps it in a closure, and executes it to completion.
func (vm *VM) Run(fn *heap.FunctionObj) error {
	closure := vm.heap.NewClosure(fn, vm)
	vm.push(closure)
	if err := vm.call(closure, 0); err != nil {
		vm.resetStack()
		return err
	}
	return vm.run()
}

func (vm *VM) call(closure *heap.ClosureObj, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow.")
	}
	frame := &vm.frames[vm.frameCount]
	frame.Closure = closure
	frame.IP = 0
	frame.BaseSlot = vm.stackTop - argCount - 1
	vm.frameCount++
	return nil
}

func (vm *VM) callValue(callee heap.Value, argCount int) error {
	switch v := callee.(type) {
	case *heap.ClosureObj:
		return vm.call(v, argCount)
	case *heap.NativeObj:
		args := vm.stack[vm.stackTop-argCount : vm.stackTop]
		result, err := v.Fn(args)
		if err != nil {
			rerr := vm.runtimeError("%s", err.Error())
			if vm.natives.isNative(v.Name) {
				rerr.Trace = append([]string{fmt.Sprintf("[native] in %s()", v.Name)}, rerr.Trace...)
			}
			return rerr
		}
		vm.stackTop -= argCount + 1
		vm.push(result)
		return nil
	case *heap.ClassObj:
		instance := vm.heap.NewInstance(v, vm)
		vm.stack[vm.stackTop-argCount-1] = instance
		if argCount != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

// captureUpvalue returns the open upvalue for localSlot, creating and
// inserting one into the sorted open-upvalues list if none exists yet.
// Two closures that both capture the same local share the same UpvalueObj
// as long as it's still open, which is what lets them observe each
// other's writes to it.
func (vm *VM) captureUpvalue(localSlot int) *heap.UpvalueObj {
	var prev *heap.UpvalueObj
	uv := vm.openUpvalues
	for uv != nil && uv.Slot > localSlot {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && uv.Slot == localSlot {
		return uv
	}

	created := vm.heap.NewUpvalue(&vm.stack[localSlot], localSlot, vm)
	created.Next = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above lastSlot: their
// Location is repointed at their own Closed field, detaching them from
// the stack slots that are about to be popped out from under them.
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= lastSlot {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.Next
	}
}

func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	err := &RuntimeError{Message: fmt.Sprintf(format, args...)}
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.Closure.Function
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars() + "()"
		}
		err.Trace = append(err.Trace, fmt.Sprintf("[line %d] in %s", frame.line(), name))
	}
	vm.resetStack()
	return err
}

func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.chunk().Code[frame.IP]
		frame.IP++
		return b
	}
	readShort := func() int {
		hi, lo := readByte(), readByte()
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() heap.Value {
		return frame.chunk().Constants[readByte()]
	}
	readString := func() *heap.StringObj {
		return readConstant().(*heap.StringObj)
	}

	for {
		op := compiler.Opcode(readByte())
		switch op {
		case compiler.OpConstant:
			vm.push(readConstant())

		case compiler.OpNil:
			vm.push(heap.Nil{})
		case compiler.OpTrue:
			vm.push(heap.Bool(true))
		case compiler.OpFalse:
			vm.push(heap.Bool(false))
		case compiler.OpPop:
			vm.pop()

		case compiler.OpGetLocal:
			slot := int(readByte())
			vm.push(vm.stack[frame.BaseSlot+slot])
		case compiler.OpSetLocal:
			slot := int(readByte())
			vm.stack[frame.BaseSlot+slot] = vm.peek(0)

		case compiler.OpGetGlobal:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars())
			}
			vm.push(v)
		case compiler.OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case compiler.OpSetGlobal:
			name := readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars())
			}

		case compiler.OpGetUpvalue:
			slot := int(readByte())
			vm.push(*frame.Closure.Upvalues[slot].Location)
		case compiler.OpSetUpvalue:
			slot := int(readByte())
			*frame.Closure.Upvalues[slot].Location = vm.peek(0)

		case compiler.OpGetProperty:
			name := readString()
			inst, ok := vm.peek(0).(*heap.InstanceObj)
			if !ok {
				return vm.runtimeError("Only instances have properties.")
			}
			v, ok := inst.Fields.Get(name)
			if !ok {
				return vm.runtimeError("Undefined property '%s'.", name.Chars())
			}
			vm.pop()
			vm.push(v)
		case compiler.OpSetProperty:
			name := readString()
			inst, ok := vm.peek(1).(*heap.InstanceObj)
			if !ok {
				return vm.runtimeError("Only instances have fields.")
			}
			inst.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case compiler.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(heap.Bool(heap.Equal(a, b)))
		case compiler.OpGreater:
			if err := vm.binaryCompare(func(a, b float64) bool { return a > b }); err != nil {
				return err
			}
		case compiler.OpLess:
			if err := vm.binaryCompare(func(a, b float64) bool { return a < b }); err != nil {
				return err
			}

		case compiler.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case compiler.OpSub:
			if err := vm.binaryArith(func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case compiler.OpMul:
			if err := vm.binaryArith(func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case compiler.OpDiv:
			if err := vm.binaryArith(func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}

		case compiler.OpNot:
			vm.push(heap.Bool(!heap.IsTruthy(vm.pop())))
		case compiler.OpNegate:
			n, ok := vm.peek(0).(heap.Number)
			if !ok {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.pop()
			vm.push(-n)

		case compiler.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case compiler.OpJump:
			offset := readShort()
			frame.IP += offset
		case compiler.OpJumpIfFalse:
			offset := readShort()
			if !heap.IsTruthy(vm.peek(0)) {
				frame.IP += offset
			}
		case compiler.OpLoop:
			offset := readShort()
			frame.IP -= offset

		case compiler.OpCall:
			argCount := int(readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case compiler.OpClosure:
			fn := readConstant().(*heap.FunctionObj)
			closure := vm.heap.NewClosure(fn, vm)
			vm.push(closure)
			for i := range closure.Upvalues {
				isLocal := readByte()
				index := int(readByte())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.BaseSlot + index)
				} else {
					closure.Upvalues[i] = frame.Closure.Upvalues[index]
				}
			}

		case compiler.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case compiler.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.BaseSlot)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop() // the implicit top-level closure
				return nil
			}
			vm.stackTop = frame.BaseSlot
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case compiler.OpClass:
			name := readString()
			vm.push(vm.heap.NewClass(name, vm))

		default:
			return vm.runtimeError("unknown opcode %d", byte(op))
		}
	}
}

func (vm *VM) add() error {
	b, a := vm.peek(0), vm.peek(1)
	switch a := a.(type) {
	case heap.Number:
		if b, ok := b.(heap.Number); ok {
			vm.pop()
			vm.pop()
			vm.push(a + b)
			return nil
		}
	case *heap.StringObj:
		if b, ok := b.(*heap.StringObj); ok {
			vm.pop()
			vm.pop()
			vm.push(vm.heap.NewString(a.Chars()+b.Chars(), vm))
			return nil
		}
	}
	return vm.runtimeError("Operands must be two numbers or two strings.")
}

func (vm *VM) binaryArith(op func(a, b float64) float64) error {
	b, a := vm.peek(0), vm.peek(1)
	an, aok := a.(heap.Number)
	bn, bok := b.(heap.Number)
	if !aok || !bok {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	vm.push(heap.Number(op(float64(an), float64(bn))))
	return nil
}

func (vm *VM) binaryCompare(op func(a, b float64) bool) error {
	b, a := vm.peek(0), vm.peek(1)
	an, aok := a.(heap.Number)
	bn, bok := b.(heap.Number)
	if !aok || !bok {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	vm.push(heap.Bool(op(float64(an), float64(bn))))
	return nil
}
