package maincmd

import (
	"fmt"

	"github.com/mna/mainer"
	"github.com/vellum-lang/vellum/lang/compiler"
	"github.com/vellum-lang/vellum/lang/heap"
	"github.com/vellum-lang/vellum/lang/machine"
)

// interpret compiles and runs one chunk of source against vm and h, which
// the caller reuses across every REPL line (or passes fresh for a single
// file run). Compile errors are already written to stdio.Stderr by
// compiler.Compile; runtime errors are written here.
//
// The returned exit code is exitCompile, exitRuntime, or mainer.Success;
// callers running a file propagate it directly, the REPL ignores it and
// always keeps looping.
func interpret(vm *machine.VM, h *heap.Heap, source string, stdio mainer.Stdio, disassemble bool) mainer.ExitCode {
	fn, ok := compiler.Compile(source, h, stdio.Stderr)
	if !ok {
		return exitCompile
	}

	if disassemble {
		name := "<script>"
		if fn.Name != nil {
			name = fn.Name.Chars()
		}
		compiler.DisassembleChunk(stdio.Stdout, &fn.Chunk, name)
	}

	if err := vm.Run(fn); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitRuntime
	}
	return mainer.Success
}
