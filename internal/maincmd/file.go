package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/vellum-lang/vellum/lang/heap"
	"github.com/vellum-lang/vellum/lang/machine"
)

// runFile reads path, then compiles and runs it once against a fresh VM.
// A read failure maps to exitIOErr; a compile or runtime failure maps to
// exitCompile/exitRuntime respectively, matching the reference
// implementation's runFile exit-code convention.
func (c *Cmd) runFile(_ context.Context, stdio mainer.Stdio, path string) mainer.ExitCode {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitIOErr
	}

	h := heap.New()
	vm := machine.New(h, stdio.Stdout, stdio.Stderr)
	return interpret(vm, h, string(source), stdio, c.Disassemble)
}
