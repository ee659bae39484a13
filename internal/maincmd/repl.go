package maincmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mna/mainer"
	"github.com/vellum-lang/vellum/lang/heap"
	"github.com/vellum-lang/vellum/lang/machine"
)

// replLineMax is the reference implementation's fixed line buffer size
// (char line[1024] read with fgets in repl()). A line longer than this is
// truncated to its first replLineMax bytes; the rest of that line is
// discarded rather than read as a further line.
const replLineMax = 1024

// runREPL reads lines from stdio.Stdin, compiling and running each against
// one shared VM and Heap so top-level variables and interned strings
// persist across lines, until EOF. A compile or runtime error on one line
// is reported but never ends the session; only a stdin read failure other
// than EOF does.
func (c *Cmd) runREPL(_ context.Context, stdio mainer.Stdio) mainer.ExitCode {
	h := heap.New()
	vm := machine.New(h, stdio.Stdout, stdio.Stderr)

	reader := bufio.NewReaderSize(stdio.Stdin, replLineMax)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintln(stdio.Stderr, err)
			return exitIOErr
		}
		if line == "" && errors.Is(err, io.EOF) {
			fmt.Fprintln(stdio.Stdout)
			return mainer.Success
		}

		if len(line) > replLineMax {
			line = line[:replLineMax]
		}
		interpret(vm, h, line, stdio, c.Disassemble)

		if errors.Is(err, io.EOF) {
			return mainer.Success
		}
	}
}
