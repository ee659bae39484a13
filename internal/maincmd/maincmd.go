// Package maincmd implements vellum's command-line entry point: flag
// parsing and dispatch to either the REPL or single-file execution, wired
// through github.com/mna/mainer the same way the reference CLI tooling in
// this codebase always has been.
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "vellum"

// Exit codes match the reference implementation's convention (borrowed from
// sysexits.h): 0 success, 64 usage error, 65 compile error, 70 runtime
// error, 74 I/O error.
const (
	exitUsage   = mainer.ExitCode(64)
	exitCompile = mainer.ExitCode(65)
	exitRuntime = mainer.ExitCode(70)
	exitIOErr   = mainer.ExitCode(74)
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<path>]
       %[1]s -h|--help
       %[1]s -v|--version

Bytecode interpreter for the %[1]s programming language.

With no <path>, starts an interactive REPL: each line is compiled and run
against a shared VM, so top-level variables persist across lines. With a
<path>, compiles and runs the file, then exits.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version               Print version and exit.
       --disassemble              Print each chunk's disassembly before
                                   running it.
`, binName)
)

// Cmd is the root command, driven by mainer.Parser the same way every
// command in this codebase is: flags are declared as struct tags and
// mainer fills them in from argv (and, if enabled, the environment).
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help        bool `flag:"h,help"`
	Version     bool `flag:"v,version"`
	Disassemble bool `flag:"disassemble"`

	args []string
}

func (c *Cmd) SetArgs(args []string)      { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return fmt.Errorf("too many arguments: expected at most one script path")
	}
	return nil
}

// Main implements mainer's entry-point contract: parse flags, then either
// print help/version or dispatch to the REPL or a single file run.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return exitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	if len(c.args) == 0 {
		return c.runREPL(ctx, stdio)
	}
	return c.runFile(ctx, stdio, c.args[0])
}
