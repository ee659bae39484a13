package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vellum-lang/vellum/lang/heap"
)

func TestDisassembleChunkListsConstantsAndOpcodes(t *testing.T) {
	fn := mustCompile(t, "print 1 + 2;")

	var out bytes.Buffer
	DisassembleChunk(&out, &fn.Chunk, "test")
	text := out.String()

	if !strings.HasPrefix(text, "== test ==\n") {
		t.Errorf("listing should start with the chunk header, got %q", text)
	}
	for _, want := range []string{"OP_CONSTANT", "OP_ADD", "OP_PRINT", "OP_RETURN"} {
		if !strings.Contains(text, want) {
			t.Errorf("listing missing %s:\n%s", want, text)
		}
	}
}

func TestDisassembleJumpShowsTarget(t *testing.T) {
	fn := mustCompile(t, "if (true) { print 1; }")
	var out bytes.Buffer
	DisassembleChunk(&out, &fn.Chunk, "test")
	if !strings.Contains(out.String(), "OP_JUMP_IF_FALSE") {
		t.Errorf("listing missing OP_JUMP_IF_FALSE:\n%s", out.String())
	}
	// The jump at offset 1 skips POP, CONSTANT, PRINT and the else JUMP,
	// landing on the POP at offset 11.
	if !strings.Contains(out.String(), "OP_JUMP_IF_FALSE    1 -> 11") {
		t.Errorf("listing should show the jump's target offset:\n%s", out.String())
	}
}

func TestDisassembleClosureWalksUpvalueDescriptors(t *testing.T) {
	fn := mustCompile(t, `
fun outer() {
  var x = 1;
  fun inner() { return x; }
  return inner;
}
`)
	// inner's CLOSURE instruction, and the upvalue descriptor for x, live in
	// outer's chunk, not in the top-level script's.
	var outer *heap.FunctionObj
	for _, k := range fn.Chunk.Constants {
		if f, ok := k.(*heap.FunctionObj); ok {
			outer = f
		}
	}
	if outer == nil {
		t.Fatal("script constants should hold outer")
	}
	var out bytes.Buffer
	DisassembleChunk(&out, &outer.Chunk, "outer")
	text := out.String()
	if !strings.Contains(text, "OP_CLOSURE") {
		t.Errorf("listing missing OP_CLOSURE:\n%s", text)
	}
	if !strings.Contains(text, "local") {
		t.Errorf("listing should describe the captured upvalue as local:\n%s", text)
	}
}

func TestOpcodeStringUnknown(t *testing.T) {
	unknown := Opcode(255)
	if got := unknown.String(); !strings.HasPrefix(got, "OP_UNKNOWN") {
		t.Errorf("Opcode(255).String() = %q, want OP_UNKNOWN(...)", got)
	}
}

func TestOpcodeStringKnown(t *testing.T) {
	if got := OpAdd.String(); got != "OP_ADD" {
		t.Errorf("OpAdd.String() = %q, want OP_ADD", got)
	}
}
