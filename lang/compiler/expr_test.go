package compiler

import (
	"bytes"
	"testing"

	"github.com/vellum-lang/vellum/lang/heap"
)

func TestCompileLogicalAndShortCircuits(t *testing.T) {
	fn := mustCompile(t, "true and false;")
	ops := opcodes(fn)
	var sawJumpIfFalse bool
	for _, op := range ops {
		if op == OpJumpIfFalse {
			sawJumpIfFalse = true
		}
		if op == OpJump {
			t.Errorf("'and' should not need an unconditional jump, got %v", ops)
		}
	}
	if !sawJumpIfFalse {
		t.Errorf("'and' should emit JUMP_IF_FALSE, got %v", ops)
	}
}

func TestCompileLogicalOrShortCircuits(t *testing.T) {
	fn := mustCompile(t, "false or true;")
	ops := opcodes(fn)
	var sawJumpIfFalse, sawJump bool
	for _, op := range ops {
		if op == OpJumpIfFalse {
			sawJumpIfFalse = true
		}
		if op == OpJump {
			sawJump = true
		}
	}
	if !sawJumpIfFalse || !sawJump {
		t.Errorf("'or' should emit both JUMP_IF_FALSE and JUMP, got %v", ops)
	}
}

func TestCompilePropertyGetSet(t *testing.T) {
	fn := mustCompile(t, "a.x = a.y;")
	ops := opcodes(fn)
	var sawGet, sawSet bool
	for _, op := range ops {
		if op == OpGetProperty {
			sawGet = true
		}
		if op == OpSetProperty {
			sawSet = true
		}
	}
	if !sawGet || !sawSet {
		t.Errorf("property get/set should emit GET_PROPERTY and SET_PROPERTY, got %v", ops)
	}
}

func TestCompileCallArgumentCountEncodedAsOperand(t *testing.T) {
	fn := mustCompile(t, "f(1, 2, 3);")
	code := fn.Chunk.Code
	found := false
	for i := 0; i < len(code)-1; i++ {
		if Opcode(code[i]) == OpCall {
			if code[i+1] != 3 {
				t.Errorf("CALL operand = %d, want 3", code[i+1])
			}
			found = true
		}
	}
	if !found {
		t.Error("expected an OP_CALL in the compiled chunk")
	}
}

func TestCompileTooManyArgumentsIsError(t *testing.T) {
	var source string
	source = "f("
	for i := 0; i < 256; i++ {
		if i > 0 {
			source += ", "
		}
		source += "1"
	}
	source += ");"

	h := heap.New()
	var errs bytes.Buffer
	_, ok := Compile(source, h, &errs)
	if ok {
		t.Fatal("calling with 256 arguments should be a compile error")
	}
}
