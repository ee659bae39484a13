package compiler

import (
	"fmt"
	"io"

	"github.com/vellum-lang/vellum/lang/heap"
)

// DisassembleChunk writes a human-readable listing of every instruction in
// chunk to w, labeled with name (typically the owning function's name).
// It exists purely as a debugging aid, the bytecode equivalent of a
// disassembler for machine code.
func DisassembleChunk(w io.Writer, chunk *heap.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = DisassembleInstruction(w, chunk, offset)
	}
}

// DisassembleInstruction writes the single instruction at offset and
// returns the offset of the instruction that follows it.
func DisassembleInstruction(w io.Writer, chunk *heap.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Lines[offset])
	}

	op := Opcode(chunk.Code[offset])
	switch op {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal,
		OpGetProperty, OpSetProperty, OpClass:
		return constantInstruction(w, op, chunk, offset)
	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		return byteInstruction(w, op, chunk, offset)
	case OpJump, OpJumpIfFalse:
		return jumpInstruction(w, op, 1, chunk, offset)
	case OpLoop:
		return jumpInstruction(w, op, -1, chunk, offset)
	case OpClosure:
		return closureInstruction(w, chunk, offset)
	default:
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	}
}

func constantInstruction(w io.Writer, op Opcode, chunk *heap.Chunk, offset int) int {
	constant := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, constant, chunk.Constants[constant])
	return offset + 2
}

func byteInstruction(w io.Writer, op Opcode, chunk *heap.Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, op Opcode, sign int, chunk *heap.Chunk, offset int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}

// closureInstruction also walks and prints the upvalue descriptor pairs
// CLOSURE emits right after its constant operand, since their count
// depends on the function being closed over rather than on the opcode.
func closureInstruction(w io.Writer, chunk *heap.Chunk, offset int) int {
	offset++
	constant := chunk.Code[offset]
	offset++
	fmt.Fprintf(w, "%-16s %4d '%s'\n", OpClosure, constant, chunk.Constants[constant])

	if fn, ok := chunk.Constants[constant].(*heap.FunctionObj); ok {
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := chunk.Code[offset]
			offset++
			index := chunk.Code[offset]
			offset++
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-2, kind, index)
		}
	}
	return offset
}
