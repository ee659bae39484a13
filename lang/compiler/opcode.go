// Package compiler turns vellum source text directly into bytecode: a
// single-pass Pratt parser that emits instructions as it recognizes
// grammar productions, with no intermediate AST ever built.
package compiler

import "fmt"

// Opcode is a single bytecode instruction. Opcodes that take an operand
// encode it as the byte (or two bytes, for jump offsets) immediately
// following the opcode in a Chunk's code stream; see DisassembleInstruction
// for how each opcode's operands are decoded.
//
// The "stack picture" comment on each opcode describes the operand stack
// before and after the instruction runs.
type Opcode byte

const ( //nolint:revive
	OpConstant Opcode = iota //           - CONSTANT<const>       value
	OpNil                    //           - NIL                   nil
	OpTrue                   //           - TRUE                  true
	OpFalse                  //           - FALSE                 false
	OpPop                    //       value POP                   -

	OpGetLocal  //           - GET_LOCAL<slot>    value
	OpSetLocal  //       value SET_LOCAL<slot>    value
	OpGetGlobal //           - GET_GLOBAL<const>  value
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue //           - GET_UPVALUE<slot>  value
	OpSetUpvalue //       value SET_UPVALUE<slot>  value
	OpGetProperty
	OpSetProperty

	OpEqual   //       a b EQUAL    bool
	OpGreater //       a b GREATER  bool
	OpLess    //       a b LESS     bool

	OpAdd    //       a b ADD  a+b
	OpSub    //       a b SUB  a-b
	OpMul    //       a b MUL  a*b
	OpDiv    //       a b DIV  a/b
	OpNot    //         a NOT   !a
	OpNegate //         a NEGATE -a

	OpPrint //       value PRINT  -

	OpJump        //           - JUMP<offset>          -
	OpJumpIfFalse //       cond JUMP_IF_FALSE<offset>  cond  (does not pop)
	OpLoop        //           - LOOP<offset>           -

	OpCall //  callee arg1..argN CALL<argCount>  result

	OpClosure      //  (reads upvalue descriptors following the operand) - CLOSURE<const>  closure
	OpCloseUpvalue //       value CLOSE_UPVALUE  -

	OpReturn //       value RETURN  -

	OpClass //           - CLASS<const>  class

	opcodeCount
)

var opcodeNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSub:          "OP_SUB",
	OpMul:          "OP_MUL",
	OpDiv:          "OP_DIV",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpReturn:       "OP_RETURN",
	OpClass:        "OP_CLASS",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
}
