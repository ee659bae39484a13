package compiler

import (
	"fmt"
	"io"

	"github.com/vellum-lang/vellum/lang/heap"
	"github.com/vellum-lang/vellum/lang/scanner"
	"github.com/vellum-lang/vellum/lang/token"
)

const (
	maxLocals    = 256
	maxUpvalues  = 256
	maxArgs      = 255
	maxConstants = 256
)

// funcType distinguishes the implicit top-level script function, which may
// not "return" a value, from an ordinary "fun" declaration.
type funcType int

const (
	typeScript funcType = iota
	typeFunction
)

// local tracks one declared-in-scope local variable slot. depth of -1
// means "declared but not yet initialized": reading the variable in its
// own initializer (var x = x;) resolves to this sentinel and is rejected.
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// upvalueRef records how a closure's Nth upvalue is sourced: either
// directly from a local slot in the immediately enclosing function, or by
// forwarding one of that function's own upvalues.
type upvalueRef struct {
	index   uint8
	isLocal bool
}

// compiler holds the state for one function body being compiled: a Pratt
// parser and code generator rolled into one, with no intermediate AST ever
// built. Nested function declarations push a new compiler that chains to
// its enclosing one via the enclosing field, mirroring the call stack of
// nested "fun" bodies in the source.
type compiler struct {
	enclosing *compiler
	p         *parser

	function *heap.FunctionObj
	typ      funcType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

// MarkRoots implements heap.RootMarker. While a function is still being
// compiled it is not reachable from anywhere else yet, so the compiler
// itself must root it (and every enclosing function still under
// construction) against a collection triggered mid-compile, e.g. by
// interning a string constant.
func (c *compiler) MarkRoots(h *heap.Heap) {
	for cc := c; cc != nil; cc = cc.enclosing {
		if cc.function != nil { // still nil while NewFunction allocates it
			h.MarkObject(cc.function)
		}
	}
}

func (c *compiler) currentChunk() *heap.Chunk { return &c.function.Chunk }

// parser is the single-pass token cursor shared by every compiler in a
// compile, along with the error-reporting state a syntax error needs
// (panic-mode recovery so one mistake doesn't cascade into dozens).
type parser struct {
	sc   *scanner.Scanner
	heap *heap.Heap

	current  scanner.Token
	previous scanner.Token

	hadError  bool
	panicMode bool
	errOut    io.Writer
}

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.sc.Scan()
		if p.current.Kind != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(k token.Token) bool { return p.current.Kind == k }

func (p *parser) match(k token.Token) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Token, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) errorAt(tok scanner.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	if p.errOut == nil {
		return
	}
	fmt.Fprintf(p.errOut, "[line %d] Error", tok.Line)
	switch tok.Kind {
	case token.EOF:
		fmt.Fprint(p.errOut, " at end")
	case token.ILLEGAL:
		// the message itself already names the problem
	default:
		fmt.Fprintf(p.errOut, " at '%s'", tok.Lexeme)
	}
	fmt.Fprintf(p.errOut, ": %s\n", msg)
}

// synchronize discards tokens after a syntax error until it reaches a
// point a new declaration or statement is likely to start, so a single
// mistake is reported once instead of producing a cascade of bogus
// follow-on errors.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMI {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// Compile compiles source into the implicit top-level script function. It
// returns the function and whether compilation succeeded; on failure,
// diagnostics have already been written to errOut and the returned
// function must not be run.
func Compile(source string, h *heap.Heap, errOut io.Writer) (*heap.FunctionObj, bool) {
	p := &parser{sc: scanner.New(source), heap: h, errOut: errOut}
	c := &compiler{p: p, typ: typeScript}
	c.function = h.NewFunction(nil, 0, c)
	// Slot 0 is reserved for the running closure itself and is never
	// resolvable by name (an empty identifier can't appear in source).
	c.locals = append(c.locals, local{name: "", depth: 0})

	p.advance()
	for !p.check(token.EOF) {
		declaration(c)
	}

	fn := c.endCompiler()
	return fn, !p.hadError
}

func (c *compiler) endCompiler() *heap.FunctionObj {
	c.emitReturn()
	return c.function
}

func (c *compiler) beginScope() { c.scopeDepth++ }

func (c *compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.isCaptured {
			c.emitByte(byte(OpCloseUpvalue))
		} else {
			c.emitByte(byte(OpPop))
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// --- bytecode emission ---

func (c *compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.p.previous.Line)
}

func (c *compiler) emitBytes(b1, b2 byte) {
	c.emitByte(b1)
	c.emitByte(b2)
}

func (c *compiler) emitReturn() {
	c.emitByte(byte(OpNil))
	c.emitByte(byte(OpReturn))
}

func (c *compiler) makeConstant(v heap.Value) byte {
	idx := c.currentChunk().AddConstant(v)
	if idx >= maxConstants {
		c.p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *compiler) emitConstant(v heap.Value) {
	c.emitBytes(byte(OpConstant), c.makeConstant(v))
}

// emitJump emits a two-operand-byte jump placeholder and returns the
// offset of those operand bytes, to be patched once the jump target is
// known.
func (c *compiler) emitJump(instr Opcode) int {
	c.emitByte(byte(instr))
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.currentChunk().Code) - 2
}

func (c *compiler) patchJump(offset int) {
	jump := len(c.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		c.p.error("Too much code to jump over.")
	}
	code := c.currentChunk().Code
	code[offset] = byte((jump >> 8) & 0xff)
	code[offset+1] = byte(jump & 0xff)
}

func (c *compiler) emitLoop(loopStart int) {
	c.emitByte(byte(OpLoop))
	offset := len(c.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.p.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

func (c *compiler) identifierConstant(name string) byte {
	s := c.p.heap.NewString(name, c)
	return c.makeConstant(s)
}

// --- variable resolution ---

func resolveLocal(c *compiler, name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				c.p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func addUpvalue(c *compiler, index uint8, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= maxUpvalues {
		c.p.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

func resolveUpvalue(c *compiler, name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := resolveLocal(c.enclosing, name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return addUpvalue(c, uint8(local), true)
	}
	if upvalue := resolveUpvalue(c.enclosing, name); upvalue != -1 {
		return addUpvalue(c, uint8(upvalue), false)
	}
	return -1
}

func (c *compiler) addLocal(name string) {
	if len(c.locals) >= maxLocals {
		c.p.error("Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
}

func (c *compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.p.previous.Lexeme
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].depth != -1 && c.locals[i].depth < c.scopeDepth {
			break
		}
		if c.locals[i].name == name {
			c.p.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *compiler) parseVariable(msg string) byte {
	c.p.consume(token.IDENT, msg)
	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.p.previous.Lexeme)
}

func (c *compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (c *compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(byte(OpDefineGlobal), global)
}

func (c *compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	arg := resolveLocal(c, name)
	if arg != -1 {
		getOp, setOp = OpGetLocal, OpSetLocal
	} else if arg = resolveUpvalue(c, name); arg != -1 {
		getOp, setOp = OpGetUpvalue, OpSetUpvalue
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = OpGetGlobal, OpSetGlobal
	}

	if canAssign && c.p.match(token.EQ) {
		expression(c)
		c.emitBytes(byte(setOp), byte(arg))
	} else {
		c.emitBytes(byte(getOp), byte(arg))
	}
}

// --- declarations & statements ---

func declaration(c *compiler) {
	switch {
	case c.p.match(token.CLASS):
		classDeclaration(c)
	case c.p.match(token.FUN):
		funDeclaration(c)
	case c.p.match(token.VAR):
		varDeclaration(c)
	default:
		statement(c)
	}
	if c.p.panicMode {
		c.p.synchronize()
	}
}

func classDeclaration(c *compiler) {
	c.p.consume(token.IDENT, "Expect class name.")
	nameConstant := c.identifierConstant(c.p.previous.Lexeme)
	c.declareVariable()

	c.emitBytes(byte(OpClass), nameConstant)
	c.defineVariable(nameConstant)

	c.p.consume(token.LBRACE, "Expect '{' before class body.")
	c.p.consume(token.RBRACE, "Expect '}' after class body.")
}

func funDeclaration(c *compiler) {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	functionBody(c, typeFunction)
	c.defineVariable(global)
}

// functionBody compiles a nested function (parameters + block body) as a
// fresh compiler chained to c, then emits the CLOSURE instruction and its
// upvalue descriptors back into c's own chunk.
func functionBody(c *compiler, typ funcType) {
	name := c.p.heap.NewString(c.p.previous.Lexeme, c)
	inner := &compiler{enclosing: c, p: c.p, typ: typ}
	inner.function = c.p.heap.NewFunction(name, 0, inner)
	inner.locals = append(inner.locals, local{name: "", depth: 0})

	inner.beginScope()
	inner.p.consume(token.LPAREN, "Expect '(' after function name.")
	if !inner.p.check(token.RPAREN) {
		for {
			inner.function.Arity++
			if inner.function.Arity > maxArgs {
				inner.p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := inner.parseVariable("Expect parameter name.")
			inner.defineVariable(constant)
			if !inner.p.match(token.COMMA) {
				break
			}
		}
	}
	inner.p.consume(token.RPAREN, "Expect ')' after parameters.")
	inner.p.consume(token.LBRACE, "Expect '{' before function body.")
	block(inner)

	fn := inner.endCompiler()
	c.emitBytes(byte(OpClosure), c.makeConstant(fn))
	for _, uv := range inner.upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.index)
	}
}

func varDeclaration(c *compiler) {
	global := c.parseVariable("Expect variable name.")
	if c.p.match(token.EQ) {
		expression(c)
	} else {
		c.emitByte(byte(OpNil))
	}
	c.p.consume(token.SEMI, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func statement(c *compiler) {
	switch {
	case c.p.match(token.PRINT):
		printStatement(c)
	case c.p.match(token.FOR):
		forStatement(c)
	case c.p.match(token.IF):
		ifStatement(c)
	case c.p.match(token.RETURN):
		returnStatement(c)
	case c.p.match(token.WHILE):
		whileStatement(c)
	case c.p.match(token.LBRACE):
		c.beginScope()
		block(c)
		c.endScope()
	default:
		expressionStatement(c)
	}
}

func block(c *compiler) {
	for !c.p.check(token.RBRACE) && !c.p.check(token.EOF) {
		declaration(c)
	}
	c.p.consume(token.RBRACE, "Expect '}' after block.")
}

func printStatement(c *compiler) {
	expression(c)
	c.p.consume(token.SEMI, "Expect ';' after value.")
	c.emitByte(byte(OpPrint))
}

func expressionStatement(c *compiler) {
	expression(c)
	c.p.consume(token.SEMI, "Expect ';' after expression.")
	c.emitByte(byte(OpPop))
}

func ifStatement(c *compiler) {
	c.p.consume(token.LPAREN, "Expect '(' after 'if'.")
	expression(c)
	c.p.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(OpJumpIfFalse)
	c.emitByte(byte(OpPop))
	statement(c)

	elseJump := c.emitJump(OpJump)
	c.patchJump(thenJump)
	c.emitByte(byte(OpPop))

	if c.p.match(token.ELSE) {
		statement(c)
	}
	c.patchJump(elseJump)
}

func whileStatement(c *compiler) {
	loopStart := len(c.currentChunk().Code)
	c.p.consume(token.LPAREN, "Expect '(' after 'while'.")
	expression(c)
	c.p.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(OpJumpIfFalse)
	c.emitByte(byte(OpPop))
	statement(c)
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitByte(byte(OpPop))
}

func forStatement(c *compiler) {
	c.beginScope()
	c.p.consume(token.LPAREN, "Expect '(' after 'for'.")
	switch {
	case c.p.match(token.SEMI):
		// no initializer
	case c.p.match(token.VAR):
		varDeclaration(c)
	default:
		expressionStatement(c)
	}

	loopStart := len(c.currentChunk().Code)
	exitJump := -1
	if !c.p.match(token.SEMI) {
		expression(c)
		c.p.consume(token.SEMI, "Expect ';' after loop condition.")
		exitJump = c.emitJump(OpJumpIfFalse)
		c.emitByte(byte(OpPop))
	}

	if !c.p.match(token.RPAREN) {
		bodyJump := c.emitJump(OpJump)
		incrementStart := len(c.currentChunk().Code)
		expression(c)
		c.emitByte(byte(OpPop))
		c.p.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	statement(c)
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitByte(byte(OpPop))
	}
	c.endScope()
}

func returnStatement(c *compiler) {
	if c.typ == typeScript {
		c.p.error("Can't return from top-level code.")
	}
	if c.p.match(token.SEMI) {
		c.emitReturn()
		return
	}
	expression(c)
	c.p.consume(token.SEMI, "Expect ';' after return value.")
	c.emitByte(byte(OpReturn))
}
