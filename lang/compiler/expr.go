package compiler

import (
	"strconv"

	"github.com/vellum-lang/vellum/lang/heap"
	"github.com/vellum-lang/vellum/lang/token"
)

// precedence orders binary operators from loosest- to tightest-binding, so
// parsePrecedence knows when to stop consuming infix operators and hand
// control back to its caller.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// rules is the Pratt parser's driver table: for each token kind, how to
// parse it as the start of an expression (prefix) and/or as a continuation
// of one (infix), and at what precedence the infix form binds.
var rules = map[token.Token]parseRule{
	token.LPAREN: {prefix: grouping, infix: call, precedence: precCall},
	token.DOT:    {infix: dot, precedence: precCall},
	token.MINUS:  {prefix: unary, infix: binary, precedence: precTerm},
	token.PLUS:   {infix: binary, precedence: precTerm},
	token.SLASH:  {infix: binary, precedence: precFactor},
	token.STAR:   {infix: binary, precedence: precFactor},
	token.BANG:   {prefix: unary},
	token.BANGEQ: {infix: binary, precedence: precEquality},
	token.EQEQ:   {infix: binary, precedence: precEquality},
	token.GT:     {infix: binary, precedence: precComparison},
	token.GE:     {infix: binary, precedence: precComparison},
	token.LT:     {infix: binary, precedence: precComparison},
	token.LE:     {infix: binary, precedence: precComparison},
	token.IDENT:  {prefix: variable},
	token.STRING: {prefix: stringLit},
	token.NUMBER: {prefix: number},
	token.AND:    {infix: and_, precedence: precAnd},
	token.OR:     {infix: or_, precedence: precOr},
	token.FALSE:  {prefix: literal},
	token.NIL:    {prefix: literal},
	token.TRUE:   {prefix: literal},
}

// getRule is assigned in init rather than declared as a function: rules
// refers (through its parse functions) back to getRule, which Go rejects
// as an initialization cycle when both are package-level initializers.
var getRule func(k token.Token) parseRule

func init() {
	getRule = func(k token.Token) parseRule { return rules[k] }
}

func expression(c *compiler) {
	parsePrecedence(c, precAssignment)
}

func parsePrecedence(c *compiler, prec precedence) {
	c.p.advance()
	prefixRule := getRule(c.p.previous.Kind).prefix
	if prefixRule == nil {
		c.p.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= getRule(c.p.current.Kind).precedence {
		c.p.advance()
		infixRule := getRule(c.p.previous.Kind).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.p.match(token.EQ) {
		c.p.error("Invalid assignment target.")
	}
}

func number(c *compiler, _ bool) {
	v, _ := strconv.ParseFloat(c.p.previous.Lexeme, 64)
	c.emitConstant(heap.Number(v))
}

func stringLit(c *compiler, _ bool) {
	lexeme := c.p.previous.Lexeme
	raw := lexeme[1 : len(lexeme)-1] // strip the surrounding quotes
	s := c.p.heap.NewString(raw, c)
	c.emitConstant(s)
}

func literal(c *compiler, _ bool) {
	switch c.p.previous.Kind {
	case token.FALSE:
		c.emitByte(byte(OpFalse))
	case token.NIL:
		c.emitByte(byte(OpNil))
	case token.TRUE:
		c.emitByte(byte(OpTrue))
	}
}

func grouping(c *compiler, _ bool) {
	expression(c)
	c.p.consume(token.RPAREN, "Expect ')' after expression.")
}

func unary(c *compiler, _ bool) {
	opType := c.p.previous.Kind
	parsePrecedence(c, precUnary)
	switch opType {
	case token.BANG:
		c.emitByte(byte(OpNot))
	case token.MINUS:
		c.emitByte(byte(OpNegate))
	}
}

func binary(c *compiler, _ bool) {
	opType := c.p.previous.Kind
	rule := getRule(opType)
	parsePrecedence(c, rule.precedence+1)

	switch opType {
	case token.BANGEQ:
		c.emitBytes(byte(OpEqual), byte(OpNot))
	case token.EQEQ:
		c.emitByte(byte(OpEqual))
	case token.GT:
		c.emitByte(byte(OpGreater))
	case token.GE:
		c.emitBytes(byte(OpLess), byte(OpNot))
	case token.LT:
		c.emitByte(byte(OpLess))
	case token.LE:
		c.emitBytes(byte(OpGreater), byte(OpNot))
	case token.PLUS:
		c.emitByte(byte(OpAdd))
	case token.MINUS:
		c.emitByte(byte(OpSub))
	case token.STAR:
		c.emitByte(byte(OpMul))
	case token.SLASH:
		c.emitByte(byte(OpDiv))
	}
}

func call(c *compiler, _ bool) {
	argCount := argumentList(c)
	c.emitBytes(byte(OpCall), argCount)
}

func argumentList(c *compiler) byte {
	var argCount int
	if !c.p.check(token.RPAREN) {
		for {
			expression(c)
			if argCount == maxArgs {
				c.p.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.p.match(token.COMMA) {
				break
			}
		}
	}
	c.p.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argCount)
}

func dot(c *compiler, canAssign bool) {
	c.p.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(c.p.previous.Lexeme)

	if canAssign && c.p.match(token.EQ) {
		expression(c)
		c.emitBytes(byte(OpSetProperty), name)
	} else {
		c.emitBytes(byte(OpGetProperty), name)
	}
}

func and_(c *compiler, _ bool) {
	endJump := c.emitJump(OpJumpIfFalse)
	c.emitByte(byte(OpPop))
	parsePrecedence(c, precAnd)
	c.patchJump(endJump)
}

func or_(c *compiler, _ bool) {
	elseJump := c.emitJump(OpJumpIfFalse)
	endJump := c.emitJump(OpJump)

	c.patchJump(elseJump)
	c.emitByte(byte(OpPop))

	parsePrecedence(c, precOr)
	c.patchJump(endJump)
}

func variable(c *compiler, canAssign bool) {
	c.namedVariable(c.p.previous.Lexeme, canAssign)
}
