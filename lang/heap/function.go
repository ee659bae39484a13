package heap

// Chunk is a function body's compiled bytecode: the instruction stream, a
// parallel per-byte line table used only for error reporting, and the
// constant pool CONSTANT indexes into.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// Write appends a single byte of bytecode, recording the source line it
// came from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant adds v to the constant pool and returns its index. Callers
// are responsible for enforcing the pool's 256-entry limit; this method
// does not check it so tests can build chunks directly.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// FunctionObj is a compiled function: its arity, how many upvalues its
// closures must capture, an optional name (nil for the implicit top-level
// script function), and its chunk.
type FunctionObj struct {
	header
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *StringObj
}

func (f *FunctionObj) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.chars + ">"
}
func (*FunctionObj) Type() string { return "function" }

// UpvalueObj is a reference to a variable captured by a closure. While
// open, Location points into the owning frame's stack slot; Close copies
// the value out of the stack into Closed and repoints Location at it, so
// callers never need to special-case open vs. closed upvalues when
// reading or writing through Location.
type UpvalueObj struct {
	header
	Location *Value
	Closed   Value
	Next     *UpvalueObj // intrusive list of currently open upvalues, ordered by stack slot

	// Slot is the stack slot Location pointed into when this upvalue was
	// opened. It's meaningless once Close has run; it exists only so the VM
	// can order and search the open-upvalues list without doing pointer
	// arithmetic on the stack array.
	Slot int
}

func (u *UpvalueObj) String() string { return "<upvalue>" }
func (*UpvalueObj) Type() string     { return "upvalue" }

// Close copies the current value at Location into Closed and repoints
// Location at it, detaching the upvalue from the stack slot it used to
// share.
func (u *UpvalueObj) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// ClosureObj pairs a FunctionObj with the upvalues it captured at the
// point its CLOSURE instruction ran.
type ClosureObj struct {
	header
	Function *FunctionObj
	Upvalues []*UpvalueObj
}

func (c *ClosureObj) String() string { return c.Function.String() }
func (*ClosureObj) Type() string     { return "closure" }

// NativeFn is a function implemented in Go and exposed to vellum code as a
// callable value.
type NativeFn func(args []Value) (Value, error)

// NativeObj wraps a NativeFn with the name it's bound under, for error
// messages and for CALL's arity-free dispatch.
type NativeObj struct {
	header
	Name string
	Fn   NativeFn
}

func (*NativeObj) String() string { return "<native fn>" }
func (*NativeObj) Type() string   { return "native" }
