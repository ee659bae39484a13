// Package heap owns every value the virtual machine can manipulate: the
// small set of value kinds that live on the stack directly (nil, booleans,
// numbers) and the heap-allocated object kinds (strings, functions,
// closures, upvalues, classes, instances, natives). It also owns the
// tri-color mark-sweep collector that reclaims those objects and the
// open-addressed table used both for globals/fields and for string
// interning.
//
// Object kinds are modeled as distinct Go types rather than a single
// tagged struct pierced with unsafe casts: each kind embeds a common
// header and implements the Obj interface, so the collector can walk
// and blacken them without knowing their concrete layout.
package heap

import "strconv"

// Value is implemented by every value the machine can hold, whether it
// lives directly on the stack (Nil, Bool, Number) or indirectly through a
// heap reference (any Obj).
type Value interface {
	// String returns the value's print representation, matching the
	// language's own "print" semantics.
	String() string

	// Type returns a short, stable name for the value's type, used in
	// runtime error messages.
	Type() string
}

// Nil is the value of the "nil" literal. There is exactly one Nil value;
// Value equality compares it by type switch, not pointer identity.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "boolean" }

// Number is a double-precision float, the language's only numeric type.
type Number float64

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}
func (Number) Type() string { return "number" }

// IsTruthy implements the language's truthiness rule: nil and false are
// falsey, every other value (including 0 and "") is truthy.
func IsTruthy(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Equal implements the language's "==" operator. Strings compare by
// content (via interning they're also pointer-equal, but content
// comparison keeps this correct even for values from different heaps, e.g.
// in tests). Objects other than strings compare by identity.
func Equal(x, y Value) bool {
	switch x := x.(type) {
	case Nil:
		_, ok := y.(Nil)
		return ok
	case Bool:
		yb, ok := y.(Bool)
		return ok && x == yb
	case Number:
		yn, ok := y.(Number)
		return ok && x == yn
	case *StringObj:
		ys, ok := y.(*StringObj)
		return ok && x.chars == ys.chars
	default:
		return x == y
	}
}
