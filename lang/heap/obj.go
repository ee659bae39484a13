package heap

// ObjKind identifies the concrete kind of a heap-allocated object, used by
// the collector to dispatch blacken/free logic and by runtime errors to
// name a value's type.
type ObjKind uint8

const (
	ObjString ObjKind = iota
	ObjFunction
	ObjClosure
	ObjUpvalue
	ObjClass
	ObjInstance
	ObjNative
)

func (k ObjKind) String() string {
	switch k {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjClosure:
		return "closure"
	case ObjUpvalue:
		return "upvalue"
	case ObjClass:
		return "class"
	case ObjInstance:
		return "instance"
	case ObjNative:
		return "native"
	default:
		return "unknown"
	}
}

// Obj is implemented by every heap-allocated value kind. The collector
// never type-asserts past this interface except inside blacken, where it
// must look at kind-specific outgoing references.
type Obj interface {
	Value
	objHeader() *header
}

// header is embedded by every concrete object kind. It carries the
// intrusive linked-list pointer the heap uses to walk every live
// allocation during sweep, and the tri-color mark bit.
//
// Objects start white (mark == false). The collector blackens reachable
// objects by setting mark to true; sweep then frees every object still
// white.
type header struct {
	kind ObjKind
	mark bool
	next Obj
}

func (h *header) objHeader() *header { return h }

// Kind returns an object's concrete kind.
func Kind(o Obj) ObjKind { return o.objHeader().kind }
