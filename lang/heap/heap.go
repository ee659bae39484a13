package heap

import (
	"fmt"
	"io"
)

// GCHeapGrowFactor is how much the next collection threshold grows by
// relative to the heap size measured right after the collection that set
// it, matching the reference collector's self-tuning pace.
const GCHeapGrowFactor = 2

const initialNextGC = 1 << 10 // bytes; small on purpose so tests collect quickly

// RootMarker is implemented by whatever mutator currently owns the heap:
// the VM while a program runs, the compiler while a chunk is still being
// assembled. Collect asks it to mark every value the mutator can still
// reach directly, before tracing the rest of the graph from there.
//
// A compiler in the middle of emitting a function needs this too: a GC
// triggered by, say, interning a string constant must not reclaim a
// function object the compiler is still building but hasn't stored
// anywhere reachable from the VM yet.
type RootMarker interface {
	MarkRoots(h *Heap)
}

// Heap owns every object allocation, the table of interned strings, and
// the tri-color mark-sweep collector that reclaims both.
type Heap struct {
	objects Obj // head of the intrusive list of every live allocation
	strings *Table

	bytesAllocated int
	nextGC         int
	grayStack      []Obj

	// StressGC, when true, runs a full collection on every allocation. Used
	// by tests to shake out missing roots.
	StressGC bool

	// LogGC, when non-nil, receives a line of text for each GC phase and
	// each individual collection/free, matching the reference
	// implementation's DEBUG_LOG_GC output.
	LogGC io.Writer
}

// New returns an empty heap.
func New() *Heap {
	return &Heap{
		strings: NewTable(),
		nextGC:  initialNextGC,
	}
}

// Strings returns the heap's string-interning table, exposed so a VM can
// report its size (e.g. for diagnostics) but callers should otherwise
// reach it only through NewString.
func (h *Heap) Strings() *Table { return h.strings }

func (h *Heap) logf(format string, args ...any) {
	if h.LogGC != nil {
		fmt.Fprintf(h.LogGC, format, args...)
	}
}

// link adds a freshly allocated object to the heap's sweep list and
// accounts for its size.
func (h *Heap) link(o Obj, size int, roots RootMarker) {
	hdr := o.objHeader()
	hdr.next = h.objects
	h.objects = o
	h.bytesAllocated += size

	if h.StressGC || h.bytesAllocated > h.nextGC {
		h.Collect(roots)
	}
}

// NewString interns chars, returning the existing StringObj if an equal
// string was already allocated. This is what makes string equality a
// pointer comparison everywhere else in the VM.
func (h *Heap) NewString(chars string, roots RootMarker) *StringObj {
	hash := hashString(chars)
	if s := h.strings.FindString(chars, hash); s != nil {
		return s
	}
	s := &StringObj{header: header{kind: ObjString}, chars: chars, hash: hash}
	// Root the new string for the collection link may trigger: at that point
	// it is not yet reachable from anywhere else, so without this it would be
	// reclaimed out from under us. Once link returns it is an ordinary object
	// again, collected like any other when nothing references it.
	h.link(s, len(chars), pinned{RootMarker: roots, obj: s})
	h.strings.Set(s, Bool(true))
	return s
}

// pinned extends a RootMarker with one extra object, rooting a fresh
// allocation during the collection its own allocation triggers.
type pinned struct {
	RootMarker
	obj Obj
}

func (p pinned) MarkRoots(h *Heap) {
	p.RootMarker.MarkRoots(h)
	h.MarkObject(p.obj)
}

func (h *Heap) NewFunction(name *StringObj, arity int, roots RootMarker) *FunctionObj {
	f := &FunctionObj{header: header{kind: ObjFunction}, Name: name, Arity: arity}
	h.link(f, 64, roots)
	return f
}

func (h *Heap) NewClosure(fn *FunctionObj, roots RootMarker) *ClosureObj {
	c := &ClosureObj{
		header:   header{kind: ObjClosure},
		Function: fn,
		Upvalues: make([]*UpvalueObj, fn.UpvalueCount),
	}
	h.link(c, 16+8*fn.UpvalueCount, roots)
	return c
}

func (h *Heap) NewUpvalue(slot *Value, slotIndex int, roots RootMarker) *UpvalueObj {
	u := &UpvalueObj{header: header{kind: ObjUpvalue}, Location: slot, Slot: slotIndex}
	h.link(u, 24, roots)
	return u
}

func (h *Heap) NewClass(name *StringObj, roots RootMarker) *ClassObj {
	c := &ClassObj{header: header{kind: ObjClass}, Name: name}
	h.link(c, 16, roots)
	return c
}

func (h *Heap) NewInstance(class *ClassObj, roots RootMarker) *InstanceObj {
	i := &InstanceObj{header: header{kind: ObjInstance}, Class: class, Fields: NewTable()}
	h.link(i, 32, roots)
	return i
}

func (h *Heap) NewNative(name string, fn NativeFn, roots RootMarker) *NativeObj {
	n := &NativeObj{header: header{kind: ObjNative}, Name: name, Fn: fn}
	h.link(n, 16, roots)
	return n
}

// MarkValue marks v if it is a heap object; non-object values (Nil, Bool,
// Number) have no GC lifetime and are ignored.
func (h *Heap) MarkValue(v Value) {
	if o, ok := v.(Obj); ok {
		h.MarkObject(o)
	}
}

// MarkObject grays o: it sets o's mark bit and pushes it onto the gray
// worklist so
// traceReferences will later visit its outgoing references. Marking an
// already-marked object is a no-op, which is what keeps cyclic object
// graphs from looping forever.
func (h *Heap) MarkObject(o Obj) {
	if o == nil {
		return
	}
	hdr := o.objHeader()
	if hdr.mark {
		return
	}
	hdr.mark = true
	h.logf("%p mark %s\n", o, o.String())
	h.grayStack = append(h.grayStack, o)
}

// Collect runs one full mark-sweep cycle: mark roots, trace the object
// graph to completion, drop interned strings that turned out unreachable,
// then sweep every object that's still white.
func (h *Heap) Collect(roots RootMarker) {
	h.logf("-- gc begin\n")
	before := h.bytesAllocated

	roots.MarkRoots(h)
	h.traceReferences()
	h.strings.RemoveWhite()
	h.sweep()

	h.nextGC = h.bytesAllocated * GCHeapGrowFactor
	if h.nextGC < initialNextGC {
		h.nextGC = initialNextGC
	}

	h.logf("-- gc end\n")
	h.logf("   collected %d bytes (from %d to %d) next at %d\n",
		before-h.bytesAllocated, before, h.bytesAllocated, h.nextGC)
}

// traceReferences drains the gray worklist, blackening each object by
// marking whatever it references. The worklist is owned entirely by Heap
// and reset naturally as it drains -- there is no per-object teardown of
// it, only this one queue that every Collect call empties in turn.
func (h *Heap) traceReferences() {
	for len(h.grayStack) > 0 {
		n := len(h.grayStack) - 1
		o := h.grayStack[n]
		h.grayStack[n] = nil
		h.grayStack = h.grayStack[:n]
		h.blacken(o)
	}
}

func (h *Heap) blacken(o Obj) {
	h.logf("%p blacken %s\n", o, o.String())
	switch v := o.(type) {
	case *StringObj:
		// no outgoing references
	case *NativeObj:
		// no outgoing references
	case *UpvalueObj:
		h.MarkValue(*v.Location)
	case *FunctionObj:
		if v.Name != nil { // nil for the top-level script function
			h.MarkObject(v.Name)
		}
		for _, c := range v.Chunk.Constants {
			h.MarkValue(c)
		}
	case *ClosureObj:
		h.MarkObject(v.Function)
		for _, uv := range v.Upvalues {
			if uv != nil { // not yet filled in while CLOSURE is capturing
				h.MarkObject(uv)
			}
		}
	case *ClassObj:
		h.MarkObject(v.Name)
	case *InstanceObj:
		h.MarkObject(v.Class)
		v.Fields.Mark(h)
	}
}

// sweep unlinks and discards every object still white, and unmarks every
// surviving object so the next cycle starts them off white again.
func (h *Heap) sweep() {
	var prev Obj
	cur := h.objects
	for cur != nil {
		hdr := cur.objHeader()
		if hdr.mark {
			hdr.mark = false
			prev = cur
			cur = hdr.next
			continue
		}

		unreached := cur
		cur = hdr.next
		if prev != nil {
			prev.objHeader().next = cur
		} else {
			h.objects = cur
		}
		h.bytesAllocated -= objSize(unreached)
		h.logf("%p free %s\n", unreached, unreached.String())
	}
}

func objSize(o Obj) int {
	switch v := o.(type) {
	case *StringObj:
		return len(v.chars)
	case *ClosureObj:
		return 16 + 8*len(v.Upvalues)
	case *FunctionObj:
		return 64
	case *UpvalueObj:
		return 24
	case *ClassObj:
		return 16
	case *InstanceObj:
		return 32
	case *NativeObj:
		return 16
	default:
		return 0
	}
}
