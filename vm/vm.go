package vm

import (
	"unsafe"

	"github.com/mirin-js/gc"
)

// Runtime is the host context: it owns the heap, the root set and the weak
// bookkeeping, and implements gc.Context. Single-threaded, like the
// collector it embeds.
type Runtime struct {
	Heap *gc.Heap

	// Roots is the stack-root table enumerated during root scanning.
	Roots gc.RootTable

	// globals are persistent roots (raw payload pointers, any kind).
	globals []unsafe.Pointer

	// Weak bookkeeping, keyed by container payload address. See weak.go.
	weakRefs   []gc.Ptr[WeakRef]
	weakMaps   map[unsafe.Pointer][]weakMapEntry
	weakSets   map[unsafe.Pointer][]gc.Ptr[Object]
	registries []*FinalizationRegistry

	// pending holds finalizers scheduled by weak processing, to run after
	// the cycle.
	pending []func()
}

// New creates a runtime with its own heap.
func New(p gc.Profile) *Runtime {
	r := &Runtime{
		Heap:     gc.NewHeap(p),
		weakMaps: make(map[unsafe.Pointer][]weakMapEntry),
		weakSets: make(map[unsafe.Pointer][]gc.Ptr[Object]),
	}
	r.Roots.Bind(r.Heap)
	return r
}

// Owner implements gc.Context.
func (r *Runtime) Owner() gc.Owner {
	return gc.OwnerToken(unsafe.Pointer(r))
}

// VisitRoots implements gc.Context: globals plus every occupied stack-root
// slot. The weak bookkeeping is deliberately not reported; it must not keep
// containers or their referents alive.
func (r *Runtime) VisitRoots(v gc.Visitor) {
	for _, p := range r.globals {
		if p != nil {
			v.Visit(p)
		}
	}
	r.Roots.Visit(v)
}

// TraceObject implements gc.Context by dispatching on the kind tag.
func (r *Runtime) TraceObject(p unsafe.Pointer, kind gc.Kind, v gc.Visitor) {
	if int(kind) >= len(traceTable) {
		panic("vm: trace of unknown object kind")
	}
	traceTable[kind](r, p, v)
}

// AddGlobal registers a persistent root and returns its index.
func AddGlobal[T any](r *Runtime, p gc.Ptr[T]) int {
	r.globals = append(r.globals, p.Raw())
	return len(r.globals) - 1
}

// SetGlobal replaces a persistent root. Stores during an active marking
// phase are barriered like any other root store.
func SetGlobal[T any](r *Runtime, i int, p gc.Ptr[T]) {
	gc.WriteBarrierPtr(r.Heap, p)
	r.globals[i] = p.Raw()
}

// DropGlobal removes a persistent root.
func (r *Runtime) DropGlobal(i int) {
	r.globals[i] = nil
}

// MaybeCollect is an allocation checkpoint: it starts a cycle when the heap
// asks for one and otherwise advances any cycle already in flight.
func (r *Runtime) MaybeCollect() {
	if r.Heap.ShouldCollect() {
		r.Heap.StartGC(r)
	} else if r.Heap.Collecting() {
		r.Heap.Step(r)
	}
}

// Collect runs a full cycle and the finalizers it scheduled, returning the
// number of objects reclaimed. A cycle left in flight by MaybeCollect is
// drained first.
func (r *Runtime) Collect() int {
	n := r.Heap.Collect(r)
	r.RunFinalizers()
	return n
}

// RunFinalizers runs callbacks scheduled by the last cycle's weak
// processing and returns how many ran. Each registration fires at most
// once.
func (r *Runtime) RunFinalizers() int {
	pending := r.pending
	r.pending = nil
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// Object constructors. Each constructor fully initializes the payload
// before anything else can allocate, so a collection step never observes a
// half-built object. Initialization stores are barriered like any other
// store: the new object is born black during a cycle, so an unbarriered
// reference argument would be the classic lost white target.

// NewObject allocates a plain object with the given prototype.
func (r *Runtime) NewObject(proto gc.Ptr[Object]) (gc.Ptr[Object], error) {
	p, err := gc.Allocate[Object](r.Heap, r, KindObject)
	if err != nil {
		return gc.Ptr[Object]{}, err
	}
	gc.WriteBarrierPtr(r.Heap, proto)
	obj := p.Get()
	obj.Proto = proto
	obj.Slots = gc.Ptr[Array]{}
	return p, nil
}

// NewString allocates an immutable string.
func (r *Runtime) NewString(s string) (gc.Ptr[String], error) {
	size := unsafe.Sizeof(String{}) + uintptr(len(s))
	raw, err := r.Heap.AllocateRaw(r, size, unsafe.Alignof(String{}), KindString)
	if err != nil {
		return gc.Ptr[String]{}, err
	}
	p := gc.FromRaw[String](raw)
	p.Get().Len = uintptr(len(s))
	copy(stringBytes(p), s)
	return p, nil
}

// StringValue returns the contents of a string object.
func StringValue(p gc.Ptr[String]) string {
	return string(stringBytes(p))
}

// NewArray allocates an array of n nil references.
func (r *Runtime) NewArray(n int) (gc.Ptr[Array], error) {
	size := unsafe.Sizeof(Array{}) + uintptr(n)*unsafe.Sizeof(gc.Ptr[Object]{})
	raw, err := r.Heap.AllocateRaw(r, size, unsafe.Alignof(Array{}), KindArray)
	if err != nil {
		return gc.Ptr[Array]{}, err
	}
	p := gc.FromRaw[Array](raw)
	p.Get().Len = uintptr(n)
	// Payload memory is zeroed; the elements start out as nil references.
	return p, nil
}

// NewBox allocates a box holding val.
func (r *Runtime) NewBox(val gc.Ptr[Object]) (gc.Ptr[Box], error) {
	p, err := gc.Allocate[Box](r.Heap, r, KindBox)
	if err != nil {
		return gc.Ptr[Box]{}, err
	}
	gc.WriteBarrierPtr(r.Heap, val)
	p.Get().Val = val
	return p, nil
}

// NewClosure allocates a closure with the given name and captures.
func (r *Runtime) NewClosure(name gc.Ptr[String], captures gc.Ptr[Array]) (gc.Ptr[Closure], error) {
	p, err := gc.Allocate[Closure](r.Heap, r, KindClosure)
	if err != nil {
		return gc.Ptr[Closure]{}, err
	}
	gc.WriteBarrierPtr(r.Heap, name)
	gc.WriteBarrierPtr(r.Heap, captures)
	c := p.Get()
	c.Name = name
	c.Captures = captures
	return p, nil
}

// NewSymbol allocates a symbol with an optional description.
func (r *Runtime) NewSymbol(desc gc.Ptr[String]) (gc.Ptr[Symbol], error) {
	p, err := gc.Allocate[Symbol](r.Heap, r, KindSymbol)
	if err != nil {
		return gc.Ptr[Symbol]{}, err
	}
	gc.WriteBarrierPtr(r.Heap, desc)
	p.Get().Desc = desc
	return p, nil
}

// Barriered mutators. Every store of a heap reference into a heap object
// goes through the heap's write barrier; this is the structural requirement
// the collector's incremental marking depends on.

// SetProto replaces an object's prototype link.
func (r *Runtime) SetProto(obj gc.Ptr[Object], proto gc.Ptr[Object]) {
	gc.WriteBarrierPtr(r.Heap, proto)
	obj.Get().Proto = proto
}

// SetElem stores a reference into an array.
func (r *Runtime) SetElem(arr gc.Ptr[Array], i int, val gc.Ptr[Object]) {
	gc.WriteBarrierPtr(r.Heap, val)
	elems(arr)[i] = val
}

// Elem loads a reference from an array.
func (r *Runtime) Elem(arr gc.Ptr[Array], i int) gc.Ptr[Object] {
	return elems(arr)[i]
}

// Len returns an array's length.
func (r *Runtime) Len(arr gc.Ptr[Array]) int {
	return int(arr.Get().Len)
}

// SetSlot stores a reference into an object's slot array, growing it as
// needed.
func (r *Runtime) SetSlot(obj gc.Ptr[Object], i int, val gc.Ptr[Object]) error {
	if err := r.ensureSlots(obj, i+1); err != nil {
		return err
	}
	r.SetElem(obj.Get().Slots, i, val)
	return nil
}

// Slot loads a reference from an object's slot array.
func (r *Runtime) Slot(obj gc.Ptr[Object], i int) gc.Ptr[Object] {
	slots := obj.Get().Slots
	if slots.IsNil() || i >= r.Len(slots) {
		return gc.Ptr[Object]{}
	}
	return r.Elem(slots, i)
}

// ensureSlots grows an object's slot array to hold at least n references.
func (r *Runtime) ensureSlots(obj gc.Ptr[Object], n int) error {
	old := obj.Get().Slots
	if !old.IsNil() && r.Len(old) >= n {
		return nil
	}
	grown := n
	if !old.IsNil() && 2*r.Len(old) > grown {
		grown = 2 * r.Len(old)
	}
	slots, err := r.NewArray(grown)
	if err != nil {
		return err
	}
	if !old.IsNil() {
		for i := 0; i < r.Len(old); i++ {
			r.SetElem(slots, i, r.Elem(old, i))
		}
	}
	gc.WriteBarrierPtr(r.Heap, slots)
	obj.Get().Slots = slots
	return nil
}
