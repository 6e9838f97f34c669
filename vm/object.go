// Package vm is a reference host runtime for the collector: a miniature
// JavaScript-style object model that implements gc.Context. It shows the
// collaborator side of the collector's API contract (kind-tagged trace
// dispatch, global and stack roots, weak containers and finalization) and
// backs the package's end-to-end tests and the gcstress tool.
package vm

import (
	"unsafe"

	"github.com/mirin-js/gc"
)

// The closed set of object kinds. Dispatch is a flat table indexed by kind,
// not an inheritance hierarchy, so the trace routines stay exhaustively
// checkable.
const (
	KindObject gc.Kind = iota
	KindString
	KindArray
	KindBox
	KindClosure
	KindSymbol
	KindWeakRef
	KindWeakMap
	KindWeakSet

	numKinds
)

var kindNames = [numKinds]string{
	KindObject:  "object",
	KindString:  "string",
	KindArray:   "array",
	KindBox:     "box",
	KindClosure: "closure",
	KindSymbol:  "symbol",
	KindWeakRef: "weakref",
	KindWeakMap: "weakmap",
	KindWeakSet: "weakset",
}

// KindName returns a printable name for a kind tag.
func KindName(k gc.Kind) string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Object is a plain object: a prototype link plus a slot array.
type Object struct {
	Proto gc.Ptr[Object]
	Slots gc.Ptr[Array]
}

// String is an immutable byte string. Len bytes of payload follow the
// header word.
type String struct {
	Len uintptr
}

// Array is a fixed-length array of references. Len reference words follow
// the header word.
type Array struct {
	Len uintptr
}

// Box wraps a single reference (the boxed-value heap cell).
type Box struct {
	Val gc.Ptr[Object]
}

// Closure pairs a function name with its captured environment.
type Closure struct {
	Name     gc.Ptr[String]
	Captures gc.Ptr[Array]
}

// Symbol is a unique token with an optional description.
type Symbol struct {
	Desc gc.Ptr[String]
}

// WeakRef holds a target without keeping it alive. The target field is
// reported with VisitWeak during tracing and cleared by weak processing
// when the target dies.
type WeakRef struct {
	Target gc.Ptr[Object]
}

// WeakMap and WeakSet are placeholders on the heap; their entries live in
// runtime-side tables keyed by the object's address (see weak.go). Keys are
// weak, weak-map values are held strongly while the map is alive.
type (
	WeakMap struct{}
	WeakSet struct{}
)

// stringBytes returns the payload bytes of a string object.
func stringBytes(p gc.Ptr[String]) []byte {
	n := p.Get().Len
	if n == 0 {
		return nil
	}
	data := unsafe.Add(p.Raw(), unsafe.Sizeof(String{}))
	return unsafe.Slice((*byte)(data), n)
}

// elems returns the reference words of an array object.
func elems(p gc.Ptr[Array]) []gc.Ptr[Object] {
	n := p.Get().Len
	if n == 0 {
		return nil
	}
	data := unsafe.Add(p.Raw(), unsafe.Sizeof(Array{}))
	return unsafe.Slice((*gc.Ptr[Object])(data), n)
}

// traceFunc reports one object's outgoing references.
type traceFunc func(r *Runtime, p unsafe.Pointer, v gc.Visitor)

// traceTable dispatches tracing by kind tag.
var traceTable = [numKinds]traceFunc{
	KindObject:  traceObject,
	KindString:  traceNothing,
	KindArray:   traceArray,
	KindBox:     traceBox,
	KindClosure: traceClosure,
	KindSymbol:  traceSymbol,
	KindWeakRef: traceWeakRef,
	KindWeakMap: traceWeakMap,
	KindWeakSet: traceWeakSet,
}

func traceNothing(r *Runtime, p unsafe.Pointer, v gc.Visitor) {}

func traceObject(r *Runtime, p unsafe.Pointer, v gc.Visitor) {
	obj := (*Object)(p)
	gc.VisitPtr(v, obj.Proto)
	gc.VisitPtr(v, obj.Slots)
}

func traceArray(r *Runtime, p unsafe.Pointer, v gc.Visitor) {
	for _, e := range elems(gc.FromRaw[Array](p)) {
		gc.VisitPtr(v, e)
	}
}

func traceBox(r *Runtime, p unsafe.Pointer, v gc.Visitor) {
	gc.VisitPtr(v, (*Box)(p).Val)
}

func traceClosure(r *Runtime, p unsafe.Pointer, v gc.Visitor) {
	c := (*Closure)(p)
	gc.VisitPtr(v, c.Name)
	gc.VisitPtr(v, c.Captures)
}

func traceSymbol(r *Runtime, p unsafe.Pointer, v gc.Visitor) {
	gc.VisitPtr(v, (*Symbol)(p).Desc)
}

func traceWeakRef(r *Runtime, p unsafe.Pointer, v gc.Visitor) {
	gc.VisitWeakPtr(v, (*WeakRef)(p).Target)
}

func traceWeakMap(r *Runtime, p unsafe.Pointer, v gc.Visitor) {
	// Keys are weak. Values are held strongly while the map itself is
	// alive; entries with dead keys are dropped by weak processing.
	for _, e := range r.weakMaps[p] {
		gc.VisitWeakPtr(v, e.key)
		gc.VisitPtr(v, e.val)
	}
}

func traceWeakSet(r *Runtime, p unsafe.Pointer, v gc.Visitor) {
	for _, m := range r.weakSets[p] {
		gc.VisitWeakPtr(v, m)
	}
}
