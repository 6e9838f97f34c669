package gc

// The liveness predicate weak containers are built on. The collector does
// not implement weak references itself: the host keeps its weak edges out of
// tracing (VisitWeak), and fixes its containers up in ProcessWeakRefs by
// asking which referents marking proved reachable. See the vm package for a
// complete weak-reference, weak-map and finalization layer built this way.

import "unsafe"

// IsAlive reports whether the object at p was proven reachable by the
// current cycle's marking. It is meaningful during weak processing and
// between marking completion and the end of the sweep; weak containers use
// it to decide whether to clear an entry.
func (h *Heap) IsAlive(p unsafe.Pointer) bool {
	if p == nil {
		return false
	}
	return headerOf(p).color() != White
}

// Alive is IsAlive for typed references.
func Alive[T any](h *Heap, p Ptr[T]) bool {
	return h.IsAlive(p.Raw())
}
