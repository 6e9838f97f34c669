package gc

// The visitor/context contract decouples the collector from the host's
// object model. The host reports roots and per-object outgoing references to
// a Visitor; the collector calls back into the Context for root enumeration,
// kind-based trace dispatch and weak-container processing.

import "unsafe"

// Visitor is handed to the host during root enumeration and object tracing.
// The host calls Visit for every strong outgoing reference and VisitWeak for
// references that must not keep their target alive.
type Visitor interface {
	// Visit reports a strong reference. A white target is colored gray and
	// queued for tracing. nil is ignored.
	Visit(p unsafe.Pointer)

	// VisitWeak reports a weak reference. The target is not traced; weak
	// containers are fixed up by Context.ProcessWeakRefs after marking.
	VisitWeak(p unsafe.Pointer)
}

// VisitPtr reports a strong typed reference to the visitor.
func VisitPtr[T any](v Visitor, p Ptr[T]) {
	if !p.IsNil() {
		v.Visit(p.Raw())
	}
}

// VisitWeakPtr reports a weak typed reference to the visitor.
func VisitWeakPtr[T any](v Visitor, p Ptr[T]) {
	if !p.IsNil() {
		v.VisitWeak(p.Raw())
	}
}

// Context is implemented by the host runtime that embeds the collector.
type Context interface {
	// Owner returns the opaque token stored in the headers of objects this
	// context allocates. The collector never turns the token back into a
	// context.
	Owner() Owner

	// VisitRoots reports every reference reachable without traversing the
	// heap: globals, persistent handles and every occupied stack-root slot.
	VisitRoots(v Visitor)

	// TraceObject reports the outgoing references of the object at p. The
	// kind tag is the one supplied to Allocate; the host dispatches on it to
	// a type-specific trace routine. Reporting order is unspecified.
	TraceObject(p unsafe.Pointer, kind Kind, v Visitor)

	// ProcessWeakRefs runs after marking completes and before the sweep. The
	// host clears weak containers whose referents fail h.IsAlive and
	// schedules finalizers for reclaimed registrations.
	ProcessWeakRefs(h *Heap)
}

// marker implements Visitor for the marking phase. It grays white targets
// and queues them; weak references are deliberately ignored here and picked
// up during weak processing instead.
type marker struct {
	heap *Heap
}

func (m *marker) Visit(p unsafe.Pointer) {
	if p == nil {
		return
	}
	m.heap.markGray(headerOf(p))
}

func (m *marker) VisitWeak(p unsafe.Pointer) {
	// Weak references are not traced during marking.
}
