package gc

// Ptr is a stable, non-owning reference to a heap object's payload. The
// collector never relocates objects, so a Ptr stays valid for the object's
// whole lifetime. It must only be held across a potential collection point if
// it is rooted (see RootTable).

import "unsafe"

// Ptr is a typed reference to a collector-managed object.
// The zero value is the nil reference.
type Ptr[T any] struct {
	p *T
}

// FromRaw wraps a raw payload pointer obtained from AllocateRaw.
func FromRaw[T any](raw unsafe.Pointer) Ptr[T] {
	return Ptr[T]{p: (*T)(raw)}
}

// Get returns the payload. It panics on the nil reference.
func (p Ptr[T]) Get() *T {
	if p.p == nil {
		panic("gc: dereference of nil Ptr")
	}
	return p.p
}

// IsNil reports whether this is the nil reference.
func (p Ptr[T]) IsNil() bool {
	return p.p == nil
}

// Raw returns the payload address.
func (p Ptr[T]) Raw() unsafe.Pointer {
	return unsafe.Pointer(p.p)
}

// Equal reports pointer identity.
func (p Ptr[T]) Equal(q Ptr[T]) bool {
	return p.p == q.p
}

// Cast reinterprets a reference as another payload type. The object's kind
// tag is unaffected.
func Cast[U, T any](p Ptr[T]) Ptr[U] {
	return Ptr[U]{p: (*U)(unsafe.Pointer(p.p))}
}
