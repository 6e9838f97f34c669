package gc

// Stack rooting. Native call frames are never scanned; instead, code that
// needs a reference to survive a potential collection point parks it in a
// slot of a stack-disciplined root table, and the table is enumerated as
// part of the root set. Scopes nest LIFO with the native call structure:
//
//	scope := rt.Roots.OpenScope()
//	defer scope.Close()
//	obj := Root(scope, someRef)
//
// The deferred Close releases every slot the scope pushed on every exit
// path, including early error returns, so a slot is released exactly once
// and dangling root slots cannot occur.
//
// A handle never looks at an object's header to find its context; the scope
// it was created from carries all the context there is (this is what rules
// out the reverse header-to-context lookup, which crashes on objects whose
// headers are not initialized yet).

import "unsafe"

// RootTable is a stack-discipline table of transient root slots. The host's
// context owns one and reports it from VisitRoots via Visit. The zero value
// is ready to use; Bind it to the heap so that rooting while a cycle is
// active runs the write barrier.
type RootTable struct {
	heap   *Heap
	slots  []unsafe.Pointer
	scopes []int
}

// Bind associates the table with a heap. The table is scanned only once per
// cycle, at StartGC, so a reference rooted while marking is already active
// must be grayed like any other store; a bound table does that itself on
// Root, RootRaw and Handle.Set.
func (t *RootTable) Bind(h *Heap) {
	t.heap = h
}

// OpenScope starts a new rooting scope. Scopes must be closed in LIFO
// order; pair every OpenScope with a deferred Close.
func (t *RootTable) OpenScope() *RootScope {
	t.scopes = append(t.scopes, len(t.slots))
	return &RootScope{
		table: t,
		index: len(t.scopes) - 1,
		base:  len(t.slots),
	}
}

// Depth returns the number of occupied slots, for diagnostics and tests.
func (t *RootTable) Depth() int {
	return len(t.slots)
}

// Visit reports every occupied slot as a strong root.
func (t *RootTable) Visit(v Visitor) {
	for _, p := range t.slots {
		if p != nil {
			v.Visit(p)
		}
	}
}

// RootScope is one LIFO segment of the root table.
type RootScope struct {
	table  *RootTable
	index  int
	base   int
	closed bool
}

// Close releases every slot this scope pushed. Closing twice or out of
// order is a bug in the caller and panics.
func (s *RootScope) Close() {
	if s.closed {
		panic("gc: root scope closed twice")
	}
	t := s.table
	if len(t.scopes)-1 != s.index {
		panic("gc: root scopes closed out of order")
	}
	for i := s.base; i < len(t.slots); i++ {
		t.slots[i] = nil
	}
	t.slots = t.slots[:s.base]
	t.scopes = t.scopes[:s.index]
	s.closed = true
}

// RootRaw pushes a slot holding p and returns its index.
func (s *RootScope) RootRaw(p unsafe.Pointer) int {
	if s.closed {
		panic("gc: rooting in a closed scope")
	}
	if gcAsserts && len(s.table.scopes)-1 != s.index {
		panic("gc: rooting in a non-innermost scope")
	}
	if t := s.table; t.heap != nil {
		t.heap.WriteBarrier(p)
	}
	s.table.slots = append(s.table.slots, p)
	return len(s.table.slots) - 1
}

// Root parks a reference in the scope and returns a handle to the slot. The
// reference stays rooted until the scope closes.
func Root[T any](s *RootScope, p Ptr[T]) Handle[T] {
	return Handle[T]{
		table: s.table,
		slot:  s.RootRaw(p.Raw()),
	}
}

// Handle identifies one root-table slot. It stays valid until the scope
// that created it closes.
type Handle[T any] struct {
	table *RootTable
	slot  int
}

// Ptr returns the rooted reference.
func (h Handle[T]) Ptr() Ptr[T] {
	return FromRaw[T](h.table.slots[h.slot])
}

// Set replaces the rooted reference.
func (h Handle[T]) Set(p Ptr[T]) {
	if h.table.heap != nil {
		h.table.heap.WriteBarrier(p.Raw())
	}
	h.table.slots[h.slot] = p.Raw()
}
