// Package gc is an embeddable incremental tri-color mark/sweep garbage
// collector for managed-language runtimes.
//
// Objects never move: a Ptr handed out by Allocate stays valid until the
// object is proven unreachable and swept. Collection is incremental, not
// concurrent: the single mutator thread interleaves bounded Step calls with
// its own work, and a cycle that has been started must be driven to
// FinishGC before another may begin.
//
// The host supplies the object model through the Context interface: root
// enumeration, kind-based trace dispatch and weak-container processing. The
// collector supplies allocation, the phased collection protocol and the
// liveness predicate weak containers are built on.
package gc

import "unsafe"

// debugGC enables verbose collection traces on standard output.
const debugGC = false

// gcAsserts enables internal consistency checks. These catch invariant
// violations (most importantly a missed write barrier) close to the cause
// instead of at the resulting corruption.
const gcAsserts = true

// Heap owns all object storage, the intrusive all-objects list, the gray
// queue and the cycle phase. It is not safe for concurrent use; the
// embedding runtime drives it from a single mutator thread.
type Heap struct {
	// allObjects is the head of the intrusive list linking every live
	// allocation, used only by the sweeper.
	allObjects *header

	bytesAllocated uintptr
	numObjects     int

	// threshold is the allocation volume at which ShouldCollect starts
	// reporting true. Retuned to twice the live set after every cycle.
	threshold uintptr

	gray  grayQueue
	phase Phase

	// Incremental sweep cursor. sweepPrev trails sweepCur by one surviving
	// object so white objects can be unlinked.
	sweepPrev *header
	sweepCur  *header

	// sweepNew counts objects allocated while the sweep cursor was already
	// running. They are linked at the head, ahead of the cursor, and have
	// their floating-garbage black cleared when the sweep finishes.
	sweepNew int

	// Current/last cycle tallies.
	reclaimedObjects int
	reclaimedBytes   uintptr

	// Lifetime tallies.
	totalAllocBytes uint64
	totalAllocs     uint64
	cycles          uint64

	profile Profile
}

// NewHeap returns an empty heap tuned by the given profile. Zero profile
// fields fall back to defaults.
func NewHeap(p Profile) *Heap {
	p = p.withDefaults()
	return &Heap{
		threshold: uintptr(p.Threshold),
		profile:   p,
	}
}

// Phase returns the current collection phase.
func (h *Heap) Phase() Phase {
	return h.phase
}

// Collecting reports whether a collection cycle is in progress.
func (h *Heap) Collecting() bool {
	return h.phase != PhaseIdle
}

// marking reports whether stores need the write barrier.
func (h *Heap) marking() bool {
	return h.phase == PhaseRootScan || h.phase == PhaseMarking
}

// BytesAllocated returns the bytes currently allocated, including header
// overhead.
func (h *Heap) BytesAllocated() uintptr {
	return h.bytesAllocated
}

// NumObjects returns the number of live allocations.
func (h *Heap) NumObjects() int {
	return h.numObjects
}

// ShouldCollect reports whether enough has been allocated since the last
// cycle that the host should call StartGC. In stress mode it reports true
// whenever the heap is idle.
func (h *Heap) ShouldCollect() bool {
	if h.phase != PhaseIdle {
		return false
	}
	if h.profile.Stress {
		return true
	}
	return h.bytesAllocated > h.threshold
}

// Allocate allocates an object of payload type T. See AllocateRaw.
func Allocate[T any](h *Heap, ctx Context, kind Kind) (Ptr[T], error) {
	var zero T
	raw, err := h.AllocateRaw(ctx, unsafe.Sizeof(zero), unsafe.Alignof(zero), kind)
	if err != nil {
		return Ptr[T]{}, err
	}
	return FromRaw[T](raw), nil
}

// AllocateRaw allocates size bytes of zeroed payload with the given
// alignment and kind tag, owned by ctx. It returns ErrAlignment if the
// requested alignment exceeds MaxAlign and ErrOutOfMemory if the configured
// heap limit would be exceeded; in both cases the heap is unchanged.
//
// If a cycle is active the new object is colored black so it cannot be
// reclaimed in that same cycle, reachable or not (floating garbage). An
// active cycle is also advanced by one bounded step, so steady allocation
// drives collection forward on its own.
//
// The returned memory must be fully initialized before the next potential
// collection point; the object only becomes visible to tracing through
// references the host installs.
func (h *Heap) AllocateRaw(ctx Context, size, align uintptr, kind Kind) (unsafe.Pointer, error) {
	if align > MaxAlign {
		return nil, ErrAlignment
	}
	if size > maxPayloadSize {
		return nil, ErrOutOfMemory
	}

	// Advance an in-progress cycle before touching the heap state, so the
	// step never observes the new half-linked object.
	if h.Collecting() {
		h.Step(ctx)
	}

	words := (size + wordSize - 1) / wordSize
	if words == 0 {
		words = 1
	}
	total := headerOverhead + words*wordSize
	if limit := uintptr(h.profile.HeapLimit); limit != 0 && h.bytesAllocated+total > limit {
		return nil, ErrOutOfMemory
	}

	// One hidden word in front of the payload maps it back to its header.
	backing := make([]uintptr, 1+words)
	hdr := &header{
		owner:   0,
		meta:    packMeta(size, kind),
		payload: unsafe.Pointer(&backing[1]),
	}
	backing[0] = uintptr(unsafe.Pointer(hdr))

	color := White
	if h.Collecting() {
		// Floating-garbage rule: objects born during a cycle survive it.
		color = Black
	}
	hdr.owner = packOwner(ctx.Owner(), color)

	// Link at the head of the all-objects list. The object is fully
	// initialized from the collector's point of view before it becomes
	// discoverable.
	hdr.next = h.allObjects
	if h.phase == PhaseSweeping {
		h.sweepNew++
		if h.sweepPrev == nil && h.allObjects == h.sweepCur {
			// The cursor was still parked at the old head; the new object is
			// now the cursor's predecessor.
			h.sweepPrev = hdr
		}
	}
	h.allObjects = hdr

	h.bytesAllocated += total
	h.numObjects++
	h.totalAllocBytes += uint64(total)
	h.totalAllocs++

	if debugGC {
		println("gc: alloc", uint(size), "bytes, kind", uint(kind), "color", color.String())
	}
	return hdr.payload, nil
}

// StartGC begins a collection cycle: it enumerates the roots gray and leaves
// the heap in the marking phase. It is a no-op if a cycle is already in
// progress. Surviving objects were already reset to white by the previous
// sweep, so no whitening pass is needed here.
func (h *Heap) StartGC(ctx Context) {
	if h.Collecting() {
		return
	}

	h.phase = PhaseRootScan
	h.reclaimedObjects = 0
	h.reclaimedBytes = 0

	m := &marker{heap: h}
	ctx.VisitRoots(m)

	h.phase = PhaseMarking
	if debugGC {
		println("gc: cycle started,", h.gray.len(), "roots")
	}
}

// Step advances an in-progress cycle by one bounded increment and returns
// whether work remains. It never blocks: marking traces at most the
// profile's mark step of gray objects, sweeping reclaims at most the sweep
// step of objects. Step must only be called between complete mutator
// operations, never while a reachable object is partially constructed.
func (h *Heap) Step(ctx Context) bool {
	switch h.phase {
	case PhaseIdle:
		return false

	case PhaseRootScan:
		// Root scanning completes inside StartGC; nothing extra to do.
		h.phase = PhaseMarking
		return true

	case PhaseMarking:
		h.markStep(ctx, h.profile.MarkStep)
		return true

	case PhaseWeakRefs:
		// Weak processing runs in one step; it is driven by host bookkeeping,
		// not by heap size.
		ctx.ProcessWeakRefs(h)
		h.phase = PhaseSweeping
		h.sweepPrev = nil
		h.sweepCur = h.allObjects
		h.sweepNew = 0
		return true

	case PhaseSweeping:
		h.sweepStep(h.profile.SweepStep)
		return h.phase != PhaseIdle
	}
	panic("gc: corrupt phase")
}

// FinishGC drives the current cycle to completion and returns the number of
// objects it reclaimed. If the cycle was already stepped to completion (or
// no cycle was started since), it reports the most recent cycle's count.
func (h *Heap) FinishGC(ctx Context) int {
	for h.Step(ctx) {
	}
	return h.reclaimedObjects
}

// Collect runs a full cycle in one uninterrupted burst and returns the
// number of objects it reclaimed. An in-progress cycle is drained first:
// its floating garbage is still black and only a fresh root scan can
// condemn it, so finishing the stale cycle alone would not be a full
// collection.
func (h *Heap) Collect(ctx Context) int {
	if h.Collecting() {
		h.FinishGC(ctx)
	}
	h.StartGC(ctx)
	return h.FinishGC(ctx)
}

// markStep traces up to limit gray objects.
func (h *Heap) markStep(ctx Context, limit int) {
	m := &marker{heap: h}
	for i := 0; i < limit; i++ {
		hdr := h.gray.pop()
		if hdr == nil {
			// Marking has reached its fixed point.
			h.phase = PhaseWeakRefs
			if debugGC {
				println("gc: marking complete")
			}
			return
		}
		hdr.setColor(Black)
		ctx.TraceObject(hdr.payload, hdr.kind(), m)
	}
}

// sweepStep walks up to limit objects of the all-objects list, unlinking
// white objects and resetting survivors to white for the next cycle.
func (h *Heap) sweepStep(limit int) {
	for i := 0; i < limit; i++ {
		cur := h.sweepCur
		if cur == nil {
			h.finishSweep()
			return
		}
		next := cur.next

		if cur.color() == White {
			// Dead object: unlink it. The storage goes back to the host
			// allocator once nothing links to it.
			if h.sweepPrev != nil {
				h.sweepPrev.next = next
			} else {
				if gcAsserts && h.allObjects != cur {
					panic("gc: sweep cursor lost the list head")
				}
				h.allObjects = next
			}
			cur.next = nil
			h.reclaimedBytes += cur.totalSize()
			h.reclaimedObjects++
		} else {
			cur.setColor(White)
			h.sweepPrev = cur
		}
		h.sweepCur = next
	}
}

// finishSweep closes out the cycle: accounts the reclaimed storage, clears
// the floating-garbage black from objects born during the sweep, and retunes
// the collection threshold to twice the live set.
func (h *Heap) finishSweep() {
	// Objects allocated during the sweep sit at the head of the list, ahead
	// of where the cursor started. They were never visited, so reset them
	// here to keep the all-white-at-cycle-start invariant.
	hdr := h.allObjects
	for i := 0; i < h.sweepNew; i++ {
		if gcAsserts && hdr.color() != Black {
			panic("gc: object born during sweep is not black")
		}
		hdr.setColor(White)
		hdr = hdr.next
	}

	h.bytesAllocated -= h.reclaimedBytes
	h.numObjects -= h.reclaimedObjects

	h.threshold = h.bytesAllocated * 2
	if floor := uintptr(h.profile.Threshold); h.threshold < floor {
		h.threshold = floor
	}

	h.phase = PhaseIdle
	h.sweepPrev = nil
	h.sweepCur = nil
	h.sweepNew = 0
	h.cycles++

	if debugGC {
		println("gc: cycle finished,", h.reclaimedObjects, "objects reclaimed")
	}
}

// markGray queues a white object for tracing. Gray and black objects are
// left alone; marking is monotonic within a cycle.
func (h *Heap) markGray(hdr *header) {
	if hdr.color() != White {
		return
	}
	hdr.setColor(Gray)
	h.gray.push(hdr)
}

// WriteBarrier must be executed on every store of a heap reference into a
// heap object. While marking is active it grays a white store target, which
// restores the tri-color invariant after a black object is mutated to point
// at a white one. This is load-bearing correctness infrastructure: a single
// unbarriered store can let a reachable object be swept.
//
// Outside of marking the barrier is a cheap no-op, so hosts should call it
// unconditionally from their mutation paths.
func (h *Heap) WriteBarrier(target unsafe.Pointer) {
	if h.marking() && target != nil {
		h.markGray(headerOf(target))
	}
}

// WriteBarrierPtr is WriteBarrier for typed references.
func WriteBarrierPtr[T any](h *Heap, target Ptr[T]) {
	if !target.IsNil() {
		h.WriteBarrier(target.Raw())
	}
}
