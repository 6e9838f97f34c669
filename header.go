package gc

// Every heap object is tracked by a fixed-layout header: one word packing the
// owner token with the mark color, one word packing the payload size with the
// kind tag, the intrusive all-objects link used by the sweeper, and the
// payload pointer. The word immediately before the payload holds the header
// address so that a payload pointer can be mapped back to its header.
//
// The owner token is written once at allocation and is never unpacked into a
// context again. Operations that need a context take it as an explicit
// parameter; recovering it from a header is how you crash on an object whose
// header has not been initialized yet.

import (
	"unsafe"

	"github.com/mirin-js/gc/internal/tagword"
)

// Color is the tri-color mark state of a heap object.
type Color uint8

const (
	// White objects have not been proven reachable this cycle. Anything still
	// white when the sweeper arrives is reclaimed.
	White Color = iota
	// Gray objects are reachable but their outgoing references have not been
	// traced yet.
	Gray
	// Black objects are reachable and fully traced.
	Black
)

// String returns a human-readable version of the color, for debugging.
func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Gray:
		return "gray"
	case Black:
		return "black"
	default:
		// must never happen
		return "!err"
	}
}

// Phase is the current stage of a collection cycle.
type Phase uint8

const (
	// PhaseIdle means no collection is in progress.
	PhaseIdle Phase = iota
	// PhaseRootScan is the root enumeration at the start of a cycle.
	PhaseRootScan
	// PhaseMarking is incremental tracing of the gray queue.
	PhaseMarking
	// PhaseWeakRefs is the host's weak-container post-processing.
	PhaseWeakRefs
	// PhaseSweeping is incremental reclamation of white objects.
	PhaseSweeping
)

// String returns a human-readable version of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRootScan:
		return "rootscan"
	case PhaseMarking:
		return "marking"
	case PhaseWeakRefs:
		return "weakrefs"
	case PhaseSweeping:
		return "sweeping"
	default:
		return "!err"
	}
}

// Kind is an opaque object kind tag supplied by the host at allocation and
// handed back to the host's trace dispatch. The collector never interprets
// it.
type Kind uint8

// Owner is an opaque token identifying the heap/context that allocated an
// object. It is stored in the object header with the mark color packed into
// its spare alignment bits, and is exposed again only for diagnostics.
type Owner uintptr

// OwnerToken derives an owner token from a word-aligned host structure.
func OwnerToken(p unsafe.Pointer) Owner {
	if gcAsserts && uintptr(p)&uintptr(tagword.TagMask) != 0 {
		panic("gc: owner token is not word-aligned")
	}
	return Owner(uintptr(p))
}

const (
	wordSize = unsafe.Sizeof(uintptr(0))

	// kindBits is the number of bits stolen from the size word for the kind
	// tag.
	kindBits = 8
	kindMask = 1<<kindBits - 1

	// maxPayloadSize is the largest payload the size word can describe once
	// the kind bits are taken out.
	maxPayloadSize = ^uintptr(0) >> kindBits
)

// MaxAlign is the strongest alignment an allocation can request. The payload
// always starts on a word boundary; requests beyond that are rejected with
// ErrAlignment.
const MaxAlign = unsafe.Alignof(uintptr(0))

// header is the per-object metadata block.
type header struct {
	// owner packs the owner token with the current color in its low bits.
	owner tagword.Word

	// meta packs the payload size with the kind tag (see packMeta).
	meta uintptr

	// next links the all-objects list. It is used only for sweep traversal,
	// never for reachability.
	next *header

	// payload points at the first payload word and keeps the backing array
	// reachable for the host allocator.
	payload unsafe.Pointer
}

func packOwner(o Owner, c Color) tagword.Word {
	return tagword.Pack(uintptr(o), uint8(c))
}

func packMeta(size uintptr, kind Kind) uintptr {
	if gcAsserts && size > maxPayloadSize {
		panic("gc: payload size does not fit in the header")
	}
	return size<<kindBits | uintptr(kind)
}

func (h *header) color() Color {
	return Color(h.owner.Tag())
}

func (h *header) setColor(c Color) {
	h.owner = h.owner.WithTag(uint8(c))
}

func (h *header) size() uintptr {
	return h.meta >> kindBits
}

func (h *header) kind() Kind {
	return Kind(h.meta & kindMask)
}

func (h *header) ownerToken() Owner {
	return Owner(h.owner.Value())
}

// totalSize is the allocated footprint of the object: the word-rounded
// payload plus the per-object bookkeeping overhead. It must round exactly
// like allocation does, or sweep accounting drifts.
func (h *header) totalSize() uintptr {
	words := (h.size() + wordSize - 1) / wordSize
	if words == 0 {
		words = 1
	}
	return headerOverhead + words*wordSize
}

// headerOverhead is the bookkeeping cost of one object: the header block plus
// the hidden back-pointer word in front of the payload.
const headerOverhead = unsafe.Sizeof(header{}) + wordSize

// headerOf maps a payload pointer back to its header using the back-pointer
// word written at allocation. The conversion of the stored address is only
// valid for an unswept object: until the sweeper unlinks it, the header is
// referenced by the heap's all-objects list and cannot have been freed.
// Callers must never pass the payload of a reclaimed object.
func headerOf(p unsafe.Pointer) *header {
	back := *(*uintptr)(unsafe.Add(p, -int(wordSize)))
	h := (*header)(unsafe.Pointer(back))
	if gcAsserts && h.payload != p {
		panic("gc: header back-pointer does not match payload")
	}
	return h
}
