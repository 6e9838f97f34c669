package gc

import (
	"fmt"

	"github.com/inhies/go-bytesize"
)

// Stats is a snapshot of heap statistics.
type Stats struct {
	// BytesAllocated is the storage currently allocated, headers included.
	BytesAllocated uintptr
	// NumObjects is the number of live allocations.
	NumObjects int

	// TotalAllocBytes and TotalAllocs count over the heap's lifetime.
	TotalAllocBytes uint64
	TotalAllocs     uint64

	// LastReclaimedObjects and LastReclaimedBytes describe the most recent
	// (or in-progress) cycle.
	LastReclaimedObjects int
	LastReclaimedBytes   uintptr

	// Cycles is the number of completed collection cycles.
	Cycles uint64

	// Phase is the collection phase at snapshot time.
	Phase Phase

	// GrayPending is the number of queued but untraced objects.
	GrayPending int
}

// ReadStats populates s. It does not trigger a collection.
func (h *Heap) ReadStats(s *Stats) {
	s.BytesAllocated = h.bytesAllocated
	s.NumObjects = h.numObjects
	s.TotalAllocBytes = h.totalAllocBytes
	s.TotalAllocs = h.totalAllocs
	s.LastReclaimedObjects = h.reclaimedObjects
	s.LastReclaimedBytes = h.reclaimedBytes
	s.Cycles = h.cycles
	s.Phase = h.phase
	s.GrayPending = h.gray.len()
}

// String formats the snapshot on one line.
func (s Stats) String() string {
	return fmt.Sprintf("live %d objects / %s, total %d allocs / %s, last cycle freed %d / %s, %d cycles, phase %s",
		s.NumObjects, bytesize.New(float64(s.BytesAllocated)),
		s.TotalAllocs, bytesize.New(float64(s.TotalAllocBytes)),
		s.LastReclaimedObjects, bytesize.New(float64(s.LastReclaimedBytes)),
		s.Cycles, s.Phase)
}

// ObjectInfo describes one heap object for inspection tools.
type ObjectInfo struct {
	// Addr is the payload address; object identity for display purposes.
	Addr  uintptr
	Kind  Kind
	Size  uintptr
	Color Color
	// Owner is the numeric owner token, exposed for diagnostics only.
	Owner Owner
}

// ForEachObject calls fn for every object on the heap, newest first, until
// fn returns false. The heap must not be mutated during the walk.
func (h *Heap) ForEachObject(fn func(ObjectInfo) bool) {
	for hdr := h.allObjects; hdr != nil; hdr = hdr.next {
		info := ObjectInfo{
			Addr:  uintptr(hdr.payload),
			Kind:  hdr.kind(),
			Size:  hdr.size(),
			Color: hdr.color(),
			Owner: hdr.ownerToken(),
		}
		if !fn(info) {
			return
		}
	}
}
