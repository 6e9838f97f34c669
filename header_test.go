package gc

import (
	"testing"
	"unsafe"
)

func TestHeaderPacking(t *testing.T) {
	h := NewHeap(Profile{})
	ctx := &testContext{}

	raw, err := h.AllocateRaw(ctx, 9, 1, kindNode)
	if err != nil {
		t.Fatalf("AllocateRaw: %v", err)
	}
	hdr := headerOf(raw)
	if hdr.size() != 9 {
		t.Errorf("size = %d, want 9", hdr.size())
	}
	if hdr.kind() != kindNode {
		t.Errorf("kind = %d, want %d", hdr.kind(), kindNode)
	}
	if hdr.color() != White {
		t.Errorf("color = %v, want white", hdr.color())
	}
	if hdr.ownerToken() != ctx.Owner() {
		t.Errorf("owner = %#x, want %#x", hdr.ownerToken(), ctx.Owner())
	}

	// Odd payload sizes are word-rounded both at allocation and reclaim.
	words := (uintptr(9) + wordSize - 1) / wordSize
	if hdr.totalSize() != headerOverhead+words*wordSize {
		t.Errorf("totalSize = %d, want %d", hdr.totalSize(), headerOverhead+words*wordSize)
	}
	if h.BytesAllocated() != hdr.totalSize() {
		t.Errorf("BytesAllocated = %d, totalSize = %d", h.BytesAllocated(), hdr.totalSize())
	}
	if n := h.Collect(ctx); n != 1 {
		t.Fatalf("reclaimed %d, want 1", n)
	}
	if h.BytesAllocated() != 0 {
		t.Errorf("BytesAllocated = %d after reclaim, want 0", h.BytesAllocated())
	}
}

func TestColorRoundTrip(t *testing.T) {
	hdr := &header{owner: packOwner(0, White)}
	for _, c := range []Color{White, Gray, Black, White} {
		hdr.setColor(c)
		if hdr.color() != c {
			t.Errorf("color = %v after setColor(%v)", hdr.color(), c)
		}
	}
}

func TestColorDoesNotClobberOwner(t *testing.T) {
	var anchor uint64
	tok := OwnerToken(unsafe.Pointer(&anchor))
	hdr := &header{owner: packOwner(tok, White)}
	hdr.setColor(Black)
	if hdr.ownerToken() != tok {
		t.Errorf("owner = %#x after recolor, want %#x", hdr.ownerToken(), tok)
	}
}

func TestPhaseAndColorStrings(t *testing.T) {
	for _, c := range []Color{White, Gray, Black} {
		if c.String() == "" || c.String() == "!err" {
			t.Errorf("Color(%d).String() = %q", c, c.String())
		}
	}
	for _, p := range []Phase{PhaseIdle, PhaseRootScan, PhaseMarking, PhaseWeakRefs, PhaseSweeping} {
		if p.String() == "" || p.String() == "!err" {
			t.Errorf("Phase(%d).String() = %q", p, p.String())
		}
	}
}
