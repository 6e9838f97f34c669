package gc

import "testing"

func TestPtrZeroValue(t *testing.T) {
	var p Ptr[node]
	if !p.IsNil() {
		t.Error("zero Ptr is not nil")
	}
	if p.Raw() != nil {
		t.Error("Raw of nil Ptr is not nil")
	}
	defer func() {
		if recover() == nil {
			t.Error("Get on nil Ptr did not panic")
		}
	}()
	p.Get()
}

func TestPtrIdentity(t *testing.T) {
	h := NewHeap(Profile{})
	ctx := &testContext{}

	a := ctx.alloc(t, h)
	b := ctx.alloc(t, h)
	if !a.Equal(a) {
		t.Error("Ptr not equal to itself")
	}
	if a.Equal(b) {
		t.Error("distinct objects compare equal")
	}
	if !FromRaw[node](a.Raw()).Equal(a) {
		t.Error("FromRaw(Raw()) lost identity")
	}
}

func TestPtrCast(t *testing.T) {
	h := NewHeap(Profile{})
	ctx := &testContext{}

	p := ctx.alloc(t, h)
	p.Get().val = 9

	// A cast reinterprets the payload without moving it.
	q := Cast[node](Cast[struct{ a, b Ptr[node] }](p))
	if q.Raw() != p.Raw() {
		t.Error("Cast changed the payload address")
	}
	if q.Get().val != 9 {
		t.Error("payload not visible through the cast")
	}
}
