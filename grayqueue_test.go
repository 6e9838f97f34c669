package gc

import "testing"

func grayHeader() *header {
	h := &header{}
	h.setColor(Gray)
	return h
}

func TestGrayQueue(t *testing.T) {
	var q grayQueue
	if !q.empty() || q.len() != 0 {
		t.Fatal("zero queue is not empty")
	}
	if q.pop() != nil {
		t.Fatal("pop on empty queue did not return nil")
	}

	a, b, c := grayHeader(), grayHeader(), grayHeader()
	q.push(a)
	q.push(b)
	q.push(c)
	if q.len() != 3 {
		t.Fatalf("len = %d, want 3", q.len())
	}

	// LIFO.
	if q.pop() != c || q.pop() != b || q.pop() != a {
		t.Error("pop order is not LIFO")
	}
	if !q.empty() {
		t.Error("queue not empty after draining")
	}
}

func TestGrayQueueClear(t *testing.T) {
	var q grayQueue
	q.push(grayHeader())
	q.push(grayHeader())
	q.clear()
	if !q.empty() {
		t.Error("queue not empty after clear")
	}
	if q.pop() != nil {
		t.Error("pop after clear did not return nil")
	}
}

func TestGrayQueuePushAssertsColor(t *testing.T) {
	if !gcAsserts {
		t.Skip("asserts disabled")
	}
	var q grayQueue
	h := &header{} // white
	defer func() {
		if recover() == nil {
			t.Error("pushing a white object did not panic")
		}
	}()
	q.push(h)
}
