package gc

// grayQueue is the worklist of objects that were discovered reachable but
// have not had their outgoing references traced yet. It is owned and mutated
// exclusively by the Heap during a cycle.
//
// The zero value is an empty queue. LIFO order keeps recently discovered
// objects warm in cache; trace order is unspecified anyway because marking is
// a monotonic fixed point.
type grayQueue struct {
	items []*header
}

// push adds an object to the worklist.
func (q *grayQueue) push(h *header) {
	if gcAsserts && h.color() != Gray {
		panic("gc: pushing a non-gray object onto the gray queue")
	}
	q.items = append(q.items, h)
}

// pop removes and returns the most recently pushed object, or nil if the
// queue is empty.
func (q *grayQueue) pop() *header {
	n := len(q.items)
	if n == 0 {
		return nil
	}
	h := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	return h
}

// empty reports whether there is any marking work left.
func (q *grayQueue) empty() bool {
	return len(q.items) == 0
}

func (q *grayQueue) len() int {
	return len(q.items)
}

// clear drops all pending work. Only valid when abandoning state wholesale in
// tests; a live cycle must drain instead.
func (q *grayQueue) clear() {
	for i := range q.items {
		q.items[i] = nil
	}
	q.items = q.items[:0]
}
