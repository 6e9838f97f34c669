package gc

import "testing"

func TestRootScopeLIFO(t *testing.T) {
	var table RootTable
	h := NewHeap(Profile{})
	ctx := &testContext{}

	outer := table.OpenScope()
	a := Root(outer, ctx.alloc(t, h))

	inner := table.OpenScope()
	Root(inner, ctx.alloc(t, h))
	Root(inner, ctx.alloc(t, h))
	if table.Depth() != 3 {
		t.Fatalf("Depth = %d, want 3", table.Depth())
	}

	inner.Close()
	if table.Depth() != 1 {
		t.Fatalf("Depth = %d after inner close, want 1", table.Depth())
	}
	if a.Ptr().IsNil() {
		t.Error("outer handle lost its reference")
	}

	outer.Close()
	if table.Depth() != 0 {
		t.Errorf("Depth = %d after outer close, want 0", table.Depth())
	}
}

func TestRootScopeReleasesOnEveryPath(t *testing.T) {
	var table RootTable
	h := NewHeap(Profile{})
	ctx := &testContext{}

	// The deferred Close releases the scope on early return too.
	fail := func() error {
		scope := table.OpenScope()
		defer scope.Close()
		Root(scope, ctx.alloc(t, h))
		return ErrOutOfMemory
	}
	if err := fail(); err == nil {
		t.Fatal("helper did not fail")
	}
	if table.Depth() != 0 {
		t.Errorf("Depth = %d after early return, want 0", table.Depth())
	}
}

func TestRootedHandleSurvivesCollection(t *testing.T) {
	h := NewHeap(Profile{})
	ctx := &testContext{}

	scope := ctx.roots.OpenScope()
	defer scope.Close()

	p := ctx.alloc(t, h)
	p.Get().val = 11
	hd := Root(scope, p)

	h.Collect(ctx)
	if h.NumObjects() != 1 {
		t.Fatalf("NumObjects = %d, want 1", h.NumObjects())
	}
	if hd.Ptr().Get().val != 11 {
		t.Errorf("val = %d through handle after collect", hd.Ptr().Get().val)
	}
}

func TestHandleSet(t *testing.T) {
	h := NewHeap(Profile{})
	ctx := &testContext{}

	scope := ctx.roots.OpenScope()
	defer scope.Close()

	old := ctx.alloc(t, h)
	hd := Root(scope, old)
	repl := ctx.alloc(t, h)
	repl.Get().val = 3
	hd.Set(repl)

	// The old referent is no longer rooted.
	if n := h.Collect(ctx); n != 1 {
		t.Errorf("reclaimed %d, want 1", n)
	}
	if hd.Ptr().Get().val != 3 {
		t.Errorf("handle does not see the replacement")
	}
}

func TestRootingDuringMarking(t *testing.T) {
	h := NewHeap(Profile{MarkStep: 1})
	ctx := &testContext{}
	ctx.roots.Bind(h)

	scope := ctx.roots.OpenScope()
	defer scope.Close()

	p := ctx.alloc(t, h)
	h.StartGC(ctx)

	// The table was empty at root scan; a bound table grays the reference
	// itself, otherwise the sweep would lose it.
	Root(scope, p)
	if n := h.FinishGC(ctx); n != 0 {
		t.Errorf("reclaimed %d, want 0: reference rooted mid-cycle was lost", n)
	}
	if h.NumObjects() != 1 {
		t.Errorf("NumObjects = %d, want 1", h.NumObjects())
	}
}

func TestHandleSetDuringMarking(t *testing.T) {
	h := NewHeap(Profile{MarkStep: 1})
	ctx := &testContext{}
	ctx.roots.Bind(h)

	scope := ctx.roots.OpenScope()
	defer scope.Close()

	a := ctx.alloc(t, h)
	b := ctx.alloc(t, h)
	hd := Root(scope, a)

	h.StartGC(ctx)
	h.Step(ctx) // a traced black, b still white

	// The slot is not rescanned, so Set on a bound table must gray the
	// replacement.
	hd.Set(b)
	if n := h.FinishGC(ctx); n != 0 {
		t.Errorf("reclaimed %d, want 0: replacement root was lost", n)
	}
	if h.NumObjects() != 2 {
		t.Errorf("NumObjects = %d, want 2", h.NumObjects())
	}
}

func TestRootScopeMisuse(t *testing.T) {
	t.Run("double close", func(t *testing.T) {
		var table RootTable
		scope := table.OpenScope()
		scope.Close()
		defer func() {
			if recover() == nil {
				t.Error("second Close did not panic")
			}
		}()
		scope.Close()
	})

	t.Run("out of order close", func(t *testing.T) {
		var table RootTable
		outer := table.OpenScope()
		inner := table.OpenScope()
		defer func() {
			if recover() == nil {
				t.Error("out-of-order Close did not panic")
			}
			inner.Close()
			outer.Close()
		}()
		outer.Close()
	})

	t.Run("root in closed scope", func(t *testing.T) {
		var table RootTable
		scope := table.OpenScope()
		scope.Close()
		defer func() {
			if recover() == nil {
				t.Error("rooting in a closed scope did not panic")
			}
		}()
		scope.RootRaw(nil)
	})
}
