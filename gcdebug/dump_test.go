package gcdebug

import (
	"strings"
	"testing"

	"github.com/mirin-js/gc"
	"github.com/mirin-js/gc/vm"
)

func populate(t *testing.T, n int) *vm.Runtime {
	t.Helper()
	r := vm.New(gc.Profile{})
	for i := 0; i < n; i++ {
		obj, err := r.NewObject(gc.Ptr[vm.Object]{})
		if err != nil {
			t.Fatalf("NewObject: %v", err)
		}
		vm.AddGlobal(r, obj)
	}
	return r
}

func TestDumpHeap(t *testing.T) {
	r := populate(t, 3)

	var buf strings.Builder
	opts := Options{KindName: vm.KindName, NoColor: true}
	if err := DumpHeap(&buf, r.Heap, opts); err != nil {
		t.Fatalf("DumpHeap: %v", err)
	}
	out := buf.String()

	if got := strings.Count(out, "object"); got < 3 {
		t.Errorf("dump shows %d object rows, want 3:\n%s", got, out)
	}
	if !strings.Contains(out, "white") {
		t.Errorf("dump missing mark colors:\n%s", out)
	}
	if !strings.Contains(out, "live 3 objects") {
		t.Errorf("dump missing summary line:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("NoColor output contains ANSI escapes")
	}
}

func TestDumpHeapMax(t *testing.T) {
	r := populate(t, 5)

	var buf strings.Builder
	if err := DumpHeap(&buf, r.Heap, Options{NoColor: true, Max: 2}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "...") {
		t.Errorf("truncated dump missing ellipsis:\n%s", out)
	}
	// 2 rows, the ellipsis and the summary.
	if got := len(strings.Split(strings.TrimSpace(out), "\n")); got != 4 {
		t.Errorf("dump has %d lines, want 4:\n%s", got, out)
	}

	// Without NoColor the rows carry escapes.
	buf.Reset()
	if err := DumpHeap(&buf, r.Heap, Options{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("colorized output has no ANSI escapes")
	}
}
