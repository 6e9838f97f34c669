package gc

import (
	"strings"
	"testing"
)

func TestProfileDefaults(t *testing.T) {
	p := Profile{}.withDefaults()
	if p.MarkStep != defaultMarkStep {
		t.Errorf("MarkStep = %d, want %d", p.MarkStep, defaultMarkStep)
	}
	if p.SweepStep != defaultSweepStep {
		t.Errorf("SweepStep = %d, want %d", p.SweepStep, defaultSweepStep)
	}
	if p.Threshold != defaultThreshold {
		t.Errorf("Threshold = %d, want %d", p.Threshold, defaultThreshold)
	}
	if p.HeapLimit != 0 {
		t.Errorf("HeapLimit = %d, want 0 (unlimited)", p.HeapLimit)
	}

	// Explicit values are kept.
	p = Profile{MarkStep: 7, Threshold: 42}.withDefaults()
	if p.MarkStep != 7 || p.Threshold != 42 {
		t.Error("withDefaults overwrote explicit values")
	}
	if d := DefaultProfile(); d != (Profile{}.withDefaults()) {
		t.Error("DefaultProfile disagrees with withDefaults")
	}
}

func TestLoadProfile(t *testing.T) {
	const doc = `
mark-step: 50
sweep-step: 200
threshold: 4MB
heap-limit: 65536
stress: true
`
	p, err := LoadProfile(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.MarkStep != 50 || p.SweepStep != 200 {
		t.Errorf("steps = %d/%d, want 50/200", p.MarkStep, p.SweepStep)
	}
	if p.Threshold != 4<<20 {
		t.Errorf("Threshold = %d, want %d", p.Threshold, 4<<20)
	}
	if p.HeapLimit != 65536 {
		t.Errorf("HeapLimit = %d, want 65536", p.HeapLimit)
	}
	if !p.Stress {
		t.Error("Stress not set")
	}
}

func TestLoadProfileErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown key", "mark-step: 1\nbogus-knob: 3\n"},
		{"bad size", "threshold: 4 parsecs\n"},
		{"negative step", "mark-step: -1\n"},
		{"not yaml", "{{{\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadProfile(strings.NewReader(tc.doc)); err == nil {
				t.Errorf("LoadProfile(%q) succeeded", tc.doc)
			}
		})
	}
}

func TestSizeString(t *testing.T) {
	if got := Size(2 << 20).String(); !strings.Contains(got, "2") {
		t.Errorf("Size.String() = %q", got)
	}
}
