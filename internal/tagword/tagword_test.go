package tagword

import "testing"

func TestPackRoundTrip(t *testing.T) {
	for tag := uint8(0); Word(tag) <= TagMask; tag++ {
		w := Pack(0x1000, tag)
		if w.Tag() != tag {
			t.Errorf("tag %d: got %d", tag, w.Tag())
		}
		if w.Value() != 0x1000 {
			t.Errorf("tag %d: value changed to %#x", tag, w.Value())
		}
	}
}

func TestWithTag(t *testing.T) {
	w := Pack(0xbeef00, 1)
	w = w.WithTag(2)
	if w.Tag() != 2 {
		t.Errorf("got tag %d, want 2", w.Tag())
	}
	if w.Value() != 0xbeef00 {
		t.Errorf("value changed to %#x", w.Value())
	}
}

func TestZeroWord(t *testing.T) {
	var w Word
	if w.Tag() != 0 || w.Value() != 0 {
		t.Errorf("zero word is not empty: tag=%d value=%#x", w.Tag(), w.Value())
	}
}
