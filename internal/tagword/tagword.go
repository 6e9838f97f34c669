// Package tagword packs a small tag into the spare low bits of a
// pointer-aligned word.
//
// Heap object headers store the owning context token and the mark color in a
// single word. The token is the address of a word-aligned structure, so its
// low bits are always zero and can carry the color.
package tagword

// Word is a pointer-sized value with TagBits low bits stolen for a tag.
type Word uintptr

const (
	// TagBits is the number of low bits available for the tag. A word-aligned
	// pointer has at least 2 spare low bits on every supported architecture.
	TagBits = 2

	// TagMask extracts the tag from a Word.
	TagMask Word = 1<<TagBits - 1
)

const asserts = false

// Pack combines a word-aligned value with a tag.
func Pack(value uintptr, tag uint8) Word {
	if asserts && value&uintptr(TagMask) != 0 {
		panic("tagword: value is not aligned")
	}
	if asserts && Word(tag) > TagMask {
		panic("tagword: tag does not fit")
	}
	return Word(value) | Word(tag)
}

// Tag returns the tag stored in the low bits.
func (w Word) Tag() uint8 {
	return uint8(w & TagMask)
}

// Value returns the word with the tag bits cleared.
func (w Word) Value() uintptr {
	return uintptr(w &^ TagMask)
}

// WithTag returns a copy of w carrying a new tag.
func (w Word) WithTag(tag uint8) Word {
	if asserts && Word(tag) > TagMask {
		panic("tagword: tag does not fit")
	}
	return w&^TagMask | Word(tag)
}
