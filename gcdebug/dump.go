// Package gcdebug renders heap state for debugging: a per-object map of the
// intrusive list with mark colors, and formatted statistics. Output is
// ANSI-colorized; use Stdout for a writer that renders correctly on every
// platform.
package gcdebug

import (
	"fmt"
	"io"

	"github.com/inhies/go-bytesize"
	"github.com/mattn/go-colorable"

	"github.com/mirin-js/gc"
)

const (
	ansiReset  = "\x1b[0m"
	ansiFaint  = "\x1b[2m"
	ansiYellow = "\x1b[33m"
	ansiGreen  = "\x1b[32m"
)

// Stdout returns a writer that renders ANSI colors on standard output,
// including on Windows consoles.
func Stdout() io.Writer {
	return colorable.NewColorableStdout()
}

// Options controls dump rendering.
type Options struct {
	// KindName maps kind tags to names; nil prints numeric tags.
	KindName func(gc.Kind) string

	// NoColor disables ANSI escapes.
	NoColor bool

	// Max limits the number of object rows; 0 means all.
	Max int
}

func (o Options) kindName(k gc.Kind) string {
	if o.KindName != nil {
		return o.KindName(k)
	}
	return fmt.Sprintf("kind%d", k)
}

func (o Options) colorize(c gc.Color, s string) string {
	if o.NoColor {
		return s
	}
	switch c {
	case gc.White:
		return ansiFaint + s + ansiReset
	case gc.Gray:
		return ansiYellow + s + ansiReset
	case gc.Black:
		return ansiGreen + s + ansiReset
	}
	return s
}

// DumpHeap writes one row per heap object, newest first, followed by a
// summary line. The heap must not be mutated during the dump.
func DumpHeap(w io.Writer, h *gc.Heap, opts Options) error {
	var err error
	rows := 0
	truncated := false
	h.ForEachObject(func(info gc.ObjectInfo) bool {
		if opts.Max > 0 && rows >= opts.Max {
			truncated = true
			return false
		}
		rows++
		line := fmt.Sprintf("%#012x %-8s %6s %s",
			info.Addr,
			opts.kindName(info.Kind),
			bytesize.New(float64(info.Size)),
			info.Color)
		_, err = fmt.Fprintln(w, opts.colorize(info.Color, line))
		return err == nil
	})
	if err != nil {
		return err
	}
	if truncated {
		if _, err = fmt.Fprintln(w, "..."); err != nil {
			return err
		}
	}
	var stats gc.Stats
	h.ReadStats(&stats)
	_, err = fmt.Fprintln(w, stats)
	return err
}

// DumpHeapStdout is DumpHeap on a colorized standard output.
func DumpHeapStdout(h *gc.Heap, opts Options) error {
	return DumpHeap(Stdout(), h, opts)
}
