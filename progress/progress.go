// Package progress - begrenzte Fortschrittsanzeige
//
// Dieses Paket enthaelt:
// - Bar: Fortschrittsbalken fuer Terminals (golang.org/x/term)
// - Dots: Punkte-Ausgabe, wenn kein Terminal angeschlossen ist
// - Nop: stille Anzeige
//
// Die Anzeige ist rein beobachtend, sie beeinflusst nie den Ablauf.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Indicator reports progress towards a known total.
type Indicator interface {
	Add(n int)
	Close()
}

// New picks an indicator for w: a bar when w is a terminal, dots otherwise.
// With disabled set it returns Nop.
func New(w io.Writer, label string, total int, disabled bool) Indicator {
	if disabled || total <= 0 {
		return Nop{}
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil || width <= 0 {
			width = 80
		}
		return NewBar(w, label, total, width)
	}
	return NewDots(w, label, total)
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Add(int) {}
func (Nop) Close()  {}

// =============================================================================
// Bar
// =============================================================================

type Bar struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	total   int
	current int
	width   int
	closed  bool
}

func NewBar(w io.Writer, label string, total, width int) *Bar {
	b := &Bar{w: w, label: label, total: total, width: width}
	b.render()
	return b
}

func (b *Bar) Add(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.current = min(b.current+n, b.total)
	b.render()
}

func (b *Bar) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	fmt.Fprintln(b.w)
}

// String renders the bar without a carriage return.
func (b *Bar) String() string {
	counter := fmt.Sprintf(" %d/%d", b.current, b.total)
	label := b.label
	// label, space, brackets and counter must fit; keep at least 10 cells of bar
	maxLabel := b.width - runewidth.StringWidth(counter) - 3 - 10
	if maxLabel < 0 {
		maxLabel = 0
	}
	if runewidth.StringWidth(label) > maxLabel {
		label = runewidth.Truncate(label, maxLabel, "…")
	}

	cells := b.width - runewidth.StringWidth(label) - runewidth.StringWidth(counter) - 3
	if cells < 1 {
		cells = 1
	}
	filled := cells * b.current / b.total

	var sb strings.Builder
	sb.WriteString(label)
	sb.WriteString(" [")
	sb.WriteString(strings.Repeat("=", filled))
	sb.WriteString(strings.Repeat(" ", cells-filled))
	sb.WriteString("]")
	sb.WriteString(counter)
	return sb.String()
}

func (b *Bar) render() {
	fmt.Fprint(b.w, "\r"+b.String())
}

// =============================================================================
// Dots
// =============================================================================

// Dots prints one dot per tenth of the total.
type Dots struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	current int
	printed int
	closed  bool
}

func NewDots(w io.Writer, label string, total int) *Dots {
	fmt.Fprint(w, label, " ")
	return &Dots{w: w, total: total}
}

func (d *Dots) Add(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.current = min(d.current+n, d.total)
	for want := d.current * 10 / d.total; d.printed < want; d.printed++ {
		fmt.Fprint(d.w, ".")
	}
}

func (d *Dots) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	fmt.Fprintln(d.w, " done")
}
