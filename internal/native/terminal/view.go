package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/hookmap/internal/input"
)

type entry struct {
	text      string
	decision  input.Decision
	synthetic bool
}

// view is a ring of recent events drawn newest first.
type view struct {
	entries []entry
	next    int
	full    bool
}

func newView(n int) *view {
	return &view{entries: make([]entry, n)}
}

func (v *view) record(ev input.Event, d input.Decision) {
	v.entries[v.next] = entry{
		text:      fmt.Sprint(ev),
		decision:  d,
		synthetic: ev.SyntheticTag().Synthetic(),
	}
	v.next = (v.next + 1) % len(v.entries)
	if v.next == 0 {
		v.full = true
	}
}

// recent returns up to n entries, newest first.
func (v *view) recent(n int) []entry {
	size := v.next
	if v.full {
		size = len(v.entries)
	}
	n = min(n, size)
	out := make([]entry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, v.entries[(v.next-i+len(v.entries))%len(v.entries)])
	}
	return out
}

var (
	headerStyle    = tcell.StyleDefault.Bold(true)
	blockStyle     = tcell.StyleDefault.Foreground(tcell.ColorRed)
	syntheticStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

func (v *view) draw(s tcell.Screen, quittable bool) {
	s.Clear()
	header := "hookmap terminal backend"
	if quittable {
		header += " (Ctrl+Q quits)"
	}
	drawText(s, 0, 0, headerStyle, header)

	_, h := s.Size()
	for i, e := range v.recent(max(h-2, 0)) {
		style := tcell.StyleDefault
		marker := " "
		switch {
		case e.synthetic:
			style = syntheticStyle
			marker = "*"
		case e.decision == input.Block:
			style = blockStyle
		}
		drawText(s, 0, i+2, style, fmt.Sprintf("%s %-24s %s", marker, e.text, e.decision))
	}
	s.Show()
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
