// Package state tracks the pressed/released state of every button.
package state

import (
	"sync/atomic"

	"github.com/dshills/hookmap/internal/input"
)

// Tracker records whether each button is currently pressed.
//
// The hook goroutine is the only writer. Flags are atomics so that any
// other goroutine may query state without additional locking.
type Tracker struct {
	pressed [input.ButtonCount]atomic.Bool
}

// NewTracker returns a tracker with every button released.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Update applies the transition carried by ev. Applying the same event
// twice leaves the same state as applying it once.
func (t *Tracker) Update(ev input.ButtonEvent) {
	b := ev.Target.Physical()
	if !b.Valid() {
		return
	}
	t.pressed[b].Store(ev.Action == input.Press)
}

// IsPressed reports whether b is held. Unknown buttons are released.
// A logical modifier is pressed when either side is pressed.
func (t *Tracker) IsPressed(b input.Button) bool {
	if !b.Valid() {
		return false
	}
	left, right := b.Sides()
	return t.pressed[left].Load() || (right != left && t.pressed[right].Load())
}

// Evaluate reports whether every requirement in c holds.
// It stops at the first requirement that fails.
func (t *Tracker) Evaluate(c Condition) bool {
	for _, req := range c {
		if t.IsPressed(req.Button) != req.Pressed {
			return false
		}
	}
	return true
}

// Pressed returns the physical buttons currently held, in enumeration order.
func (t *Tracker) Pressed() []input.Button {
	var out []input.Button
	for b := input.LeftButton; b < input.Shift; b++ {
		if t.pressed[b].Load() {
			out = append(out, b)
		}
	}
	return out
}

// PressedModifiers returns the physical modifiers currently held.
func (t *Tracker) PressedModifiers() []input.Button {
	var out []input.Button
	for _, b := range input.PhysicalModifiers {
		if t.pressed[b].Load() {
			out = append(out, b)
		}
	}
	return out
}

// Reset releases every button.
func (t *Tracker) Reset() {
	for i := range t.pressed {
		t.pressed[i].Store(false)
	}
}
