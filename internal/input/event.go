package input

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Action is a binary button state transition.
type Action uint8

const (
	// Press is a down transition.
	Press Action = iota
	// Release is an up transition.
	Release
)

// String returns "press" or "release".
func (a Action) String() string {
	if a == Release {
		return "release"
	}
	return "press"
}

// Decision tells the native layer what to do with the original event.
type Decision uint8

const (
	// Dispatch forwards the event to the rest of the system.
	Dispatch Decision = iota
	// Block suppresses the event.
	Block
)

// String returns "dispatch" or "block".
func (d Decision) String() string {
	if d == Block {
		return "block"
	}
	return "dispatch"
}

// Tag marks events produced by a Sender. The zero Tag means the event came
// from hardware (or from a program that is not this one).
type Tag uint64

// NewTag returns a random non-zero tag.
func NewTag() Tag {
	id := uuid.New()
	t := Tag(binary.LittleEndian.Uint64(id[:8]))
	if t == 0 {
		t = Tag(binary.LittleEndian.Uint64(id[8:]) | 1)
	}
	return t
}

// Synthetic reports whether the tag is set.
func (t Tag) Synthetic() bool { return t != 0 }

// EventKind identifies which concrete type an Event holds.
type EventKind uint8

const (
	// ButtonKind is a ButtonEvent.
	ButtonKind EventKind = iota
	// CursorKind is a CursorEvent.
	CursorKind
	// WheelKind is a WheelEvent.
	WheelKind
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case CursorKind:
		return "cursor"
	case WheelKind:
		return "wheel"
	default:
		return "button"
	}
}

// Event is one of ButtonEvent, CursorEvent or WheelEvent.
type Event interface {
	// Kind returns which concrete event this is.
	Kind() EventKind
	// SyntheticTag returns the tag carried by the event.
	SyntheticTag() Tag
	// WithTag returns a copy of the event carrying t.
	WithTag(t Tag) Event

	sealed()
}

// ButtonEvent is a press or release of a key or mouse button.
type ButtonEvent struct {
	Target Button
	Action Action

	// Injected is set when the OS reports the event as generated by
	// software rather than a physical device.
	Injected bool

	// Alone is set by the dispatcher on the release of a real press that
	// no other real press followed.
	Alone bool

	Tag Tag
}

// CursorEvent is a relative mouse movement.
type CursorEvent struct {
	DX, DY   int32
	Injected bool
	Tag      Tag
}

// WheelEvent is a mouse wheel rotation. Positive deltas scroll up.
type WheelEvent struct {
	Delta    int32
	Injected bool
	Tag      Tag
}

// NewPress returns a press event for b.
func NewPress(b Button) ButtonEvent {
	return ButtonEvent{Target: b, Action: Press}
}

// NewRelease returns a release event for b.
func NewRelease(b Button) ButtonEvent {
	return ButtonEvent{Target: b, Action: Release}
}

// Kind implements Event.
func (ButtonEvent) Kind() EventKind { return ButtonKind }

// SyntheticTag implements Event.
func (e ButtonEvent) SyntheticTag() Tag { return e.Tag }

// WithTag implements Event.
func (e ButtonEvent) WithTag(t Tag) Event {
	e.Tag = t
	return e
}

func (ButtonEvent) sealed() {}

// Kind implements Event.
func (CursorEvent) Kind() EventKind { return CursorKind }

// SyntheticTag implements Event.
func (e CursorEvent) SyntheticTag() Tag { return e.Tag }

// WithTag implements Event.
func (e CursorEvent) WithTag(t Tag) Event {
	e.Tag = t
	return e
}

func (CursorEvent) sealed() {}

// Kind implements Event.
func (WheelEvent) Kind() EventKind { return WheelKind }

// SyntheticTag implements Event.
func (e WheelEvent) SyntheticTag() Tag { return e.Tag }

// WithTag implements Event.
func (e WheelEvent) WithTag(t Tag) Event {
	e.Tag = t
	return e
}

func (WheelEvent) sealed() {}

// String returns e.g. "press A".
func (e ButtonEvent) String() string {
	return fmt.Sprintf("%s %s", e.Action, e.Target)
}

// String returns e.g. "cursor (3,-1)".
func (e CursorEvent) String() string {
	return fmt.Sprintf("cursor (%d,%d)", e.DX, e.DY)
}

// String returns e.g. "wheel +1".
func (e WheelEvent) String() string {
	return fmt.Sprintf("wheel %+d", e.Delta)
}
