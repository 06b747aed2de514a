package send

import (
	"fmt"
	"strings"

	"github.com/dshills/hookmap/internal/input"
)

type opKind uint8

const (
	opPress opKind = iota
	opRelease
	opClick
)

// Op is one step of a raw sequence.
type Op struct {
	Button input.Button
	kind   opKind
}

// Press presses b.
func Press(b input.Button) Op { return Op{Button: b, kind: opPress} }

// Release releases b.
func Release(b input.Button) Op { return Op{Button: b, kind: opRelease} }

// Click presses and releases b.
func Click(b input.Button) Op { return Op{Button: b, kind: opClick} }

func (o Op) String() string {
	switch o.kind {
	case opPress:
		return "+" + o.Button.String()
	case opRelease:
		return "-" + o.Button.String()
	default:
		return o.Button.String()
	}
}

func (o Op) appendTo(evs []input.ButtonEvent) []input.ButtonEvent {
	switch o.kind {
	case opPress:
		return append(evs, input.NewPress(o.Button))
	case opRelease:
		return append(evs, input.NewRelease(o.Button))
	default:
		return append(evs, input.NewPress(o.Button), input.NewRelease(o.Button))
	}
}

// Sequence is an ordered list of synthetic button transitions, optionally
// wrapped in held modifiers. The zero Sequence is empty.
type Sequence struct {
	with []input.Button
	ops  []Op
}

// Raw sends ops verbatim.
func Raw(ops ...Op) Sequence {
	return Sequence{ops: append([]Op(nil), ops...)}
}

// With starts a sequence whose body is wrapped in mods: each is pressed in
// order before the body and released in reverse order after it.
func With(mods ...input.Button) Sequence {
	return Sequence{with: append([]input.Button(nil), mods...)}
}

// Then appends ops to the body.
func (s Sequence) Then(ops ...Op) Sequence {
	out := Sequence{
		with: s.with,
		ops:  make([]Op, 0, len(s.ops)+len(ops)),
	}
	out.ops = append(out.ops, s.ops...)
	out.ops = append(out.ops, ops...)
	return out
}

// Wrap clicks target while mods are held.
func Wrap(mods []input.Button, target input.Button) Sequence {
	return With(mods...).Then(Click(target))
}

// Chords clicks each chord's target with its modifiers held, one chord
// after another.
func Chords(chords ...input.Chord) Sequence {
	var ops []Op
	for _, c := range chords {
		for _, m := range c.Modifiers {
			ops = append(ops, Press(m))
		}
		ops = append(ops, Click(c.Target))
		for i := len(c.Modifiers) - 1; i >= 0; i-- {
			ops = append(ops, Release(c.Modifiers[i]))
		}
	}
	return Sequence{ops: ops}
}

// Parse builds a sequence from a chord list such as "Ctrl+C Ctrl+V".
func Parse(spec string) (Sequence, error) {
	chords, err := input.ParseSequence(spec)
	if err != nil {
		return Sequence{}, fmt.Errorf("parse sequence: %w", err)
	}
	return Chords(chords...), nil
}

// Events expands the sequence into button events.
func (s Sequence) Events() []input.ButtonEvent {
	evs := make([]input.ButtonEvent, 0, 2*len(s.with)+2*len(s.ops))
	for _, m := range s.with {
		evs = append(evs, input.NewPress(m))
	}
	for _, op := range s.ops {
		evs = op.appendTo(evs)
	}
	for i := len(s.with) - 1; i >= 0; i-- {
		evs = append(evs, input.NewRelease(s.with[i]))
	}
	return evs
}

// Empty reports whether the sequence emits nothing.
func (s Sequence) Empty() bool {
	return len(s.with) == 0 && len(s.ops) == 0
}

// String returns e.g. "[LCtrl] A +B -B".
func (s Sequence) String() string {
	var parts []string
	if len(s.with) > 0 {
		mods := make([]string, len(s.with))
		for i, m := range s.with {
			mods[i] = m.String()
		}
		parts = append(parts, "["+strings.Join(mods, " ")+"]")
	}
	for _, op := range s.ops {
		parts = append(parts, op.String())
	}
	return strings.Join(parts, " ")
}
