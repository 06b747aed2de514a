package hotkey

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/state"
)

// Handler reacts to a matched event. A returned error is reported to the
// dispatcher's error sink; it never stops other handlers from running.
type Handler interface {
	Handle(ctx context.Context, ev input.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev input.Event) error

// Handle calls f(ctx, ev).
func (f HandlerFunc) Handle(ctx context.Context, ev input.Event) error {
	return f(ctx, ev)
}

// TargetKind selects the variant held by a Target.
type TargetKind uint8

const (
	// TargetAny accepts every button.
	TargetAny TargetKind = iota
	// TargetExact accepts one button.
	TargetExact
	// TargetSet accepts any button in a set.
	TargetSet
)

// Target restricts which event targets a rule considers.
// The zero value accepts any button.
type Target struct {
	kind    TargetKind
	button  input.Button
	buttons []input.Button
}

// Exact accepts events targeting b. A logical modifier also accepts both of
// its physical sides.
func Exact(b input.Button) Target {
	return Target{kind: TargetExact, button: b}
}

// Set accepts events targeting any of bs.
func Set(bs ...input.Button) Target {
	cp := make([]input.Button, len(bs))
	copy(cp, bs)
	return Target{kind: TargetSet, buttons: cp}
}

// Any accepts every button.
func Any() Target {
	return Target{kind: TargetAny}
}

// Kind returns the variant.
func (t Target) Kind() TargetKind { return t.kind }

// Accepts reports whether an event targeting b passes the predicate.
func (t Target) Accepts(b input.Button) bool {
	switch t.kind {
	case TargetExact:
		return t.button.Covers(b)
	case TargetSet:
		for _, candidate := range t.buttons {
			if candidate.Covers(b) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// String returns a readable form such as "A", "{A B}" or "*".
func (t Target) String() string {
	switch t.kind {
	case TargetExact:
		return t.button.String()
	case TargetSet:
		names := make([]string, len(t.buttons))
		for i, b := range t.buttons {
			names[i] = b.String()
		}
		return "{" + strings.Join(names, " ") + "}"
	default:
		return "*"
	}
}

// ActionKind selects which button actions a rule reacts to.
type ActionKind uint8

const (
	// OnPress reacts to presses only.
	OnPress ActionKind = iota
	// OnRelease reacts to releases only.
	OnRelease
	// OnBoth reacts to presses and releases.
	OnBoth
	// OnReleaseAlone reacts to a release when no other button was pressed
	// while the button was held, such as a tap of Space used as Shift.
	OnReleaseAlone
)

// Accepts reports whether a matches the kind. OnReleaseAlone accepts
// releases here; AcceptsEvent also checks that the release was alone.
func (k ActionKind) Accepts(a input.Action) bool {
	switch k {
	case OnPress:
		return a == input.Press
	case OnRelease, OnReleaseAlone:
		return a == input.Release
	default:
		return true
	}
}

// AcceptsEvent reports whether ev matches the kind.
func (k ActionKind) AcceptsEvent(ev input.ButtonEvent) bool {
	if k == OnReleaseAlone {
		return ev.Action == input.Release && ev.Alone
	}
	return k.Accepts(ev.Action)
}

// String returns "press", "release", "both" or "release_alone".
func (k ActionKind) String() string {
	switch k {
	case OnRelease:
		return "release"
	case OnBoth:
		return "both"
	case OnReleaseAlone:
		return "release_alone"
	default:
		return "press"
	}
}

// ParseActionKind parses "press", "release", "both" or "release_alone".
// Empty means press.
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "press", "down":
		return OnPress, nil
	case "release", "up":
		return OnRelease, nil
	case "both":
		return OnBoth, nil
	case "release_alone", "release-alone", "alone":
		return OnReleaseAlone, nil
	}
	return OnPress, fmt.Errorf("unknown action kind %q", s)
}

// Mode selects where a rule's handler runs.
type Mode uint8

const (
	// Inline runs the handler on the hook goroutine before the decision is
	// returned. Inline handlers must be short.
	Inline Mode = iota
	// Async hands the handler to the worker pool; the decision is returned
	// without waiting for it.
	Async
)

// String returns "inline" or "async".
func (m Mode) String() string {
	if m == Async {
		return "async"
	}
	return "inline"
}

// Rule is a modifier-conditioned reaction to events.
type Rule struct {
	// Name labels the rule in logs and errors. Optional.
	Name string

	// Source is the event class the rule reacts to. Target and Action only
	// apply to button rules.
	Source input.EventKind

	Condition state.Condition
	Target    Target
	Action    ActionKind
	Handler   Handler

	// Policy is the native decision requested when the rule matches.
	Policy input.Decision

	Mode Mode
}

// Accepts is the structural filter used by the registry: event class,
// target predicate and action kind. Modifier conditions are not checked.
func (r *Rule) Accepts(ev input.Event) bool {
	if ev.Kind() != r.Source {
		return false
	}
	be, ok := ev.(input.ButtonEvent)
	if !ok {
		return true
	}
	return r.Target.Accepts(be.Target) && r.Action.AcceptsEvent(be)
}

// String describes the rule for logs.
func (r *Rule) String() string {
	var b strings.Builder
	if r.Name != "" {
		b.WriteString(r.Name)
		b.WriteString(": ")
	}
	if len(r.Condition) > 0 {
		b.WriteString("[")
		b.WriteString(r.Condition.String())
		b.WriteString("] ")
	}
	switch r.Source {
	case input.ButtonKind:
		fmt.Fprintf(&b, "%s on %s", r.Target, r.Action)
	default:
		b.WriteString(r.Source.String())
	}
	fmt.Fprintf(&b, " -> %s", r.Policy)
	return b.String()
}
