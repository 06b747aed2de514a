package state

import (
	"strings"

	"github.com/dshills/hookmap/internal/input"
)

// Requirement demands that Button be in the given state.
type Requirement struct {
	Button  input.Button
	Pressed bool
}

// String returns "+Ctrl" for a pressed requirement and "!Ctrl" for a
// released one.
func (r Requirement) String() string {
	if r.Pressed {
		return "+" + r.Button.String()
	}
	return "!" + r.Button.String()
}

// Pressed requires b to be held.
func Pressed(b input.Button) Requirement {
	return Requirement{Button: b, Pressed: true}
}

// Released requires b not to be held.
func Released(b input.Button) Requirement {
	return Requirement{Button: b, Pressed: false}
}

// Condition is a set of requirements that must all hold.
// The empty condition always holds.
type Condition []Requirement

// All builds a condition from reqs. A later requirement on the same button
// replaces an earlier one, so the result contains each button at most once.
func All(reqs ...Requirement) Condition {
	if len(reqs) == 0 {
		return nil
	}
	c := make(Condition, 0, len(reqs))
	for _, r := range reqs {
		c = c.With(r)
	}
	return c
}

// With returns a copy of c with r added, replacing any requirement on the
// same button.
func (c Condition) With(r Requirement) Condition {
	out := make(Condition, 0, len(c)+1)
	for _, existing := range c {
		if existing.Button != r.Button {
			out = append(out, existing)
		}
	}
	return append(out, r)
}

// Mentions reports whether the condition constrains b.
func (c Condition) Mentions(b input.Button) bool {
	for _, r := range c {
		if r.Button == b {
			return true
		}
	}
	return false
}

// String returns the requirements joined by spaces.
func (c Condition) String() string {
	parts := make([]string, len(c))
	for i, r := range c {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}
