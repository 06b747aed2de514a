// Package match selects the rules that fire for an event.
package match

import (
	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/input/state"
)

// StateReader evaluates modifier conditions. *state.Tracker implements it.
type StateReader interface {
	Evaluate(c state.Condition) bool
}

// Result is the outcome of matching one event.
type Result struct {
	// Rules holds the matched rules in registration order.
	Rules []*hotkey.Entry

	// Decision is Block if any matched rule blocks.
	Decision input.Decision
}

// Matched reports whether any rule matched.
func (r Result) Matched() bool {
	return len(r.Rules) > 0
}

// Engine matches events against a registry.
type Engine struct {
	registry *hotkey.Registry
}

// NewEngine creates an engine reading from registry.
func NewEngine(registry *hotkey.Registry) *Engine {
	return &Engine{registry: registry}
}

// Match returns every rule that accepts ev and whose condition holds in st.
//
// The caller must apply ev's own transition to the state only after Match
// returns, so conditions see the state from before the event.
func (e *Engine) Match(ev input.Event, st StateReader) Result {
	var res Result
	for _, entry := range e.registry.RulesFor(ev) {
		if !st.Evaluate(entry.Rule.Condition) {
			continue
		}
		res.Rules = append(res.Rules, entry)
		if entry.Rule.Policy == input.Block {
			res.Decision = input.Block
		}
	}
	return res
}
