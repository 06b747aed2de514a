package hotkey

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/state"
)

// RuleID uniquely identifies a registered rule.
type RuleID uint64

// Entry is a registered rule together with its handle.
// Entries are immutable once published.
type Entry struct {
	ID   RuleID
	Rule Rule
}

// Registry holds the ordered set of rules.
//
// Mutations are serialized by a mutex and publish a fresh snapshot;
// lookups load the current snapshot without locking. A lookup therefore sees
// either all or none of a mutation, and a rule removed before a lookup
// starts is never returned by it.
type Registry struct {
	mu     sync.Mutex
	nextID RuleID
	snap   atomic.Pointer[[]*Entry]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := make([]*Entry, 0)
	r.snap.Store(&empty)
	return r
}

func (r *Registry) load() []*Entry {
	return *r.snap.Load()
}

// Register appends rule and returns its handle.
func (r *Registry) Register(rule Rule) RuleID {
	return r.RegisterAll([]Rule{rule})[0]
}

// RegisterAll appends rules in order as a single mutation.
func (r *Registry) RegisterAll(rules []Rule) []RuleID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaceLocked(nil, rules)
}

// Unregister removes the rule with the given id.
// Unknown or already removed ids are ignored.
func (r *Registry) Unregister(id RuleID) {
	r.UnregisterAll([]RuleID{id})
}

// UnregisterAll removes every listed rule as a single mutation.
func (r *Registry) UnregisterAll(ids []RuleID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceLocked(ids, nil)
}

// Replace removes old and appends rules as a single mutation, so no lookup
// observes the registry with neither or both generations present.
func (r *Registry) Replace(old []RuleID, rules []Rule) []RuleID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaceLocked(old, rules)
}

// replaceLocked builds and publishes the next snapshot.
// Caller must hold r.mu.
func (r *Registry) replaceLocked(remove []RuleID, add []Rule) []RuleID {
	cur := r.load()

	drop := make(map[RuleID]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}

	next := make([]*Entry, 0, len(cur)+len(add))
	for _, e := range cur {
		if _, ok := drop[e.ID]; !ok {
			next = append(next, e)
		}
	}

	ids := make([]RuleID, len(add))
	for i, rule := range add {
		r.nextID++
		ids[i] = r.nextID
		rule.Condition = append(state.Condition(nil), rule.Condition...)
		next = append(next, &Entry{ID: r.nextID, Rule: rule})
	}

	if len(drop) == 0 && len(add) == 0 {
		return ids
	}
	r.snap.Store(&next)
	return ids
}

// Clear removes every rule.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	empty := make([]*Entry, 0)
	r.snap.Store(&empty)
}

// RulesFor returns, in registration order, the rules whose event class,
// target predicate and action kind accept ev.
func (r *Registry) RulesFor(ev input.Event) []*Entry {
	var out []*Entry
	for _, e := range r.load() {
		if e.Rule.Accepts(ev) {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the entry for id.
func (r *Registry) Get(id RuleID) (*Entry, bool) {
	for _, e := range r.load() {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Rules returns the current snapshot in registration order.
// The returned slice must not be modified.
func (r *Registry) Rules() []*Entry {
	return r.load()
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.load())
}
