// Package hotkey defines hotkey rules and the registry that stores them.
//
// A Rule pairs a structural filter (event class, target predicate, action
// kind) with a modifier Condition, a Handler and a native event policy.
// The Registry keeps rules in registration order and hands out stable
// RuleID handles:
//
//	reg := hotkey.NewRegistry()
//	id := reg.Register(hotkey.Rule{
//	    Condition: state.All(state.Pressed(input.LCtrl)),
//	    Target:    hotkey.Exact(input.Space),
//	    Action:    hotkey.OnPress,
//	    Handler:   h,
//	    Policy:    input.Block,
//	})
//	defer reg.Unregister(id)
//
// Registration and removal may happen on any goroutine while the hook
// goroutine performs lookups; see Registry for the consistency guarantee.
package hotkey
