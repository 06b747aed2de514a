// Package rule assembles hotkey rules with a fluent builder.
package rule

import (
	"context"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/input/send"
	"github.com/dshills/hookmap/internal/input/state"
)

// Builder accumulates the shared parts of one or more rules. Each terminal
// method registers a rule built from the current settings; the builder can
// be reused afterwards.
//
//	rule.New(reg).Hold(input.Ctrl).Block().OnPress(input.Space, h)
type Builder struct {
	reg  *hotkey.Registry
	rule hotkey.Rule
}

// New starts a builder that registers into reg.
func New(reg *hotkey.Registry) *Builder {
	return &Builder{reg: reg}
}

// Clone returns an independent copy of b.
func (b *Builder) Clone() *Builder {
	cp := *b
	cp.rule.Condition = append(state.Condition(nil), b.rule.Condition...)
	return &cp
}

// Named labels the rules in logs and errors.
func (b *Builder) Named(name string) *Builder {
	b.rule.Name = name
	return b
}

// When adds modifier requirements.
func (b *Builder) When(reqs ...state.Requirement) *Builder {
	for _, r := range reqs {
		b.rule.Condition = b.rule.Condition.With(r)
	}
	return b
}

// Hold requires mods to be pressed.
func (b *Builder) Hold(mods ...input.Button) *Builder {
	for _, m := range mods {
		b.When(state.Pressed(m))
	}
	return b
}

// Without requires mods to be released.
func (b *Builder) Without(mods ...input.Button) *Builder {
	for _, m := range mods {
		b.When(state.Released(m))
	}
	return b
}

// Block suppresses matched events.
func (b *Builder) Block() *Builder {
	b.rule.Policy = input.Block
	return b
}

// Dispatch forwards matched events. This is the default.
func (b *Builder) Dispatch() *Builder {
	b.rule.Policy = input.Dispatch
	return b
}

// Async runs handlers on the worker pool.
func (b *Builder) Async() *Builder {
	b.rule.Mode = hotkey.Async
	return b
}

// Build returns the rule for target and action without registering it.
func (b *Builder) Build(target hotkey.Target, action hotkey.ActionKind, h hotkey.Handler) hotkey.Rule {
	r := b.Clone().rule
	r.Source = input.ButtonKind
	r.Target = target
	r.Action = action
	r.Handler = h
	return r
}

// Register registers a button rule.
func (b *Builder) Register(target hotkey.Target, action hotkey.ActionKind, h hotkey.Handler) hotkey.RuleID {
	return b.reg.Register(b.Build(target, action, h))
}

// OnPress reacts to presses of target.
func (b *Builder) OnPress(target input.Button, h hotkey.Handler) hotkey.RuleID {
	return b.Register(hotkey.Exact(target), hotkey.OnPress, h)
}

// OnRelease reacts to releases of target.
func (b *Builder) OnRelease(target input.Button, h hotkey.Handler) hotkey.RuleID {
	return b.Register(hotkey.Exact(target), hotkey.OnRelease, h)
}

// OnBoth reacts to presses and releases of target.
func (b *Builder) OnBoth(target input.Button, h hotkey.Handler) hotkey.RuleID {
	return b.Register(hotkey.Exact(target), hotkey.OnBoth, h)
}

// OnReleaseAlone reacts to a release of target when nothing else was
// pressed while it was held.
func (b *Builder) OnReleaseAlone(target input.Button, h hotkey.Handler) hotkey.RuleID {
	return b.Register(hotkey.Exact(target), hotkey.OnReleaseAlone, h)
}

// OnWheel reacts to wheel rotation.
func (b *Builder) OnWheel(h hotkey.Handler) hotkey.RuleID {
	return b.reg.Register(b.BuildSource(input.WheelKind, h))
}

// OnCursor reacts to cursor movement.
func (b *Builder) OnCursor(h hotkey.Handler) hotkey.RuleID {
	return b.reg.Register(b.BuildSource(input.CursorKind, h))
}

// BuildSource returns a rule for every event of the given kind without
// registering it.
func (b *Builder) BuildSource(kind input.EventKind, h hotkey.Handler) hotkey.Rule {
	r := b.Clone().rule
	r.Source = kind
	r.Target = hotkey.Any()
	r.Handler = h
	return r
}

// Sender emits synthetic sequences. *send.Sender implements it.
type Sender interface {
	Send(seq send.Sequence) error
}

// Remap returns a rule that blocks from and emits to with the same action,
// so holding from holds to.
func Remap(from, to input.Button, s Sender) hotkey.Rule {
	return hotkey.Rule{
		Name:   from.String() + "->" + to.String(),
		Source: input.ButtonKind,
		Target: hotkey.Exact(from),
		Action: hotkey.OnBoth,
		Policy: input.Block,
		Handler: hotkey.HandlerFunc(func(_ context.Context, ev input.Event) error {
			be, ok := ev.(input.ButtonEvent)
			if !ok {
				return nil
			}
			if be.Action == input.Press {
				return s.Send(send.Raw(send.Press(to)))
			}
			return s.Send(send.Raw(send.Release(to)))
		}),
	}
}

// SendHandler returns a handler that emits seq.
func SendHandler(s Sender, seq send.Sequence) hotkey.Handler {
	return hotkey.HandlerFunc(func(context.Context, input.Event) error {
		return s.Send(seq)
	})
}

// Handlers combines handlers into one that runs each in order and stops
// at the first error.
func Handlers(hs ...hotkey.Handler) hotkey.Handler {
	return hotkey.HandlerFunc(func(ctx context.Context, ev input.Event) error {
		for _, h := range hs {
			if err := h.Handle(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	})
}
