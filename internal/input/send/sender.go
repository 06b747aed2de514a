package send

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/hookmap/internal/input"
)

// ErrUnsupported is returned by injectors that cannot emit input.
var ErrUnsupported = errors.New("input injection not supported")

// Injector emits events as hardware-equivalent input. Inject must be
// synchronous and preserve order.
type Injector interface {
	Inject(ev input.Event) error
}

// InjectorFunc adapts a function to the Injector interface.
type InjectorFunc func(ev input.Event) error

// Inject calls f(ev).
func (f InjectorFunc) Inject(ev input.Event) error { return f(ev) }

// Echoer is implemented by injectors whose output comes back through the
// native hook. The Sender does not feed such events back itself, except
// when injection fails.
type Echoer interface {
	Echoes() bool
}

// Loopback is the dispatcher that owns the synthetic tag.
// *hook.Dispatcher implements it.
type Loopback interface {
	Tag() input.Tag
	Handle(ev input.Event) input.Decision
}

// ModifierState reports the physical modifiers currently held.
// *state.Tracker implements it.
type ModifierState interface {
	PressedModifiers() []input.Button
}

// InjectionError reports that the native layer rejected an event.
// Events before Index were delivered; the rejected event has still been
// recorded as attempted; events after it were not sent.
type InjectionError struct {
	Index int
	Event input.Event
	Err   error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("inject event %d (%v): %v", e.Index, e.Event, e.Err)
}

func (e *InjectionError) Unwrap() error {
	return e.Err
}

// Sender emits tagged synthetic input. Sends are serialized: no two
// sequences from the same Sender interleave.
type Sender struct {
	mu     sync.Mutex
	inj    Injector
	loop   Loopback
	echoes bool
	mods   ModifierState
	logger *slog.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithModifierState sets the source of held modifiers used by
// SendIgnoringModifiers.
func WithModifierState(st ModifierState) Option {
	return func(s *Sender) {
		s.mods = st
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sender) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a sender that injects through inj and records each event in
// loop.
func New(inj Injector, loop Loopback, opts ...Option) *Sender {
	s := &Sender{
		inj:    inj,
		loop:   loop,
		logger: slog.Default(),
	}
	if e, ok := inj.(Echoer); ok {
		s.echoes = e.Echoes()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send emits seq. On failure it stops at the rejected event and returns an
// *InjectionError; nothing is retried.
func (s *Sender) Send(seq Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emit(buttonEvents(seq.Events()))
}

// SendIgnoringModifiers releases every held modifier, emits seq, then
// presses the modifiers again, so the target application sees seq without
// the user's modifiers applied.
func (s *Sender) SendIgnoringModifiers(seq Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var held []input.Button
	if s.mods != nil {
		held = s.mods.PressedModifiers()
	}

	evs := make([]input.Event, 0, 2*len(held)+len(seq.Events()))
	for _, m := range held {
		evs = append(evs, input.NewRelease(m))
	}
	evs = append(evs, buttonEvents(seq.Events())...)
	for _, m := range held {
		evs = append(evs, input.NewPress(m))
	}
	return s.emit(evs)
}

// Move emits a relative cursor movement.
func (s *Sender) Move(dx, dy int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emit([]input.Event{input.CursorEvent{DX: dx, DY: dy}})
}

// Rotate emits a wheel rotation. Positive deltas scroll up.
func (s *Sender) Rotate(delta int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emit([]input.Event{input.WheelEvent{Delta: delta}})
}

// Click is shorthand for Send(Raw(Click(b))).
func (s *Sender) Click(b input.Button) error {
	return s.Send(Raw(Click(b)))
}

// emit tags, injects and records each event in order. Caller holds s.mu.
func (s *Sender) emit(evs []input.Event) error {
	tag := s.loop.Tag()
	for i, ev := range evs {
		ev = ev.WithTag(tag)
		if err := s.inj.Inject(ev); err != nil {
			s.loop.Handle(ev)
			s.logger.Warn("[send] injection failed", "index", i, "event", ev, "error", err)
			return &InjectionError{Index: i, Event: ev, Err: err}
		}
		if !s.echoes {
			s.loop.Handle(ev)
		}
	}
	return nil
}

func buttonEvents(in []input.ButtonEvent) []input.Event {
	out := make([]input.Event, len(in))
	for i, ev := range in {
		out[i] = ev
	}
	return out
}
