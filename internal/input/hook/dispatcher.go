package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/dispatch"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/input/match"
	"github.com/dshills/hookmap/internal/input/state"
)

// Continuation lets the native adapter learn what to do with an event.
// Exactly one method is called, exactly once.
type Continuation interface {
	Dispatch()
	Block()
}

// Dispatcher is the entry point for every event arriving from the native
// hook. It owns the rule registry and the button state tracker.
//
// Real events must be delivered from a single goroutine. Synthetic events
// carrying the dispatcher's tag may arrive from any goroutine.
type Dispatcher struct {
	registry *hotkey.Registry
	tracker  *state.Tracker
	engine   *match.Engine
	tag      input.Tag

	inline *dispatch.SyncDispatcher
	pool   *dispatch.AsyncDispatcher

	ctx    context.Context
	logger *slog.Logger
	sink   ErrorSink

	broker broker
	closed atomic.Bool

	// Physical key state as reported by real events only, and the decision
	// taken for the press that started the hold. Used to drop auto-repeat.
	// Touched only by the real-event goroutine.
	held     [input.ButtonCount]bool
	heldWith [input.ButtonCount]input.Decision
	// Most recent real press. A release of the same held button is alone.
	lastPress input.Button
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithErrorSink sets the receiver of handler failures. Failures are logged
// whether or not a sink is set.
func WithErrorSink(sink ErrorSink) Option {
	return func(d *Dispatcher) {
		d.sink = sink
	}
}

// WithPool sets the worker pool used for Async rules. Without a pool,
// Async rules run inline.
func WithPool(pool *dispatch.AsyncDispatcher) Option {
	return func(d *Dispatcher) {
		d.pool = pool
	}
}

// WithInline sets the runner used for Inline rules.
func WithInline(inline *dispatch.SyncDispatcher) Option {
	return func(d *Dispatcher) {
		if inline != nil {
			d.inline = inline
		}
	}
}

// WithContext sets the context passed to handlers.
func WithContext(ctx context.Context) Option {
	return func(d *Dispatcher) {
		if ctx != nil {
			d.ctx = ctx
		}
	}
}

// WithTag fixes the synthetic tag instead of generating one.
func WithTag(tag input.Tag) Option {
	return func(d *Dispatcher) {
		if tag.Synthetic() {
			d.tag = tag
		}
	}
}

// New creates a dispatcher over registry and tracker.
func New(registry *hotkey.Registry, tracker *state.Tracker, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		tracker:  tracker,
		engine:   match.NewEngine(registry),
		tag:      input.NewTag(),
		inline:   dispatch.NewSyncDispatcher(),
		ctx:      context.Background(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the rule registry.
func (d *Dispatcher) Registry() *hotkey.Registry { return d.registry }

// Tracker returns the button state tracker.
func (d *Dispatcher) Tracker() *state.Tracker { return d.tracker }

// Tag returns the tag that marks this dispatcher's synthetic events.
func (d *Dispatcher) Tag() input.Tag { return d.tag }

// Serve handles ev and resolves k with the decision.
// It has the signature of a native Callback.
func (d *Dispatcher) Serve(ev input.Event, k Continuation) {
	if d.Handle(ev) == input.Block {
		k.Block()
		return
	}
	k.Dispatch()
}

// Handle processes one event and returns what the native layer should do
// with it.
//
// Events carrying the dispatcher's tag update button state and are always
// dispatched without matching. Other events are matched against the state
// from before the event, matched handlers run in registration order, and
// only then is the event's own transition recorded.
func (d *Dispatcher) Handle(ev input.Event) input.Decision {
	if ev.SyntheticTag() == d.tag {
		if be, ok := ev.(input.ButtonEvent); ok {
			d.tracker.Update(be)
		}
		return input.Dispatch
	}
	if d.closed.Load() {
		return input.Dispatch
	}

	be, ok := ev.(input.ButtonEvent)
	if !ok {
		res := d.engine.Match(ev, d.tracker)
		d.run(ev, res.Rules)
		return res.Decision
	}
	return d.handleButton(be)
}

func (d *Dispatcher) handleButton(ev input.ButtonEvent) input.Decision {
	b := ev.Target.Physical()
	if !b.Valid() {
		return input.Dispatch
	}

	if ev.Action == input.Press && d.held[b] {
		d.tracker.Update(ev)
		return d.heldWith[b]
	}
	switch ev.Action {
	case input.Press:
		d.lastPress = b
	case input.Release:
		ev.Alone = d.held[b] && d.lastPress == b
	}

	decision := d.broker.publish(ev)
	if decision == input.Dispatch {
		res := d.engine.Match(ev, d.tracker)
		d.run(ev, res.Rules)
		decision = res.Decision
	}

	d.tracker.Update(ev)
	d.held[b] = ev.Action == input.Press
	d.heldWith[b] = decision
	return decision
}

func (d *Dispatcher) run(ev input.Event, entries []*hotkey.Entry) {
	for _, e := range entries {
		if e.Rule.Handler == nil {
			continue
		}
		if e.Rule.Mode == hotkey.Async && d.pool != nil {
			d.offload(ev, e)
			continue
		}
		d.report(e, ev, d.inline.Dispatch(d.ctx, ev, e.Rule.Handler))
	}
}

func (d *Dispatcher) offload(ev input.Event, e *hotkey.Entry) {
	err := d.pool.Enqueue(d.ctx, ev, e.Rule.Handler, func(r dispatch.Result) {
		d.report(e, ev, r)
	})
	if err != nil {
		d.fail(&HandlerError{
			RuleID: e.ID,
			Rule:   e.Rule.Name,
			Event:  ev,
			Err:    fmt.Errorf("offload handler: %w", err),
		})
	}
}

func (d *Dispatcher) report(e *hotkey.Entry, ev input.Event, r dispatch.Result) {
	if r.IsSuccess() {
		return
	}
	d.fail(&HandlerError{
		RuleID: e.ID,
		Rule:   e.Rule.Name,
		Event:  ev,
		Err:    r.Err(),
		Panic:  r.PanicValue,
		Stack:  r.PanicStack,
	})
}

func (d *Dispatcher) fail(herr *HandlerError) {
	if herr.Panic != nil {
		d.logger.Error("[hook] handler panicked",
			"rule", herr.Rule, "id", herr.RuleID, "event", herr.Event, "panic", herr.Panic)
	} else {
		d.logger.Warn("[hook] handler failed",
			"rule", herr.Rule, "id", herr.RuleID, "event", herr.Event, "error", herr.Err)
	}
	if d.sink == nil {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("[hook] error sink panicked", "panic", r)
			}
		}()
		d.sink(herr)
	}()
}

// Start prepares the dispatcher for events and starts the worker pool.
func (d *Dispatcher) Start() error {
	if d.pool != nil && !d.pool.IsRunning() {
		if err := d.pool.Start(); err != nil && !errors.Is(err, dispatch.ErrAlreadyRunning) {
			return err
		}
	}
	d.broker.open()
	d.closed.Store(false)
	return nil
}

// reject stops matching new real events. Synthetic events still update
// state so in-flight handlers leave the tracker consistent.
func (d *Dispatcher) reject() {
	d.closed.Store(true)
}

// Close stops accepting events, wakes pending interceptors and waits for
// offloaded handlers to finish or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.reject()
	d.broker.close()
	if d.pool == nil {
		return nil
	}
	if err := d.pool.Stop(ctx); err != nil && !errors.Is(err, dispatch.ErrNotRunning) {
		return fmt.Errorf("drain handler pool: %w", err)
	}
	return nil
}

// Closed reports whether the dispatcher has stopped accepting events.
func (d *Dispatcher) Closed() bool {
	return d.closed.Load()
}
