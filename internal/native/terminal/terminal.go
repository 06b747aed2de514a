// Package terminal is a hook backend that reads input from a terminal
// through tcell. It needs no privileges, so it doubles as a playground for
// trying rules and as the backend used in tests.
//
// A terminal only reports key presses, so every key event is expanded into
// the modifier presses, a press and release of the key, and the modifier
// releases. Decisions cannot suppress anything outside the terminal; they
// are shown in the monitor view instead.
package terminal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hook"
)

// DefaultHistory is the number of events kept in the monitor view.
const DefaultHistory = 64

// Terminal implements hook.Native and send.Injector on a tcell screen.
type Terminal struct {
	screen tcell.Screen
	logger *slog.Logger
	quit   func()
	view   *view

	// Mouse state, owned by the Run goroutine.
	buttons tcell.ButtonMask
	x, y    int
	seenPos bool
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithQuit makes Ctrl+Q call fn instead of being delivered as input.
func WithQuit(fn func()) Option {
	return func(t *Terminal) {
		t.quit = fn
	}
}

// WithHistory sets how many events the monitor view keeps.
func WithHistory(n int) Option {
	return func(t *Terminal) {
		if n > 0 {
			t.view = newView(n)
		}
	}
}

// New creates a terminal backend on the process's controlling terminal.
func New(opts ...Option) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	return NewWithScreen(screen, opts...), nil
}

// NewWithScreen creates a terminal backend on an existing screen, such as
// a tcell simulation screen.
func NewWithScreen(screen tcell.Screen, opts ...Option) *Terminal {
	t := &Terminal{
		screen: screen,
		logger: slog.Default(),
		view:   newView(DefaultHistory),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run implements hook.Native. The screen is initialised on entry and
// restored when ctx is cancelled.
func (t *Terminal) Run(ctx context.Context, cb hook.Callback, ready func()) error {
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer t.screen.Fini()

	t.screen.EnableMouse()
	t.screen.HideCursor()
	t.view.draw(t.screen, t.quit != nil)
	ready()

	stop := context.AfterFunc(ctx, func() {
		_ = t.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return nil
		}

		switch e := ev.(type) {
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *syntheticEvent:
			t.deliver(cb, e.ev)
		case *tcell.EventKey:
			if e.Key() == tcell.KeyCtrlQ && t.quit != nil {
				t.logger.Info("[terminal] quit requested")
				t.quit()
				continue
			}
			t.handleKey(cb, e)
		case *tcell.EventMouse:
			t.handleMouse(cb, e)
		case *tcell.EventResize:
			t.screen.Sync()
		}
		t.view.draw(t.screen, t.quit != nil)
	}
}

// Inject implements send.Injector. The event is queued behind pending
// terminal input and delivered to the hook callback like real input.
func (t *Terminal) Inject(ev input.Event) error {
	se := &syntheticEvent{ev: ev}
	se.SetEventNow()
	if err := t.screen.PostEvent(se); err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	return nil
}

// Echoes implements send.Echoer: injected events come back through Run.
func (t *Terminal) Echoes() bool { return true }

// syntheticEvent carries an injected event through the tcell queue.
type syntheticEvent struct {
	tcell.EventTime
	ev input.Event
}

func (t *Terminal) deliver(cb hook.Callback, ev input.Event) input.Decision {
	d := hook.Decide(cb, ev)
	t.view.record(ev, d)
	return d
}

func (t *Terminal) handleKey(cb hook.Callback, e *tcell.EventKey) {
	mods, target, ok := keyChord(e)
	if !ok {
		t.logger.Debug("[terminal] unmapped key", "key", e.Name())
		return
	}

	for _, m := range mods {
		t.deliver(cb, input.NewPress(m))
	}
	t.deliver(cb, input.NewPress(target))
	t.deliver(cb, input.NewRelease(target))
	for i := len(mods) - 1; i >= 0; i-- {
		t.deliver(cb, input.NewRelease(mods[i]))
	}
}

func (t *Terminal) handleMouse(cb hook.Callback, e *tcell.EventMouse) {
	x, y := e.Position()
	if t.seenPos && (x != t.x || y != t.y) {
		t.deliver(cb, input.CursorEvent{DX: int32(x - t.x), DY: int32(y - t.y)})
	}
	t.x, t.y, t.seenPos = x, y, true

	btn := e.Buttons()
	for _, mb := range mouseButtons {
		was, is := t.buttons&mb.mask != 0, btn&mb.mask != 0
		switch {
		case is && !was:
			t.deliver(cb, input.NewPress(mb.button))
			t.buttons |= mb.mask
		case was && !is:
			t.deliver(cb, input.NewRelease(mb.button))
			t.buttons &^= mb.mask
		}
	}

	if btn&tcell.WheelUp != 0 {
		t.deliver(cb, input.WheelEvent{Delta: 1})
	}
	if btn&tcell.WheelDown != 0 {
		t.deliver(cb, input.WheelEvent{Delta: -1})
	}
}
