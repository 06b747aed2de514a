// Package script runs hotkey handlers written in Lua.
//
// A State loads one script and exposes a "hookmap" module to it:
//
//	hookmap.send("Ctrl+C")        -- click chords
//	hookmap.press("LShift")       -- press and hold
//	hookmap.release("LShift")
//	hookmap.click("Enter")
//	hookmap.is_pressed("Ctrl")    -- query button state
//	hookmap.move(10, 0)           -- relative cursor motion
//	hookmap.rotate(-1)            -- wheel
//	hookmap.log("text")
//
// Handler functions receive an event table with fields kind, button,
// action, dx, dy and delta. Raising a Lua error fails the handler.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/input/send"
)

// DefaultTimeout bounds a single handler call.
const DefaultTimeout = 2 * time.Second

// Sender emits synthetic input. *send.Sender implements it.
type Sender interface {
	Send(seq send.Sequence) error
	Move(dx, dy int32) error
	Rotate(delta int32) error
}

// ButtonState answers button queries. *state.Tracker implements it.
type ButtonState interface {
	IsPressed(b input.Button) bool
}

// State wraps a gopher-lua state. gopher-lua is not goroutine-safe; every
// entry point takes the mutex, so handlers from the hook goroutine and the
// worker pool are serialized.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	closed  bool
	timeout time.Duration

	sender Sender
	state  ButtonState
	logger *slog.Logger
	name   string
}

// Option configures a State.
type Option func(*State)

// WithTimeout sets the per-call deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *State) {
		s.timeout = d
	}
}

// WithLogger sets the logger used by hookmap.log and for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithName labels the script in logs.
func WithName(name string) Option {
	return func(s *State) {
		s.name = name
	}
}

// NewState creates a state with only safe standard libraries and the
// hookmap module bound to sender and st.
func NewState(sender Sender, st ButtonState, opts ...Option) *State {
	s := &State{
		timeout: DefaultTimeout,
		sender:  sender,
		state:   st,
		logger:  slog.Default(),
		name:    "script",
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	s.L = L
	s.installModule()
	return s
}

// openSafeLibraries opens the base, table, string and math libraries.
// io, os, debug and package are left out.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// DoFile loads and runs a script file.
func (s *State) DoFile(path string) error {
	return s.do(func() error { return s.L.DoFile(path) })
}

// DoString runs Lua source.
func (s *State) DoString(code string) error {
	return s.do(func() error { return s.L.DoString(code) })
}

func (s *State) do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.doWithRecovery(fn)
}

func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// HasFunction reports whether the global name holds a function.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// Call invokes the global function fn with the event table for ev.
func (s *State) Call(ctx context.Context, fn string, ev input.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	fnVal := s.L.GetGlobal(fn)
	if fnVal.Type() != lua.LTFunction {
		return fmt.Errorf("%w: %q is %s", ErrNotFunction, fn, fnVal.Type())
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	return s.doWithRecovery(func() error {
		return s.L.CallByParam(lua.P{Fn: fnVal, NRet: 0, Protect: true}, eventTable(s.L, ev))
	})
}

// Handler returns a hotkey handler that calls the global function fn.
func (s *State) Handler(fn string) hotkey.Handler {
	return hotkey.HandlerFunc(func(ctx context.Context, ev input.Event) error {
		if err := s.Call(ctx, fn, ev); err != nil {
			return fmt.Errorf("%s.%s: %w", s.name, fn, err)
		}
		return nil
	})
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

func eventTable(L *lua.LState, ev input.Event) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("kind", lua.LString(ev.Kind().String()))
	switch e := ev.(type) {
	case input.ButtonEvent:
		t.RawSetString("button", lua.LString(e.Target.String()))
		t.RawSetString("action", lua.LString(e.Action.String()))
		t.RawSetString("injected", lua.LBool(e.Injected))
		t.RawSetString("alone", lua.LBool(e.Alone))
	case input.CursorEvent:
		t.RawSetString("dx", lua.LNumber(e.DX))
		t.RawSetString("dy", lua.LNumber(e.DY))
	case input.WheelEvent:
		t.RawSetString("delta", lua.LNumber(e.Delta))
	}
	return t
}
