//go:build darwin

package machook

import (
	"context"
	"errors"
	"log/slog"

	gohook "github.com/robotn/gohook"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hook"
	"github.com/dshills/hookmap/internal/input/send"
)

// ErrHookDisabled is returned when the event tap stops or never starts,
// which usually means the Accessibility permission is missing.
var ErrHookDisabled = errors.New("event hook disabled")

// keyNames maps gohook key names to buttons. Names gohook does not know
// on this system are skipped when the lookup table is built.
var keyNames = map[string]input.Button{
	"`": input.Grave, "1": input.Key1, "2": input.Key2, "3": input.Key3,
	"4": input.Key4, "5": input.Key5, "6": input.Key6, "7": input.Key7,
	"8": input.Key8, "9": input.Key9, "0": input.Key0, "-": input.Minus,
	"=": input.Equal, "delete": input.Backspace,
	"a": input.A, "b": input.B, "c": input.C, "d": input.D, "e": input.E,
	"f": input.F, "g": input.G, "h": input.H, "i": input.I, "j": input.J,
	"k": input.K, "l": input.L, "m": input.M, "n": input.N, "o": input.O,
	"p": input.P, "q": input.Q, "r": input.R, "s": input.S, "t": input.T,
	"u": input.U, "v": input.V, "w": input.W, "x": input.X, "y": input.Y,
	"z": input.Z,
	"tab": input.Tab, "[": input.OpenBracket, "]": input.CloseBracket,
	"\\": input.Backslash, "capslock": input.CapsLock, ";": input.Semicolon,
	"'": input.Quote, "enter": input.Enter, ",": input.Comma, ".": input.Dot,
	"/": input.Slash, "space": input.Space,
	"shift": input.LShift, "rshift": input.RShift,
	"ctrl": input.LCtrl, "rctrl": input.RCtrl,
	"alt": input.LAlt, "ralt": input.RAlt,
	"cmd": input.LSuper, "rcmd": input.RSuper,
	"esc": input.Esc, "insert": input.Insert, "del": input.Delete,
	"home": input.Home, "end": input.End,
	"pageup": input.PageUp, "pagedown": input.PageDown,
	"left": input.LeftArrow, "right": input.RightArrow,
	"up": input.UpArrow, "down": input.DownArrow,
	"f1": input.F1, "f2": input.F2, "f3": input.F3, "f4": input.F4,
	"f5": input.F5, "f6": input.F6, "f7": input.F7, "f8": input.F8,
	"f9": input.F9, "f10": input.F10, "f11": input.F11, "f12": input.F12,
	"f13": input.F13, "f14": input.F14, "f15": input.F15, "f16": input.F16,
	"f17": input.F17, "f18": input.F18, "f19": input.F19, "f20": input.F20,
	"f21": input.F21, "f22": input.F22, "f23": input.F23, "f24": input.F24,
}

var keycodeButtons = func() map[uint16]input.Button {
	m := make(map[uint16]input.Button, len(keyNames))
	for name, b := range keyNames {
		if code, ok := gohook.Keycode[name]; ok {
			m[code] = b
		}
	}
	return m
}()

var mouseButtons = map[uint16]input.Button{
	1: input.LeftButton,
	2: input.RightButton,
	3: input.MiddleButton,
	4: input.SideButton1,
	5: input.SideButton2,
}

// Backend implements hook.Native and send.Injector on gohook.
type Backend struct {
	logger *slog.Logger

	x, y    int16
	seenPos bool
}

// New creates a macOS hook backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{logger: logger}
}

// Run implements hook.Native.
func (b *Backend) Run(ctx context.Context, cb hook.Callback, ready func()) error {
	ch := gohook.Start()
	defer gohook.End()

	for enabled := false; !enabled; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return ErrHookDisabled
			}
			enabled = ev.Kind == gohook.HookEnabled
		}
	}
	b.logger.Warn("[machook] observe-only backend: blocking and sending are unavailable")
	ready()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok || ev.Kind == gohook.HookDisabled {
				return ErrHookDisabled
			}
			if in, ok := b.convert(ev); ok {
				hook.Decide(cb, in)
			}
		}
	}
}

func (b *Backend) convert(ev gohook.Event) (input.Event, bool) {
	switch ev.Kind {
	case gohook.KeyHold, gohook.KeyUp:
		btn, ok := keycodeButtons[ev.Keycode]
		if !ok {
			return nil, false
		}
		if ev.Kind == gohook.KeyUp {
			return input.NewRelease(btn), true
		}
		return input.NewPress(btn), true
	case gohook.MouseHold, gohook.MouseUp:
		btn, ok := mouseButtons[ev.Button]
		if !ok {
			return nil, false
		}
		if ev.Kind == gohook.MouseUp {
			return input.NewRelease(btn), true
		}
		return input.NewPress(btn), true
	case gohook.MouseMove, gohook.MouseDrag:
		dx, dy := int32(ev.X-b.x), int32(ev.Y-b.y)
		first := !b.seenPos
		b.x, b.y, b.seenPos = ev.X, ev.Y, true
		if first || (dx == 0 && dy == 0) {
			return nil, false
		}
		return input.CursorEvent{DX: dx, DY: dy}, true
	case gohook.MouseWheel:
		// gohook reports scrolling down as positive rotation.
		return input.WheelEvent{Delta: -ev.Rotation}, true
	}
	return nil, false
}

// Inject implements send.Injector. gohook cannot generate input.
func (b *Backend) Inject(input.Event) error {
	return send.ErrUnsupported
}
