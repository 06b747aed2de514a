//go:build linux

package evdevhook

import (
	evdev "github.com/holoplot/go-evdev"

	"github.com/dshills/hookmap/internal/input"
)

var buttonCodes = map[input.Button]evdev.EvCode{
	input.LeftButton:   evdev.BTN_LEFT,
	input.RightButton:  evdev.BTN_RIGHT,
	input.MiddleButton: evdev.BTN_MIDDLE,
	input.SideButton1:  evdev.BTN_SIDE,
	input.SideButton2:  evdev.BTN_EXTRA,

	input.Grave:     evdev.KEY_GRAVE,
	input.Key1:      evdev.KEY_1,
	input.Key2:      evdev.KEY_2,
	input.Key3:      evdev.KEY_3,
	input.Key4:      evdev.KEY_4,
	input.Key5:      evdev.KEY_5,
	input.Key6:      evdev.KEY_6,
	input.Key7:      evdev.KEY_7,
	input.Key8:      evdev.KEY_8,
	input.Key9:      evdev.KEY_9,
	input.Key0:      evdev.KEY_0,
	input.Minus:     evdev.KEY_MINUS,
	input.Equal:     evdev.KEY_EQUAL,
	input.Backspace: evdev.KEY_BACKSPACE,

	input.A: evdev.KEY_A,
	input.B: evdev.KEY_B,
	input.C: evdev.KEY_C,
	input.D: evdev.KEY_D,
	input.E: evdev.KEY_E,
	input.F: evdev.KEY_F,
	input.G: evdev.KEY_G,
	input.H: evdev.KEY_H,
	input.I: evdev.KEY_I,
	input.J: evdev.KEY_J,
	input.K: evdev.KEY_K,
	input.L: evdev.KEY_L,
	input.M: evdev.KEY_M,
	input.N: evdev.KEY_N,
	input.O: evdev.KEY_O,
	input.P: evdev.KEY_P,
	input.Q: evdev.KEY_Q,
	input.R: evdev.KEY_R,
	input.S: evdev.KEY_S,
	input.T: evdev.KEY_T,
	input.U: evdev.KEY_U,
	input.V: evdev.KEY_V,
	input.W: evdev.KEY_W,
	input.X: evdev.KEY_X,
	input.Y: evdev.KEY_Y,
	input.Z: evdev.KEY_Z,

	input.Tab:          evdev.KEY_TAB,
	input.OpenBracket:  evdev.KEY_LEFTBRACE,
	input.CloseBracket: evdev.KEY_RIGHTBRACE,
	input.Backslash:    evdev.KEY_BACKSLASH,
	input.CapsLock:     evdev.KEY_CAPSLOCK,
	input.Semicolon:    evdev.KEY_SEMICOLON,
	input.Quote:        evdev.KEY_APOSTROPHE,
	input.Enter:        evdev.KEY_ENTER,
	input.Comma:        evdev.KEY_COMMA,
	input.Dot:          evdev.KEY_DOT,
	input.Slash:        evdev.KEY_SLASH,
	input.Space:        evdev.KEY_SPACE,

	input.LShift:      evdev.KEY_LEFTSHIFT,
	input.RShift:      evdev.KEY_RIGHTSHIFT,
	input.LCtrl:       evdev.KEY_LEFTCTRL,
	input.RCtrl:       evdev.KEY_RIGHTCTRL,
	input.LAlt:        evdev.KEY_LEFTALT,
	input.RAlt:        evdev.KEY_RIGHTALT,
	input.LSuper:      evdev.KEY_LEFTMETA,
	input.RSuper:      evdev.KEY_RIGHTMETA,
	input.Application: evdev.KEY_COMPOSE,

	input.Esc:         evdev.KEY_ESC,
	input.Insert:      evdev.KEY_INSERT,
	input.Delete:      evdev.KEY_DELETE,
	input.Home:        evdev.KEY_HOME,
	input.End:         evdev.KEY_END,
	input.PageUp:      evdev.KEY_PAGEUP,
	input.PageDown:    evdev.KEY_PAGEDOWN,
	input.LeftArrow:   evdev.KEY_LEFT,
	input.RightArrow:  evdev.KEY_RIGHT,
	input.UpArrow:     evdev.KEY_UP,
	input.DownArrow:   evdev.KEY_DOWN,
	input.PrintScreen: evdev.KEY_SYSRQ,
	input.ScrollLock:  evdev.KEY_SCROLLLOCK,
	input.Pause:       evdev.KEY_PAUSE,

	input.NumLock:        evdev.KEY_NUMLOCK,
	input.Numpad0:        evdev.KEY_KP0,
	input.Numpad1:        evdev.KEY_KP1,
	input.Numpad2:        evdev.KEY_KP2,
	input.Numpad3:        evdev.KEY_KP3,
	input.Numpad4:        evdev.KEY_KP4,
	input.Numpad5:        evdev.KEY_KP5,
	input.Numpad6:        evdev.KEY_KP6,
	input.Numpad7:        evdev.KEY_KP7,
	input.Numpad8:        evdev.KEY_KP8,
	input.Numpad9:        evdev.KEY_KP9,
	input.NumpadDot:      evdev.KEY_KPDOT,
	input.NumpadSlash:    evdev.KEY_KPSLASH,
	input.NumpadAsterisk: evdev.KEY_KPASTERISK,
	input.NumpadMinus:    evdev.KEY_KPMINUS,
	input.NumpadPlus:     evdev.KEY_KPPLUS,
	input.NumpadEnter:    evdev.KEY_KPENTER,

	input.F1:  evdev.KEY_F1,
	input.F2:  evdev.KEY_F2,
	input.F3:  evdev.KEY_F3,
	input.F4:  evdev.KEY_F4,
	input.F5:  evdev.KEY_F5,
	input.F6:  evdev.KEY_F6,
	input.F7:  evdev.KEY_F7,
	input.F8:  evdev.KEY_F8,
	input.F9:  evdev.KEY_F9,
	input.F10: evdev.KEY_F10,
	input.F11: evdev.KEY_F11,
	input.F12: evdev.KEY_F12,
	input.F13: evdev.KEY_F13,
	input.F14: evdev.KEY_F14,
	input.F15: evdev.KEY_F15,
	input.F16: evdev.KEY_F16,
	input.F17: evdev.KEY_F17,
	input.F18: evdev.KEY_F18,
	input.F19: evdev.KEY_F19,
	input.F20: evdev.KEY_F20,
	input.F21: evdev.KEY_F21,
	input.F22: evdev.KEY_F22,
	input.F23: evdev.KEY_F23,
	input.F24: evdev.KEY_F24,
}

var codeButtons = func() map[evdev.EvCode]input.Button {
	m := make(map[evdev.EvCode]input.Button, len(buttonCodes))
	for b, c := range buttonCodes {
		m[c] = b
	}
	return m
}()

// decode converts a raw evdev event. ok is false for events with no input
// equivalent, which are passed through untouched.
func decode(e *evdev.InputEvent) (ev input.Event, ok bool) {
	switch e.Type {
	case evdev.EV_KEY:
		b, found := codeButtons[e.Code]
		if !found {
			return nil, false
		}
		// 0 release, 1 press, 2 autorepeat
		if e.Value == 0 {
			return input.NewRelease(b), true
		}
		return input.NewPress(b), true
	case evdev.EV_REL:
		switch e.Code {
		case evdev.REL_X:
			return input.CursorEvent{DX: e.Value}, true
		case evdev.REL_Y:
			return input.CursorEvent{DY: e.Value}, true
		case evdev.REL_WHEEL:
			return input.WheelEvent{Delta: e.Value}, true
		}
	}
	return nil, false
}

// encode converts an event to the raw events that reproduce it, without
// the trailing SYN_REPORT.
func encode(ev input.Event) ([]evdev.InputEvent, error) {
	switch e := ev.(type) {
	case input.ButtonEvent:
		code, ok := buttonCodes[e.Target.Physical()]
		if !ok {
			return nil, errUnmapped(e.Target)
		}
		var v int32
		if e.Action == input.Press {
			v = 1
		}
		return []evdev.InputEvent{{Type: evdev.EV_KEY, Code: code, Value: v}}, nil
	case input.CursorEvent:
		var out []evdev.InputEvent
		if e.DX != 0 {
			out = append(out, evdev.InputEvent{Type: evdev.EV_REL, Code: evdev.REL_X, Value: e.DX})
		}
		if e.DY != 0 {
			out = append(out, evdev.InputEvent{Type: evdev.EV_REL, Code: evdev.REL_Y, Value: e.DY})
		}
		return out, nil
	case input.WheelEvent:
		return []evdev.InputEvent{{Type: evdev.EV_REL, Code: evdev.REL_WHEEL, Value: e.Delta}}, nil
	}
	return nil, errUnmapped(ev)
}

// capabilities lists everything the uinput device can emit.
func capabilities() map[evdev.EvType][]evdev.EvCode {
	keys := make([]evdev.EvCode, 0, len(buttonCodes))
	for _, c := range buttonCodes {
		keys = append(keys, c)
	}
	return map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: keys,
		evdev.EV_REL: {evdev.REL_X, evdev.REL_Y, evdev.REL_WHEEL, evdev.REL_HWHEEL},
	}
}
