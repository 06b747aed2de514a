package winhook

import "github.com/dshills/hookmap/internal/input"

// Virtual-key codes that need names outside the table.
const (
	vkReturn = 0x0D
)

// vkCodes maps keyboard buttons to virtual-key codes.
var vkCodes = map[input.Button]uint16{
	input.Grave:     0xC0,
	input.Key1:      '1',
	input.Key2:      '2',
	input.Key3:      '3',
	input.Key4:      '4',
	input.Key5:      '5',
	input.Key6:      '6',
	input.Key7:      '7',
	input.Key8:      '8',
	input.Key9:      '9',
	input.Key0:      '0',
	input.Minus:     0xBD,
	input.Equal:     0xBB,
	input.Backspace: 0x08,

	input.A: 'A', input.B: 'B', input.C: 'C', input.D: 'D', input.E: 'E',
	input.F: 'F', input.G: 'G', input.H: 'H', input.I: 'I', input.J: 'J',
	input.K: 'K', input.L: 'L', input.M: 'M', input.N: 'N', input.O: 'O',
	input.P: 'P', input.Q: 'Q', input.R: 'R', input.S: 'S', input.T: 'T',
	input.U: 'U', input.V: 'V', input.W: 'W', input.X: 'X', input.Y: 'Y',
	input.Z: 'Z',

	input.Tab:          0x09,
	input.OpenBracket:  0xDB,
	input.CloseBracket: 0xDD,
	input.Backslash:    0xDC,
	input.CapsLock:     0x14,
	input.Semicolon:    0xBA,
	input.Quote:        0xDE,
	input.Enter:        vkReturn,
	input.Comma:        0xBC,
	input.Dot:          0xBE,
	input.Slash:        0xBF,
	input.Space:        0x20,

	input.LShift:      0xA0,
	input.RShift:      0xA1,
	input.LCtrl:       0xA2,
	input.RCtrl:       0xA3,
	input.LAlt:        0xA4,
	input.RAlt:        0xA5,
	input.LSuper:      0x5B,
	input.RSuper:      0x5C,
	input.Application: 0x5D,

	input.Esc:         0x1B,
	input.Insert:      0x2D,
	input.Delete:      0x2E,
	input.Home:        0x24,
	input.End:         0x23,
	input.PageUp:      0x21,
	input.PageDown:    0x22,
	input.LeftArrow:   0x25,
	input.UpArrow:     0x26,
	input.RightArrow:  0x27,
	input.DownArrow:   0x28,
	input.PrintScreen: 0x2C,
	input.ScrollLock:  0x91,
	input.Pause:       0x13,

	input.NumLock:        0x90,
	input.Numpad0:        0x60,
	input.Numpad1:        0x61,
	input.Numpad2:        0x62,
	input.Numpad3:        0x63,
	input.Numpad4:        0x64,
	input.Numpad5:        0x65,
	input.Numpad6:        0x66,
	input.Numpad7:        0x67,
	input.Numpad8:        0x68,
	input.Numpad9:        0x69,
	input.NumpadDot:      0x6E,
	input.NumpadSlash:    0x6F,
	input.NumpadAsterisk: 0x6A,
	input.NumpadMinus:    0x6D,
	input.NumpadPlus:     0x6B,
	// NumpadEnter shares VK_RETURN and is told apart by the extended flag.
	input.NumpadEnter: vkReturn,

	input.F1: 0x70, input.F2: 0x71, input.F3: 0x72, input.F4: 0x73,
	input.F5: 0x74, input.F6: 0x75, input.F7: 0x76, input.F8: 0x77,
	input.F9: 0x78, input.F10: 0x79, input.F11: 0x7A, input.F12: 0x7B,
	input.F13: 0x7C, input.F14: 0x7D, input.F15: 0x7E, input.F16: 0x7F,
	input.F17: 0x80, input.F18: 0x81, input.F19: 0x82, input.F20: 0x83,
	input.F21: 0x84, input.F22: 0x85, input.F23: 0x86, input.F24: 0x87,
}

// extendedKeys must be sent with KEYEVENTF_EXTENDEDKEY.
var extendedKeys = map[input.Button]bool{
	input.RCtrl: true, input.RAlt: true,
	input.LSuper: true, input.RSuper: true, input.Application: true,
	input.Insert: true, input.Delete: true, input.Home: true, input.End: true,
	input.PageUp: true, input.PageDown: true,
	input.LeftArrow: true, input.RightArrow: true, input.UpArrow: true, input.DownArrow: true,
	input.PrintScreen: true, input.NumLock: true,
	input.NumpadSlash: true, input.NumpadEnter: true,
}

var vkButtons = func() map[uint16]input.Button {
	m := make(map[uint16]input.Button, len(vkCodes))
	for b, vk := range vkCodes {
		if b != input.NumpadEnter {
			m[vk] = b
		}
	}
	return m
}()

// buttonForVK returns the button for a virtual-key code as reported by
// the keyboard hook.
func buttonForVK(vk uint16, extended bool) (input.Button, bool) {
	if vk == vkReturn && extended {
		return input.NumpadEnter, true
	}
	b, ok := vkButtons[vk]
	return b, ok
}

// vkForButton returns the virtual-key code and extended flag to send for b.
func vkForButton(b input.Button) (vk uint16, extended bool, ok bool) {
	b = b.Physical()
	vk, ok = vkCodes[b]
	return vk, extendedKeys[b], ok
}

// wheelDelta is one notch of WM_MOUSEWHEEL.
const wheelDelta = 120

// wheelNotches converts a WM_MOUSEWHEEL delta to notches. High-resolution
// wheels report fractions of a notch; those count as one notch.
func wheelNotches(raw int16) int32 {
	n := int32(raw) / wheelDelta
	switch {
	case n != 0:
		return n
	case raw > 0:
		return 1
	case raw < 0:
		return -1
	}
	return 0
}
