package terminal

import (
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/hookmap/internal/input"
)

// namedKeys maps tcell's special keys to buttons.
var namedKeys = map[tcell.Key]input.Button{
	tcell.KeyEnter:      input.Enter,
	tcell.KeyTab:        input.Tab,
	tcell.KeyBacktab:    input.Tab,
	tcell.KeyBackspace:  input.Backspace,
	tcell.KeyBackspace2: input.Backspace,
	tcell.KeyEscape:     input.Esc,
	tcell.KeyInsert:     input.Insert,
	tcell.KeyDelete:     input.Delete,
	tcell.KeyHome:       input.Home,
	tcell.KeyEnd:        input.End,
	tcell.KeyPgUp:       input.PageUp,
	tcell.KeyPgDn:       input.PageDown,
	tcell.KeyUp:         input.UpArrow,
	tcell.KeyDown:       input.DownArrow,
	tcell.KeyLeft:       input.LeftArrow,
	tcell.KeyRight:      input.RightArrow,
	tcell.KeyPrint:      input.PrintScreen,
	tcell.KeyPause:      input.Pause,
	tcell.KeyF1:         input.F1,
	tcell.KeyF2:         input.F2,
	tcell.KeyF3:         input.F3,
	tcell.KeyF4:         input.F4,
	tcell.KeyF5:         input.F5,
	tcell.KeyF6:         input.F6,
	tcell.KeyF7:         input.F7,
	tcell.KeyF8:         input.F8,
	tcell.KeyF9:         input.F9,
	tcell.KeyF10:        input.F10,
	tcell.KeyF11:        input.F11,
	tcell.KeyF12:        input.F12,
	tcell.KeyF13:        input.F13,
	tcell.KeyF14:        input.F14,
	tcell.KeyF15:        input.F15,
	tcell.KeyF16:        input.F16,
	tcell.KeyF17:        input.F17,
	tcell.KeyF18:        input.F18,
	tcell.KeyF19:        input.F19,
	tcell.KeyF20:        input.F20,
	tcell.KeyF21:        input.F21,
	tcell.KeyF22:        input.F22,
	tcell.KeyF23:        input.F23,
	tcell.KeyF24:        input.F24,
}

// unshifted maps runes typed without Shift on a US layout.
var unshifted = map[rune]input.Button{
	'`': input.Grave, '1': input.Key1, '2': input.Key2, '3': input.Key3,
	'4': input.Key4, '5': input.Key5, '6': input.Key6, '7': input.Key7,
	'8': input.Key8, '9': input.Key9, '0': input.Key0, '-': input.Minus,
	'=': input.Equal, '[': input.OpenBracket, ']': input.CloseBracket,
	'\\': input.Backslash, ';': input.Semicolon, '\'': input.Quote,
	',': input.Comma, '.': input.Dot, '/': input.Slash, ' ': input.Space,
}

// shifted maps runes that need Shift on a US layout.
var shifted = map[rune]input.Button{
	'~': input.Grave, '!': input.Key1, '@': input.Key2, '#': input.Key3,
	'$': input.Key4, '%': input.Key5, '^': input.Key6, '&': input.Key7,
	'*': input.Key8, '(': input.Key9, ')': input.Key0, '_': input.Minus,
	'+': input.Equal, '{': input.OpenBracket, '}': input.CloseBracket,
	'|': input.Backslash, ':': input.Semicolon, '"': input.Quote,
	'<': input.Comma, '>': input.Dot, '?': input.Slash,
}

// keyChord converts a tcell key event to the modifiers and button that
// produce it. ok is false for keys with no button equivalent.
func keyChord(ev *tcell.EventKey) (mods []input.Button, target input.Button, ok bool) {
	m := ev.Modifiers()

	switch k := ev.Key(); {
	case k == tcell.KeyRune:
		r := ev.Rune()
		switch {
		case r >= 'a' && r <= 'z':
			target = input.A + input.Button(r-'a')
		case r >= 'A' && r <= 'Z':
			target = input.A + input.Button(r-'A')
			m |= tcell.ModShift
		default:
			if b, found := unshifted[r]; found {
				target = b
			} else if b, found := shifted[r]; found {
				target = b
				m |= tcell.ModShift
			} else {
				return nil, input.ButtonNone, false
			}
		}
	case namedKeys[k] != input.ButtonNone:
		target = namedKeys[k]
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		target = input.A + input.Button(k-tcell.KeyCtrlA)
		m |= tcell.ModCtrl
	case k == tcell.KeyCtrlSpace:
		target = input.Space
		m |= tcell.ModCtrl
	default:
		return nil, input.ButtonNone, false
	}

	if m&tcell.ModCtrl != 0 {
		mods = append(mods, input.LCtrl)
	}
	if m&tcell.ModShift != 0 {
		mods = append(mods, input.LShift)
	}
	if m&tcell.ModAlt != 0 {
		mods = append(mods, input.LAlt)
	}
	if m&tcell.ModMeta != 0 {
		mods = append(mods, input.LSuper)
	}
	return mods, target, true
}

// tcellKey converts a button back to a tcell key event for injection.
func tcellKey(b input.Button, mods tcell.ModMask) *tcell.EventKey {
	for k, nb := range namedKeys {
		if nb == b && k != tcell.KeyBacktab && k != tcell.KeyBackspace {
			return tcell.NewEventKey(k, 0, mods)
		}
	}
	if b >= input.A && b <= input.Z {
		r := rune('a' + (b - input.A))
		if mods&tcell.ModShift != 0 {
			r = unicode.ToUpper(r)
		}
		return tcell.NewEventKey(tcell.KeyRune, r, mods&^tcell.ModShift)
	}
	for r, ub := range unshifted {
		if ub == b {
			return tcell.NewEventKey(tcell.KeyRune, r, mods)
		}
	}
	return nil
}

// mouseButtons maps tcell button bits to mouse buttons.
var mouseButtons = []struct {
	mask   tcell.ButtonMask
	button input.Button
}{
	{tcell.Button1, input.LeftButton},
	{tcell.Button2, input.RightButton},
	{tcell.Button3, input.MiddleButton},
	{tcell.Button4, input.SideButton1},
	{tcell.Button5, input.SideButton2},
}
