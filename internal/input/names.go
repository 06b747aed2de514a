package input

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors
var (
	ErrEmptySpec     = errors.New("empty button specification")
	ErrUnknownButton = errors.New("unknown button")
	ErrInvalidSpec   = errors.New("invalid button specification")
)

var buttonNames = [ButtonCount]string{
	ButtonNone:     "None",
	LeftButton:     "LeftButton",
	RightButton:    "RightButton",
	MiddleButton:   "MiddleButton",
	SideButton1:    "SideButton1",
	SideButton2:    "SideButton2",
	Grave:          "Grave",
	Key1:           "1",
	Key2:           "2",
	Key3:           "3",
	Key4:           "4",
	Key5:           "5",
	Key6:           "6",
	Key7:           "7",
	Key8:           "8",
	Key9:           "9",
	Key0:           "0",
	Minus:          "Minus",
	Equal:          "Equal",
	Backspace:      "Backspace",
	A:              "A",
	B:              "B",
	C:              "C",
	D:              "D",
	E:              "E",
	F:              "F",
	G:              "G",
	H:              "H",
	I:              "I",
	J:              "J",
	K:              "K",
	L:              "L",
	M:              "M",
	N:              "N",
	O:              "O",
	P:              "P",
	Q:              "Q",
	R:              "R",
	S:              "S",
	T:              "T",
	U:              "U",
	V:              "V",
	W:              "W",
	X:              "X",
	Y:              "Y",
	Z:              "Z",
	Tab:            "Tab",
	OpenBracket:    "OpenBracket",
	CloseBracket:   "CloseBracket",
	Backslash:      "Backslash",
	CapsLock:       "CapsLock",
	Semicolon:      "Semicolon",
	Quote:          "Quote",
	Enter:          "Enter",
	Comma:          "Comma",
	Dot:            "Dot",
	Slash:          "Slash",
	Space:          "Space",
	LShift:         "LShift",
	RShift:         "RShift",
	LCtrl:          "LCtrl",
	RCtrl:          "RCtrl",
	LAlt:           "LAlt",
	RAlt:           "RAlt",
	LSuper:         "LSuper",
	RSuper:         "RSuper",
	Application:    "Application",
	Esc:            "Esc",
	Insert:         "Insert",
	Delete:         "Delete",
	Home:           "Home",
	End:            "End",
	PageUp:         "PageUp",
	PageDown:       "PageDown",
	LeftArrow:      "Left",
	RightArrow:     "Right",
	UpArrow:        "Up",
	DownArrow:      "Down",
	PrintScreen:    "PrintScreen",
	ScrollLock:     "ScrollLock",
	Pause:          "Pause",
	NumLock:        "NumLock",
	Numpad0:        "Numpad0",
	Numpad1:        "Numpad1",
	Numpad2:        "Numpad2",
	Numpad3:        "Numpad3",
	Numpad4:        "Numpad4",
	Numpad5:        "Numpad5",
	Numpad6:        "Numpad6",
	Numpad7:        "Numpad7",
	Numpad8:        "Numpad8",
	Numpad9:        "Numpad9",
	NumpadDot:      "NumpadDot",
	NumpadSlash:    "NumpadSlash",
	NumpadAsterisk: "NumpadAsterisk",
	NumpadMinus:    "NumpadMinus",
	NumpadPlus:     "NumpadPlus",
	NumpadEnter:    "NumpadEnter",
	F1:             "F1",
	F2:             "F2",
	F3:             "F3",
	F4:             "F4",
	F5:             "F5",
	F6:             "F6",
	F7:             "F7",
	F8:             "F8",
	F9:             "F9",
	F10:            "F10",
	F11:            "F11",
	F12:            "F12",
	F13:            "F13",
	F14:            "F14",
	F15:            "F15",
	F16:            "F16",
	F17:            "F17",
	F18:            "F18",
	F19:            "F19",
	F20:            "F20",
	F21:            "F21",
	F22:            "F22",
	F23:            "F23",
	F24:            "F24",
	Shift:          "Shift",
	Ctrl:           "Ctrl",
	Alt:            "Alt",
	Super:          "Super",
}

// aliases maps alternative lowercase spellings to buttons.
var aliases = map[string]Button{
	"escape":     Esc,
	"return":     Enter,
	"cr":         Enter,
	"bs":         Backspace,
	"del":        Delete,
	"ins":        Insert,
	"pgup":       PageUp,
	"pgdn":       PageDown,
	"control":    Ctrl,
	"lcontrol":   LCtrl,
	"rcontrol":   RCtrl,
	"option":     Alt,
	"meta":       Super,
	"win":        Super,
	"cmd":        Super,
	"lwin":       LSuper,
	"rwin":       RSuper,
	"menu":       Application,
	"`":          Grave,
	"-":          Minus,
	"=":          Equal,
	"[":          OpenBracket,
	"]":          CloseBracket,
	"\\":         Backslash,
	";":          Semicolon,
	"'":          Quote,
	",":          Comma,
	".":          Dot,
	"/":          Slash,
	"leftarrow":  LeftArrow,
	"rightarrow": RightArrow,
	"uparrow":    UpArrow,
	"downarrow":  DownArrow,
	"lbutton":    LeftButton,
	"rbutton":    RightButton,
	"mbutton":    MiddleButton,
}

var nameIndex = func() map[string]Button {
	m := make(map[string]Button, len(buttonNames)+len(aliases))
	for b := LeftButton; b < ButtonCount; b++ {
		m[strings.ToLower(buttonNames[b])] = b
	}
	for name, b := range aliases {
		m[name] = b
	}
	return m
}()

// String returns the canonical name of the button.
func (b Button) String() string {
	if b < ButtonCount {
		return buttonNames[b]
	}
	return fmt.Sprintf("Button(%d)", uint8(b))
}

// ParseButton returns the button with the given name (case-insensitive).
// Canonical names and common aliases such as "Escape" or "Win" are accepted.
func ParseButton(name string) (Button, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ButtonNone, ErrEmptySpec
	}
	if b, ok := nameIndex[strings.ToLower(name)]; ok {
		return b, nil
	}
	return ButtonNone, fmt.Errorf("%w: %q", ErrUnknownButton, name)
}

// Chord is a target button with the modifiers that must accompany it.
type Chord struct {
	Modifiers []Button
	Target    Button
}

// String returns the chord in "Ctrl+Shift+A" form.
func (c Chord) String() string {
	parts := make([]string, 0, len(c.Modifiers)+1)
	for _, m := range c.Modifiers {
		parts = append(parts, m.String())
	}
	parts = append(parts, c.Target.String())
	return strings.Join(parts, "+")
}

// ParseChord parses a specification like "Ctrl+Shift+J" or "LAlt+Tab".
// Every part but the last must be a modifier; the last part is the target.
func ParseChord(spec string) (Chord, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Chord{}, ErrEmptySpec
	}

	parts := strings.Split(spec, "+")
	// "Ctrl++" names the plus key on some layouts; not supported.
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Chord{}, fmt.Errorf("%w: empty part in %q", ErrInvalidSpec, spec)
		}
	}

	target, err := ParseButton(parts[len(parts)-1])
	if err != nil {
		return Chord{}, err
	}

	chord := Chord{Target: target}
	seen := make(map[Button]bool, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		mod, err := ParseButton(p)
		if err != nil {
			return Chord{}, err
		}
		if !mod.IsModifier() {
			return Chord{}, fmt.Errorf("%w: %s is not a modifier", ErrInvalidSpec, mod)
		}
		if seen[mod] {
			continue
		}
		seen[mod] = true
		chord.Modifiers = append(chord.Modifiers, mod)
	}
	return chord, nil
}

// ParseSequence parses a whitespace separated list of chords, such as
// "Ctrl+C Ctrl+V" or "H E L L O".
func ParseSequence(spec string) ([]Chord, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return nil, ErrEmptySpec
	}
	chords := make([]Chord, 0, len(fields))
	for _, f := range fields {
		c, err := ParseChord(f)
		if err != nil {
			return nil, err
		}
		chords = append(chords, c)
	}
	return chords, nil
}
