package input

// Button identifies a keyboard key or a mouse button.
// The set of buttons is closed; ButtonCount bounds every valid value.
type Button uint8

const (
	// ButtonNone is the zero value and never appears in real events.
	ButtonNone Button = iota

	// Mouse buttons
	LeftButton
	RightButton
	MiddleButton
	SideButton1
	SideButton2

	// Number row
	Grave
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key0
	Minus
	Equal
	Backspace

	// Letters
	A
	B
	C
	D
	E
	F
	G
	H
	I
	J
	K
	L
	M
	N
	O
	P
	Q
	R
	S
	T
	U
	V
	W
	X
	Y
	Z

	// Punctuation
	Tab
	OpenBracket
	CloseBracket
	Backslash
	CapsLock
	Semicolon
	Quote
	Enter
	Comma
	Dot
	Slash
	Space

	// Physical modifiers
	LShift
	RShift
	LCtrl
	RCtrl
	LAlt
	RAlt
	LSuper
	RSuper
	Application

	// Navigation
	Esc
	Insert
	Delete
	Home
	End
	PageUp
	PageDown
	LeftArrow
	RightArrow
	UpArrow
	DownArrow
	PrintScreen
	ScrollLock
	Pause

	// Numpad
	NumLock
	Numpad0
	Numpad1
	Numpad2
	Numpad3
	Numpad4
	Numpad5
	Numpad6
	Numpad7
	Numpad8
	Numpad9
	NumpadDot
	NumpadSlash
	NumpadAsterisk
	NumpadMinus
	NumpadPlus
	NumpadEnter

	// Function keys
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
	F13
	F14
	F15
	F16
	F17
	F18
	F19
	F20
	F21
	F22
	F23
	F24

	// Logical modifiers stand for either physical side. They are valid in
	// conditions, targets and sends, but native adapters never emit them.
	Shift
	Ctrl
	Alt
	Super

	// ButtonCount is the number of defined buttons.
	ButtonCount
)

// Kind classifies a button as a keyboard key or a mouse button.
type Kind uint8

const (
	// KindKey is a keyboard key.
	KindKey Kind = iota
	// KindMouse is a mouse button.
	KindMouse
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindMouse {
		return "mouse"
	}
	return "key"
}

// Valid reports whether b is a defined button other than ButtonNone.
func (b Button) Valid() bool {
	return b > ButtonNone && b < ButtonCount
}

// Kind returns whether b is a key or a mouse button.
func (b Button) Kind() Kind {
	if b >= LeftButton && b <= SideButton2 {
		return KindMouse
	}
	return KindKey
}

// IsModifier returns true for physical and logical modifier keys.
func (b Button) IsModifier() bool {
	switch b {
	case LShift, RShift, LCtrl, RCtrl, LAlt, RAlt, LSuper, RSuper,
		Shift, Ctrl, Alt, Super:
		return true
	}
	return false
}

// IsLogical returns true for Shift, Ctrl, Alt and Super.
func (b Button) IsLogical() bool {
	return b >= Shift && b <= Super
}

// Sides returns the two physical buttons a logical modifier stands for.
// For a physical button both results are b itself.
func (b Button) Sides() (Button, Button) {
	switch b {
	case Shift:
		return LShift, RShift
	case Ctrl:
		return LCtrl, RCtrl
	case Alt:
		return LAlt, RAlt
	case Super:
		return LSuper, RSuper
	}
	return b, b
}

// Physical returns the button to emit when b is sent as input.
// Logical modifiers resolve to their left-hand key.
func (b Button) Physical() Button {
	left, _ := b.Sides()
	return left
}

// Covers reports whether an event targeting other should be treated as
// targeting b. A logical modifier covers both of its sides.
func (b Button) Covers(other Button) bool {
	if b == other {
		return true
	}
	left, right := b.Sides()
	return other == left || other == right
}

// PhysicalModifiers lists every physical modifier key.
var PhysicalModifiers = [...]Button{LShift, RShift, LCtrl, RCtrl, LAlt, RAlt, LSuper, RSuper}
