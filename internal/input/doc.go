// Package input defines the canonical button and event model shared by the
// hook, matching and sending layers.
//
//   - Button: a closed enumeration of keyboard keys and mouse buttons, plus
//     the logical modifiers Shift, Ctrl, Alt and Super
//   - ButtonEvent, CursorEvent, WheelEvent: event payloads, unified by the
//     sealed Event interface
//   - Decision: Dispatch or Block, the answer returned to the native hook
//   - Tag: marks events produced by this process's own Sender
//
// # Button Specifications
//
// Buttons are parsed by name, case-insensitively: "A", "Enter", "LCtrl",
// "Ctrl", "F12", "LeftButton". Chords join modifiers and a target with "+":
// "Ctrl+Shift+J". Sequences are whitespace separated chords.
package input
