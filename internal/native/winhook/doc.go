// Package winhook is the Windows hook backend, built on the low-level
// keyboard and mouse hooks (WH_KEYBOARD_LL, WH_MOUSE_LL) and SendInput.
//
// Injected events carry the dispatcher tag in dwExtraInfo and are seen
// again by the hooks, so the backend reports that it echoes.
package winhook
