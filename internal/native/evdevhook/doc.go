// Package evdevhook is the Linux hook backend. It grabs keyboards and mice
// through evdev so no other reader sees their events, runs every event
// through the hook callback, and replays dispatched events on a uinput
// device. Blocked events are simply not replayed.
//
// Synthetic input is written to the same uinput device. Devices created by
// this package are never grabbed, so injected events do not come back.
//
// Access to /dev/input and /dev/uinput usually requires membership in the
// input group or root.
package evdevhook
