package evdevhook

import (
	"errors"
	"fmt"
)

// Backend errors
var (
	ErrNoDevices  = errors.New("no keyboard or mouse devices found")
	ErrNotRunning = errors.New("evdev backend is not running")
	ErrUnmapped   = errors.New("event has no evdev equivalent")
)

func errUnmapped(v any) error {
	return fmt.Errorf("%w: %v", ErrUnmapped, v)
}
