// Package native opens the hook backend for the current platform.
package native

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dshills/hookmap/internal/input/hook"
	"github.com/dshills/hookmap/internal/input/send"
	"github.com/dshills/hookmap/internal/native/terminal"
)

// Backend names accepted by Open.
const (
	// Auto selects the OS backend.
	Auto = "auto"
	// OS is the platform's global hook (evdev, low-level hooks or gohook).
	OS = "os"
	// Terminal reads input from the controlling terminal.
	Terminal = "terminal"
)

// ErrUnknownBackend is returned for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown backend")

// ErrUnsupportedPlatform is returned when no OS backend exists.
var ErrUnsupportedPlatform = errors.New("no native hook for this platform")

// Backend pairs a hook with the injector that sends through the same layer.
type Backend struct {
	Name     string
	Hook     hook.Native
	Injector send.Injector
}

// Options configure the backends that need them.
type Options struct {
	Logger *slog.Logger

	// Devices lists evdev device paths. Empty means every keyboard and mouse.
	Devices []string
	// NoGrab observes evdev devices without grabbing them.
	NoGrab bool
	// Quit is bound to Ctrl+Q by the terminal backend.
	Quit func()
}

// Open returns the named backend.
func Open(name string, opts Options) (*Backend, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch name {
	case "", Auto, OS:
		return openOS(opts)
	case Terminal:
		t, err := terminal.New(terminal.WithLogger(opts.Logger), terminal.WithQuit(opts.Quit))
		if err != nil {
			return nil, err
		}
		return &Backend{Name: Terminal, Hook: t, Injector: t}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}
