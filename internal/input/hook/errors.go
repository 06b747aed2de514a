package hook

import (
	"errors"
	"fmt"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hotkey"
)

// Sentinel errors for the hook package.
var (
	// ErrAlreadyInstalled is returned by Install while another hook is live.
	ErrAlreadyInstalled = errors.New("hook already installed")

	// ErrNotInstalled is returned by Uninstall on a hook that is not live.
	ErrNotInstalled = errors.New("hook not installed")

	// ErrHookLost is delivered on Hook.Lost when the native loop dies.
	ErrHookLost = errors.New("hook lost")

	// ErrClosed is returned to interceptors waiting on a closed dispatcher.
	ErrClosed = errors.New("dispatcher closed")
)

// InstallationError reports that the hook could not be installed.
// No state is retained after it is returned.
type InstallationError struct {
	Err error
}

func (e *InstallationError) Error() string {
	return "install hook: " + e.Err.Error()
}

func (e *InstallationError) Unwrap() error {
	return e.Err
}

// HandlerError reports a failed or panicking rule handler.
type HandlerError struct {
	RuleID hotkey.RuleID
	Rule   string
	Event  input.Event

	// Err is the returned error, or a *dispatch.PanicError.
	Err error

	// Panic and Stack are set when the handler panicked.
	Panic any
	Stack []byte
}

func (e *HandlerError) Error() string {
	name := e.Rule
	if name == "" {
		name = fmt.Sprintf("#%d", e.RuleID)
	}
	return fmt.Sprintf("rule %s on %v: %v", name, e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// ErrorSink receives handler failures. It may be called from the hook
// goroutine and from pool workers concurrently.
type ErrorSink func(err *HandlerError)
