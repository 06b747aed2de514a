package dispatch

import (
	"context"
	"time"

	"github.com/dshills/hookmap/internal/input"
)

// Handler is the contract shared by every runnable reaction.
// hotkey.Handler satisfies it.
type Handler interface {
	Handle(ctx context.Context, ev input.Event) error
}

// Result is the outcome of one handler run.
type Result struct {
	// Success is true if the handler returned nil without panicking.
	Success bool

	// Error is the error returned by the handler, or the context error if
	// the run was skipped.
	Error error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic().
	PanicValue any

	// PanicStack is the stack at the point of the panic.
	PanicStack []byte

	// Duration is how long the handler ran.
	Duration time.Duration

	// Skipped is true if the handler never ran because the context was
	// already done.
	Skipped bool
}

// IsSuccess reports whether the handler completed cleanly.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError reports whether the handler returned an error.
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic reports whether the handler panicked.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// Err folds the result into a single error: nil on success, a *PanicError
// for panics, the handler or context error otherwise.
func (r Result) Err() error {
	switch {
	case r.Panicked:
		return &PanicError{Value: r.PanicValue, Stack: r.PanicStack}
	case r.Error != nil:
		return r.Error
	default:
		return nil
	}
}

// PanicHandler is called after a handler panic has been recovered.
type PanicHandler func(ev input.Event, panicValue any, stack []byte)

func defaultPanicHandler(input.Event, any, []byte) {}
