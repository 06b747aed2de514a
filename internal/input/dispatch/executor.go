package dispatch

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/dshills/hookmap/internal/input"
)

// Executor runs a single handler, recovering panics and timing the run.
type Executor struct {
	panicHandler PanicHandler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorPanicHandler sets the callback invoked after a recovered panic.
func WithExecutorPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{panicHandler: defaultPanicHandler}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs h with ev. A context that is already done skips the run.
func (e *Executor) Execute(ctx context.Context, ev input.Event, h Handler) (result Result) {
	if err := ctx.Err(); err != nil {
		return Result{Error: err, Skipped: true}
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)

		r := recover()
		if r == nil {
			return
		}
		stack := debug.Stack()
		result.Success = false
		result.Panicked = true
		result.PanicValue = r
		result.PanicStack = stack

		if e.panicHandler != nil {
			func() {
				// A panicking panic handler is ignored.
				defer func() { _ = recover() }()
				e.panicHandler(ev, r, stack)
			}()
		}
	}()

	if err := h.Handle(ctx, ev); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}

// ExecuteWithTimeout runs h with a deadline. h must watch ctx for the
// deadline to have any effect.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, ev input.Event, h Handler, timeout time.Duration) Result {
	if timeout <= 0 {
		return e.Execute(ctx, ev, h)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.Execute(ctx, ev, h)
}
