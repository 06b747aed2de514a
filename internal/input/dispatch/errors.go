package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running pool.
	ErrAlreadyRunning = errors.New("worker pool is already running")

	// ErrNotRunning is returned when a task is offered to a stopped pool.
	ErrNotRunning = errors.New("worker pool is not running")

	// ErrQueueFull is returned when the pool's queue cannot take another task.
	ErrQueueFull = errors.New("task queue is full")
)

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}
