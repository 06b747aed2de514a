package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dshills/hookmap/internal/input"
)

// SyncDispatcher runs handlers in the caller's goroutine.
type SyncDispatcher struct {
	executor *Executor
	timeout  time.Duration

	dispatched  atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	skipped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// SyncOption configures a SyncDispatcher.
type SyncOption func(*SyncDispatcher)

// WithPanicHandler sets the callback invoked after a recovered panic.
func WithPanicHandler(h PanicHandler) SyncOption {
	return func(d *SyncDispatcher) {
		d.executor = NewExecutor(WithExecutorPanicHandler(h))
	}
}

// WithTimeout sets the deadline given to each handler. Zero means none.
func WithTimeout(timeout time.Duration) SyncOption {
	return func(d *SyncDispatcher) {
		d.timeout = timeout
	}
}

// NewSyncDispatcher creates a synchronous runner.
func NewSyncDispatcher(opts ...SyncOption) *SyncDispatcher {
	d := &SyncDispatcher{executor: NewExecutor()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs h with ev and waits for it.
func (d *SyncDispatcher) Dispatch(ctx context.Context, ev input.Event, h Handler) Result {
	d.dispatched.Add(1)

	result := d.executor.ExecuteWithTimeout(ctx, ev, h, d.timeout)

	d.totalTimeNs.Add(result.Duration.Nanoseconds())
	switch {
	case result.Skipped:
		d.skipped.Add(1)
	case result.Panicked:
		d.panicked.Add(1)
	case result.Error != nil:
		d.failed.Add(1)
	default:
		d.succeeded.Add(1)
	}
	return result
}

// SyncDispatcherStats holds counters for a SyncDispatcher.
type SyncDispatcherStats struct {
	Dispatched    uint64
	Succeeded     uint64
	Failed        uint64
	Panicked      uint64
	Skipped       uint64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// Stats returns a snapshot of the counters.
func (d *SyncDispatcher) Stats() SyncDispatcherStats {
	n := d.dispatched.Load()
	total := d.totalTimeNs.Load()
	var avg int64
	if n > 0 {
		avg = total / int64(n)
	}
	return SyncDispatcherStats{
		Dispatched:    n,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		Skipped:       d.skipped.Load(),
		TotalDuration: time.Duration(total),
		AvgDuration:   time.Duration(avg),
	}
}
