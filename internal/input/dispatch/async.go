package dispatch

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/hookmap/internal/input"
)

// AsyncDispatcher runs handlers on a fixed pool of workers.
// Tasks are queued in a bounded channel; a full queue rejects new tasks
// instead of blocking the caller.
type AsyncDispatcher struct {
	queueSize   int
	workerCount int
	timeout     time.Duration

	mu      sync.Mutex // guards queue creation and close
	queue   chan asyncTask
	running atomic.Bool
	wg      sync.WaitGroup

	panicHandler PanicHandler

	enqueued    atomic.Uint64
	processed   atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	dropped     atomic.Uint64
	timedOut    atomic.Uint64
	totalTimeNs atomic.Int64
}

type asyncTask struct {
	ctx     context.Context
	ev      input.Event
	handler Handler
	timeout time.Duration
	done    func(Result)
}

// AsyncOption configures an AsyncDispatcher.
type AsyncOption func(*AsyncDispatcher)

// WithQueueSize sets the capacity of the task queue.
func WithQueueSize(size int) AsyncOption {
	return func(d *AsyncDispatcher) {
		if size > 0 {
			d.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of workers.
func WithWorkerCount(count int) AsyncOption {
	return func(d *AsyncDispatcher) {
		if count > 0 {
			d.workerCount = count
		}
	}
}

// WithAsyncTimeout sets the deadline given to each task. Zero means none.
func WithAsyncTimeout(timeout time.Duration) AsyncOption {
	return func(d *AsyncDispatcher) {
		d.timeout = timeout
	}
}

// WithAsyncPanicHandler sets the callback invoked after a recovered panic.
func WithAsyncPanicHandler(h PanicHandler) AsyncOption {
	return func(d *AsyncDispatcher) {
		d.panicHandler = h
	}
}

// NewAsyncDispatcher creates a pool. Call Start before enqueuing.
func NewAsyncDispatcher(opts ...AsyncOption) *AsyncDispatcher {
	d := &AsyncDispatcher{
		queueSize:    256,
		workerCount:  4,
		timeout:      5 * time.Second,
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers.
func (d *AsyncDispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return ErrAlreadyRunning
	}

	d.queue = make(chan asyncTask, d.queueSize)
	d.running.Store(true)
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(d.queue)
	}
	return nil
}

// Stop rejects new tasks and waits until queued and running tasks finish
// or ctx is done.
func (d *AsyncDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return ErrNotRunning
	}
	d.running.Store(false)
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue offers a task to the pool. done, if non-nil, is called on the
// worker goroutine with the task's result.
func (d *AsyncDispatcher) Enqueue(ctx context.Context, ev input.Event, h Handler, done func(Result)) error {
	return d.EnqueueWithTimeout(ctx, ev, h, d.timeout, done)
}

// EnqueueWithTimeout is Enqueue with an explicit per-task deadline.
func (d *AsyncDispatcher) EnqueueWithTimeout(ctx context.Context, ev input.Event, h Handler, timeout time.Duration, done func(Result)) error {
	task := asyncTask{ctx: ctx, ev: ev, handler: h, timeout: timeout, done: done}

	// Holding the lock keeps Stop from closing the queue mid-send.
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return ErrNotRunning
	}

	select {
	case d.queue <- task:
		d.enqueued.Add(1)
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

func (d *AsyncDispatcher) worker(queue <-chan asyncTask) {
	defer d.wg.Done()

	executor := NewExecutor(WithExecutorPanicHandler(d.panicHandler))
	for task := range queue {
		d.executeTask(executor, task)
	}
}

func (d *AsyncDispatcher) executeTask(executor *Executor, task asyncTask) {
	d.processed.Add(1)
	start := time.Now()

	defer func() {
		// Panics escaping the executor come from the done callback.
		if r := recover(); r != nil && d.panicHandler != nil {
			stack := debug.Stack()
			func() {
				defer func() { _ = recover() }()
				d.panicHandler(task.ev, r, stack)
			}()
		}
		d.totalTimeNs.Add(time.Since(start).Nanoseconds())
	}()

	result := executor.ExecuteWithTimeout(task.ctx, task.ev, task.handler, task.timeout)

	switch {
	case result.Skipped:
		d.failed.Add(1)
	case result.Panicked:
		d.panicked.Add(1)
	case result.Error != nil:
		if errors.Is(result.Error, context.DeadlineExceeded) {
			d.timedOut.Add(1)
		}
		d.failed.Add(1)
	default:
		d.succeeded.Add(1)
	}

	if task.done != nil {
		task.done(result)
	}
}

// QueueDepth returns the number of waiting tasks.
func (d *AsyncDispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return 0
	}
	return len(d.queue)
}

// IsRunning reports whether the pool accepts tasks.
func (d *AsyncDispatcher) IsRunning() bool {
	return d.running.Load()
}

// AsyncDispatcherStats holds counters for an AsyncDispatcher.
type AsyncDispatcherStats struct {
	Enqueued      uint64
	Processed     uint64
	Succeeded     uint64
	Failed        uint64
	Panicked      uint64
	Dropped       uint64
	TimedOut      uint64
	QueueDepth    int
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// Stats returns a snapshot of the counters.
func (d *AsyncDispatcher) Stats() AsyncDispatcherStats {
	processed := d.processed.Load()
	totalNs := d.totalTimeNs.Load()

	var avgNs int64
	if processed > 0 {
		avgNs = totalNs / int64(processed)
	}

	return AsyncDispatcherStats{
		Enqueued:      d.enqueued.Load(),
		Processed:     processed,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		Dropped:       d.dropped.Load(),
		TimedOut:      d.timedOut.Load(),
		QueueDepth:    d.QueueDepth(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}
