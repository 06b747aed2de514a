package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/hookmap/internal/input"
)

// Callback receives every event observed by a native hook.
type Callback func(ev input.Event, k Continuation)

// Native is an OS-level hook.
//
// Run installs the hook on the calling goroutine, which is locked to its
// OS thread, calls ready once events can flow, and delivers each event to
// cb until ctx is cancelled. An error returned before ready is called
// means installation failed. Returning while ctx is still live after ready
// means the hook was lost.
type Native interface {
	Run(ctx context.Context, cb Callback, ready func()) error
}

// NativeFunc adapts a function to the Native interface.
type NativeFunc func(ctx context.Context, cb Callback, ready func()) error

// Run calls f(ctx, cb, ready).
func (f NativeFunc) Run(ctx context.Context, cb Callback, ready func()) error {
	return f(ctx, cb, ready)
}

// verdict records the decision made for one event. A callback that
// resolves nothing leaves the event dispatched.
type verdict struct {
	decision input.Decision
}

func (v *verdict) Dispatch() { v.decision = input.Dispatch }
func (v *verdict) Block()    { v.decision = input.Block }

// Decide runs cb for ev on the calling goroutine and returns the decision
// it made. Adapters whose OS expects an answer before the callback returns
// use it to bridge the continuation.
func Decide(cb Callback, ev input.Event) input.Decision {
	var v verdict
	cb(ev, &v)
	return v.decision
}

// stopTimeout bounds how long Uninstall waits for the native loop.
const stopTimeout = 2 * time.Second

// installed guards the one live hook per process.
var installed atomic.Bool

// Hook is an installed native hook feeding a Dispatcher.
type Hook struct {
	d      *Dispatcher
	logger *slog.Logger

	cancel context.CancelFunc
	doneCh chan struct{}
	lostCh chan error

	stopping atomic.Bool
}

type loopExit struct {
	err error
}

// Install starts native on a dedicated OS thread and routes its events to
// d. It returns once the native hook reports ready, fails, or ctx ends.
// Only one hook may be installed per process.
func Install(ctx context.Context, native Native, d *Dispatcher) (*Hook, error) {
	if !installed.CompareAndSwap(false, true) {
		return nil, &InstallationError{Err: ErrAlreadyInstalled}
	}

	if err := d.Start(); err != nil {
		installed.Store(false)
		return nil, &InstallationError{Err: err}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	readyCh := make(chan struct{})
	exitCh := make(chan loopExit, 1)
	doneCh := make(chan struct{})

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(doneCh)

		var once sync.Once
		err := native.Run(runCtx, d.Serve, func() {
			once.Do(func() { close(readyCh) })
		})
		exitCh <- loopExit{err: err}
	}()

	abort := func(cause error) (*Hook, error) {
		cancel()
		d.reject()
		select {
		case <-doneCh:
		case <-time.After(stopTimeout):
			d.logger.Warn("[hook] native loop did not stop after failed install")
		}
		_ = d.Close(context.Background())
		installed.Store(false)
		return nil, &InstallationError{Err: cause}
	}

	select {
	case <-readyCh:
	case exit := <-exitCh:
		if exit.err == nil {
			exit.err = errors.New("native hook exited during installation")
		}
		return abort(exit.err)
	case <-ctx.Done():
		return abort(ctx.Err())
	}

	h := &Hook{
		d:      d,
		logger: d.logger,
		cancel: cancel,
		doneCh: doneCh,
		lostCh: make(chan error, 1),
	}
	go h.watch(exitCh)

	d.logger.Info("[hook] installed", "tag", fmt.Sprintf("%#x", uint64(d.tag)))
	return h, nil
}

// watch turns an unexpected native exit into a hook-lost notification.
func (h *Hook) watch(exitCh <-chan loopExit) {
	exit := <-exitCh
	if h.stopping.Load() {
		return
	}
	h.d.reject()

	err := ErrHookLost
	if exit.err != nil {
		err = fmt.Errorf("%w: %w", ErrHookLost, exit.err)
	}
	h.logger.Error("[hook] native loop exited unexpectedly", "error", exit.err)
	h.lostCh <- err
}

// Lost delivers at most one error, wrapping ErrHookLost, if the native hook
// dies while installed. It is not signalled by Uninstall.
func (h *Hook) Lost() <-chan error {
	return h.lostCh
}

// Dispatcher returns the dispatcher fed by the hook.
func (h *Hook) Dispatcher() *Dispatcher {
	return h.d
}

// Uninstall stops accepting events, stops the native loop and waits for
// offloaded handlers to finish. In-flight handlers are not interrupted.
func (h *Hook) Uninstall(ctx context.Context) error {
	if !h.stopping.CompareAndSwap(false, true) {
		return ErrNotInstalled
	}
	defer installed.Store(false)

	h.d.reject()
	h.cancel()

	var stopErr error
	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.doneCh:
	case <-timer.C:
		h.logger.Warn("[hook] native loop stop timed out, thread may leak")
		stopErr = errors.New("native hook stop timed out")
	case <-ctx.Done():
		stopErr = ctx.Err()
	}

	if err := h.d.Close(ctx); err != nil {
		stopErr = errors.Join(stopErr, err)
	}
	h.logger.Info("[hook] uninstalled")
	return stopErr
}

// Installed reports whether a hook is live in this process.
func Installed() bool {
	return installed.Load()
}
