// Package dispatch runs hotkey handlers with panic recovery, timing and
// optional deadlines.
//
// Two runners are provided:
//
//   - SyncDispatcher runs a handler in the caller's goroutine. The hook
//     goroutine uses it for inline rules, whose outcome must be known before
//     the native decision is returned.
//
//   - AsyncDispatcher runs handlers on a fixed pool of workers fed by a
//     bounded queue. Rules that do slow work are handed to it so the hook
//     goroutine can return to the OS promptly.
//
// Both recover panics and report them as a Result rather than letting a
// misbehaving handler take down the hook. A Result is also produced for
// returned errors, context cancellation and deadline expiry:
//
//	pool := dispatch.NewAsyncDispatcher(dispatch.WithWorkerCount(4))
//	if err := pool.Start(); err != nil {
//	    return err
//	}
//	defer pool.Stop(ctx)
//
//	err := pool.Enqueue(ctx, ev, h, func(r dispatch.Result) {
//	    if !r.IsSuccess() {
//	        slog.Warn("handler failed", "error", r.Err())
//	    }
//	})
package dispatch
