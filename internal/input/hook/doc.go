// Package hook connects a native OS hook to the hotkey engine.
//
// A Dispatcher receives every event, consults pending interceptors, matches
// the event against the registry using the button state from before the
// event, runs matched handlers and returns Block if any matched rule asks
// for it. Events tagged by the dispatcher's own Sender only update the
// button state; they are never matched, so a handler's output cannot
// trigger further rules.
//
// Install runs a Native hook on a dedicated OS thread:
//
//	d := hook.New(reg, tracker, hook.WithPool(pool))
//	h, err := hook.Install(ctx, native, d)
//	if err != nil {
//	    return err
//	}
//	defer h.Uninstall(context.Background())
//
//	select {
//	case err := <-h.Lost():
//	    return err
//	case <-ctx.Done():
//	}
package hook
