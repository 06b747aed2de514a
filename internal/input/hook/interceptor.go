package hook

import (
	"context"
	"sync"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hotkey"
)

// Filter selects which real button events an interceptor captures.
// The zero Filter captures the next press or release of any button.
type Filter struct {
	Target hotkey.Target
	Action hotkey.ActionKind

	// Match, if set, must also return true.
	Match func(ev input.ButtonEvent) bool
}

// AnyAction returns a filter on target accepting presses and releases.
func AnyAction(target hotkey.Target) Filter {
	return Filter{Target: target, Action: hotkey.OnBoth}
}

func (f Filter) accepts(ev input.ButtonEvent) bool {
	if !f.Target.Accepts(ev.Target) || !f.Action.AcceptsEvent(ev) {
		return false
	}
	return f.Match == nil || f.Match(ev)
}

type subscriber struct {
	filter Filter
	ch     chan input.ButtonEvent
}

// broker hands real button events to one-shot subscribers before rules
// see them. Blocking subscribers are tried newest first and only one of
// them receives an event; that event is then blocked and skips rule
// matching. Every matching dispatching subscriber receives the event and
// matching continues.
type broker struct {
	mu       sync.Mutex
	closed   bool
	block    []*subscriber
	dispatch []*subscriber
}

func (b *broker) subscribe(f Filter, policy input.Decision) (*subscriber, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	s := &subscriber{filter: f, ch: make(chan input.ButtonEvent, 1)}
	if policy == input.Block {
		b.block = append(b.block, s)
	} else {
		b.dispatch = append(b.dispatch, s)
	}
	return s, true
}

func (b *broker) unsubscribe(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.block = remove(b.block, s)
	b.dispatch = remove(b.dispatch, s)
}

func remove(subs []*subscriber, s *subscriber) []*subscriber {
	for i, cur := range subs {
		if cur == s {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

func (b *broker) publish(ev input.ButtonEvent) input.Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(b.block) - 1; i >= 0; i-- {
		s := b.block[i]
		if s.filter.accepts(ev) {
			b.block = append(b.block[:i:i], b.block[i+1:]...)
			s.ch <- ev
			return input.Block
		}
	}

	kept := b.dispatch[:0:0]
	for _, s := range b.dispatch {
		if s.filter.accepts(ev) {
			s.ch <- ev
			continue
		}
		kept = append(kept, s)
	}
	b.dispatch = kept
	return input.Dispatch
}

func (b *broker) open() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = false
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, s := range b.block {
		close(s.ch)
	}
	for _, s := range b.dispatch {
		close(s.ch)
	}
	b.block, b.dispatch = nil, nil
}

// Intercept waits for the next real button event accepted by f.
//
// With policy Block the captured event is suppressed and no rule sees it.
// With policy Dispatch the event is only observed and rule matching
// proceeds as usual. Synthetic events are never captured.
func (d *Dispatcher) Intercept(ctx context.Context, f Filter, policy input.Decision) (input.ButtonEvent, error) {
	s, ok := d.broker.subscribe(f, policy)
	if !ok {
		return input.ButtonEvent{}, ErrClosed
	}

	select {
	case ev, ok := <-s.ch:
		if !ok {
			return input.ButtonEvent{}, ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		d.broker.unsubscribe(s)
		// The event may have been delivered while unsubscribing.
		select {
		case ev, ok := <-s.ch:
			if ok {
				return ev, nil
			}
		default:
		}
		return input.ButtonEvent{}, ctx.Err()
	}
}
