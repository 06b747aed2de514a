package send_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hook"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/input/send"
	"github.com/dshills/hookmap/internal/input/state"
)

// recorder is an Injector that remembers what it was asked to emit.
type recorder struct {
	mu     sync.Mutex
	events []input.Event
	failAt int
	echoes bool
}

func newRecorder() *recorder { return &recorder{failAt: -1} }

func (r *recorder) Inject(ev input.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == r.failAt {
		r.failAt = -1
		return errors.New("rejected")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Echoes() bool { return r.echoes }

func (r *recorder) buttons() []input.ButtonEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []input.ButtonEvent
	for _, ev := range r.events {
		if be, ok := ev.(input.ButtonEvent); ok {
			out = append(out, be)
		}
	}
	return out
}

// snapshotLoop records the tracker after every event fed back.
type snapshotLoop struct {
	*hook.Dispatcher
	watch []input.Button
	seen  [][]bool
}

func (l *snapshotLoop) Handle(ev input.Event) input.Decision {
	d := l.Dispatcher.Handle(ev)
	snap := make([]bool, len(l.watch))
	for i, b := range l.watch {
		snap[i] = l.Tracker().IsPressed(b)
	}
	l.seen = append(l.seen, snap)
	return d
}

func newDispatcher(t *testing.T) (*hook.Dispatcher, *atomic.Int32) {
	t.Helper()
	var matched atomic.Int32
	reg := hotkey.NewRegistry()
	count := hotkey.HandlerFunc(func(context.Context, input.Event) error {
		matched.Add(1)
		return nil
	})
	reg.Register(hotkey.Rule{Name: "any-button", Target: hotkey.Any(), Action: hotkey.OnBoth, Handler: count})
	reg.Register(hotkey.Rule{Name: "any-cursor", Source: input.CursorKind, Handler: count})
	return hook.New(reg, state.NewTracker()), &matched
}

func TestWrapUpdatesTrackerInOrder(t *testing.T) {
	d, matched := newDispatcher(t)
	loop := &snapshotLoop{Dispatcher: d, watch: []input.Button{input.LCtrl, input.A}}
	rec := newRecorder()
	s := send.New(rec, loop)

	if err := s.Send(send.Wrap([]input.Button{input.LCtrl}, input.A)); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	want := [][]bool{
		{true, false},
		{true, true},
		{true, false},
		{false, false},
	}
	if len(loop.seen) != len(want) {
		t.Fatalf("saw %d states, want %d", len(loop.seen), len(want))
	}
	for i := range want {
		if loop.seen[i][0] != want[i][0] || loop.seen[i][1] != want[i][1] {
			t.Errorf("state %d = %v, want %v", i, loop.seen[i], want[i])
		}
	}
	if n := matched.Load(); n != 0 {
		t.Errorf("synthetic events matched %d rules", n)
	}
	for i, ev := range rec.buttons() {
		if ev.Tag != d.Tag() {
			t.Errorf("event %d not tagged", i)
		}
	}
}

func TestSequenceExpansion(t *testing.T) {
	tests := []struct {
		name string
		seq  send.Sequence
		want []input.ButtonEvent
	}{
		{
			name: "wrap reverses modifiers",
			seq:  send.Wrap([]input.Button{input.LCtrl, input.LShift}, input.T),
			want: []input.ButtonEvent{
				input.NewPress(input.LCtrl), input.NewPress(input.LShift),
				input.NewPress(input.T), input.NewRelease(input.T),
				input.NewRelease(input.LShift), input.NewRelease(input.LCtrl),
			},
		},
		{
			name: "raw is verbatim",
			seq:  send.Raw(send.Release(input.A), send.Press(input.B)),
			want: []input.ButtonEvent{input.NewRelease(input.A), input.NewPress(input.B)},
		},
		{
			name: "with then",
			seq:  send.With(input.Shift).Then(send.Click(input.H)).Then(send.Click(input.I)),
			want: []input.ButtonEvent{
				input.NewPress(input.Shift),
				input.NewPress(input.H), input.NewRelease(input.H),
				input.NewPress(input.I), input.NewRelease(input.I),
				input.NewRelease(input.Shift),
			},
		},
		{
			name: "empty",
			seq:  send.Sequence{},
			want: []input.ButtonEvent{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.seq.Events()
			if len(got) != len(tt.want) {
				t.Fatalf("Events() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParse(t *testing.T) {
	seq, err := send.Parse("Ctrl+C Enter")
	if err != nil {
		t.Fatal(err)
	}
	want := []input.ButtonEvent{
		input.NewPress(input.Ctrl),
		input.NewPress(input.C), input.NewRelease(input.C),
		input.NewRelease(input.Ctrl),
		input.NewPress(input.Enter), input.NewRelease(input.Enter),
	}
	got := seq.Events()
	if len(got) != len(want) {
		t.Fatalf("Events() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
	if _, err := send.Parse("Ctrl+Bogus"); !errors.Is(err, input.ErrUnknownButton) {
		t.Errorf("Parse error = %v", err)
	}
}

func TestInjectionFailure(t *testing.T) {
	d, _ := newDispatcher(t)
	rec := newRecorder()
	rec.failAt = 1
	s := send.New(rec, d)

	err := s.Send(send.Wrap([]input.Button{input.LAlt}, input.Tab))

	var ierr *send.InjectionError
	if !errors.As(err, &ierr) {
		t.Fatalf("Send() error = %v, want *InjectionError", err)
	}
	if ierr.Index != 1 {
		t.Errorf("Index = %d, want 1", ierr.Index)
	}
	if got := rec.buttons(); len(got) != 1 {
		t.Errorf("delivered %d events, want 1", len(got))
	}
	// The attempted press of Tab is still recorded.
	if !d.Tracker().IsPressed(input.LAlt) || !d.Tracker().IsPressed(input.Tab) {
		t.Error("tracker should reflect attempted transitions")
	}
}

func TestEchoingInjectorSkipsLoopback(t *testing.T) {
	d, _ := newDispatcher(t)
	rec := newRecorder()
	rec.echoes = true
	s := send.New(rec, d)

	if err := s.Send(send.Raw(send.Press(input.LShift))); err != nil {
		t.Fatal(err)
	}
	if d.Tracker().IsPressed(input.LShift) {
		t.Error("echoing injector events should wait for the native echo")
	}

	// The echo arrives through the hook.
	for _, ev := range rec.buttons() {
		d.Handle(ev)
	}
	if !d.Tracker().IsPressed(input.LShift) {
		t.Error("echoed event should update the tracker")
	}
}

func TestSendIgnoringModifiers(t *testing.T) {
	d, _ := newDispatcher(t)
	d.Handle(input.NewPress(input.LCtrl))
	d.Handle(input.NewPress(input.RAlt))

	rec := newRecorder()
	s := send.New(rec, d, send.WithModifierState(d.Tracker()))
	if err := s.SendIgnoringModifiers(send.Raw(send.Click(input.V))); err != nil {
		t.Fatal(err)
	}

	want := []input.ButtonEvent{
		input.NewRelease(input.LCtrl), input.NewRelease(input.RAlt),
		input.NewPress(input.V), input.NewRelease(input.V),
		input.NewPress(input.LCtrl), input.NewPress(input.RAlt),
	}
	got := rec.buttons()
	if len(got) != len(want) {
		t.Fatalf("sent %v", got)
	}
	for i := range want {
		if got[i].Target != want[i].Target || got[i].Action != want[i].Action {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
	if !d.Tracker().IsPressed(input.LCtrl) || !d.Tracker().IsPressed(input.RAlt) {
		t.Error("modifiers should be held again afterwards")
	}
}

func TestMoveAndRotate(t *testing.T) {
	d, matched := newDispatcher(t)
	rec := newRecorder()
	s := send.New(rec, d)

	if err := s.Move(3, -4); err != nil {
		t.Fatal(err)
	}
	if err := s.Rotate(-1); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("sent %d events", len(rec.events))
	}
	if ce, ok := rec.events[0].(input.CursorEvent); !ok || ce.DX != 3 || ce.DY != -4 || ce.Tag != d.Tag() {
		t.Errorf("cursor event = %#v", rec.events[0])
	}
	if we, ok := rec.events[1].(input.WheelEvent); !ok || we.Delta != -1 {
		t.Errorf("wheel event = %#v", rec.events[1])
	}
	if matched.Load() != 0 {
		t.Error("synthetic cursor event was matched")
	}
}

func TestConcurrentSendsDoNotInterleave(t *testing.T) {
	d, _ := newDispatcher(t)
	rec := newRecorder()
	s := send.New(rec, d)

	var wg sync.WaitGroup
	for _, b := range []input.Button{input.A, input.B, input.C, input.D} {
		wg.Add(1)
		go func(b input.Button) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = s.Send(send.Wrap([]input.Button{input.LShift}, b))
			}
		}(b)
	}
	wg.Wait()

	got := rec.buttons()
	if len(got)%4 != 0 {
		t.Fatalf("sent %d events", len(got))
	}
	for i := 0; i < len(got); i += 4 {
		target := got[i+1].Target
		if got[i].Target != input.LShift || got[i+2].Target != target || got[i+3].Target != input.LShift {
			t.Fatalf("interleaved sequence at %d: %v", i, got[i:i+4])
		}
	}
}
