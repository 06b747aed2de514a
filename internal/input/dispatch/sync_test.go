package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/hookmap/internal/input"
)

type testHandler struct {
	fn func(ctx context.Context, ev input.Event) error
}

func (h *testHandler) Handle(ctx context.Context, ev input.Event) error {
	return h.fn(ctx, ev)
}

func newTestHandler(fn func(ctx context.Context, ev input.Event) error) Handler {
	return &testHandler{fn: fn}
}

var testEvent = input.NewPress(input.A)

func TestResult_Predicates(t *testing.T) {
	tests := []struct {
		name    string
		result  Result
		success bool
		isErr   bool
		isPanic bool
	}{
		{"success", Result{Success: true}, true, false, false},
		{"error", Result{Error: errors.New("boom")}, false, true, false},
		{"panic", Result{Panicked: true, PanicValue: "boom"}, false, false, true},
		{"skipped", Result{Skipped: true, Error: context.Canceled}, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := tt.result.IsError(); got != tt.isErr {
				t.Errorf("IsError() = %v, want %v", got, tt.isErr)
			}
			if got := tt.result.IsPanic(); got != tt.isPanic {
				t.Errorf("IsPanic() = %v, want %v", got, tt.isPanic)
			}
			if (tt.result.Err() == nil) != tt.success {
				t.Errorf("Err() = %v", tt.result.Err())
			}
		})
	}
}

func TestResult_ErrWrapsPanic(t *testing.T) {
	r := Result{Panicked: true, PanicValue: "kaboom", PanicStack: []byte("stack")}
	var pe *PanicError
	if !errors.As(r.Err(), &pe) {
		t.Fatalf("Err() = %T, want *PanicError", r.Err())
	}
	if pe.Value != "kaboom" || string(pe.Stack) != "stack" {
		t.Errorf("PanicError = %+v", pe)
	}
}

func TestSyncDispatcher_Success(t *testing.T) {
	d := NewSyncDispatcher()

	var got input.Event
	result := d.Dispatch(context.Background(), testEvent, newTestHandler(func(ctx context.Context, ev input.Event) error {
		got = ev
		return nil
	}))

	if !result.IsSuccess() {
		t.Errorf("expected success, got %+v", result)
	}
	if got != input.Event(testEvent) {
		t.Errorf("handler saw %v", got)
	}
	if s := d.Stats(); s.Dispatched != 1 || s.Succeeded != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestSyncDispatcher_Error(t *testing.T) {
	d := NewSyncDispatcher()
	want := errors.New("handler error")

	result := d.Dispatch(context.Background(), testEvent, newTestHandler(func(context.Context, input.Event) error {
		return want
	}))

	if !errors.Is(result.Error, want) {
		t.Errorf("Error = %v, want %v", result.Error, want)
	}
	if s := d.Stats(); s.Failed != 1 {
		t.Errorf("Failed = %d", s.Failed)
	}
}

func TestSyncDispatcher_PanicRecovery(t *testing.T) {
	var reported any
	d := NewSyncDispatcher(WithPanicHandler(func(ev input.Event, v any, stack []byte) {
		reported = v
		if len(stack) == 0 {
			t.Error("expected a stack trace")
		}
	}))

	result := d.Dispatch(context.Background(), testEvent, newTestHandler(func(context.Context, input.Event) error {
		panic("test panic")
	}))

	if !result.Panicked || result.PanicValue != "test panic" {
		t.Errorf("result = %+v", result)
	}
	if reported != "test panic" {
		t.Errorf("panic handler saw %v", reported)
	}
	if s := d.Stats(); s.Panicked != 1 {
		t.Errorf("Panicked = %d", s.Panicked)
	}
}

func TestSyncDispatcher_PanicHandlerPanics(t *testing.T) {
	d := NewSyncDispatcher(WithPanicHandler(func(input.Event, any, []byte) {
		panic("handler of handlers")
	}))

	result := d.Dispatch(context.Background(), testEvent, newTestHandler(func(context.Context, input.Event) error {
		panic("first")
	}))
	if !result.Panicked {
		t.Error("expected panicked result")
	}
}

func TestSyncDispatcher_CancelledContext(t *testing.T) {
	d := NewSyncDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	result := d.Dispatch(ctx, testEvent, newTestHandler(func(context.Context, input.Event) error {
		called = true
		return nil
	}))

	if called {
		t.Error("handler ran with a cancelled context")
	}
	if !result.Skipped || !errors.Is(result.Error, context.Canceled) {
		t.Errorf("result = %+v", result)
	}
	if s := d.Stats(); s.Skipped != 1 {
		t.Errorf("Skipped = %d", s.Skipped)
	}
}

func TestSyncDispatcher_Timeout(t *testing.T) {
	d := NewSyncDispatcher(WithTimeout(10 * time.Millisecond))

	result := d.Dispatch(context.Background(), testEvent, newTestHandler(func(ctx context.Context, _ input.Event) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	if !errors.Is(result.Error, context.DeadlineExceeded) {
		t.Errorf("Error = %v, want deadline exceeded", result.Error)
	}
	if result.Duration <= 0 {
		t.Error("expected a duration")
	}
}
