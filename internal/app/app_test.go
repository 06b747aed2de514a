package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/hookmap/internal/config"
	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hook"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/native"
)

// fakeNative feeds events from a channel and records the decisions.
type fakeNative struct {
	events    chan input.Event
	decisions chan input.Decision
	exitWith  chan error

	mu       sync.Mutex
	injected []input.Event
}

func newFakeNative() *fakeNative {
	return &fakeNative{
		events:    make(chan input.Event),
		decisions: make(chan input.Decision, 16),
		exitWith:  make(chan error, 1),
	}
}

func (f *fakeNative) Run(ctx context.Context, cb hook.Callback, ready func()) error {
	ready()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-f.exitWith:
			return err
		case ev := <-f.events:
			f.decisions <- hook.Decide(cb, ev)
		}
	}
}

func (f *fakeNative) Inject(ev input.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.injected = append(f.injected, ev)
	return nil
}

func (f *fakeNative) Injected() []input.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]input.Event(nil), f.injected...)
}

func (f *fakeNative) backend() *native.Backend {
	return &native.Backend{Name: "fake", Hook: f, Injector: f}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// startApp runs a in the background and returns a function that stops it
// and reports Run's error.
func startApp(t *testing.T, a *Application) func() error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !hook.Installed() {
		if time.Now().After(deadline) {
			t.Fatal("hook was not installed")
		}
		time.Sleep(time.Millisecond)
	}
	return func() error {
		a.Quit()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return")
			return nil
		}
	}
}

func waitUninstalled(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hook.Installed() {
		if time.Now().After(deadline) {
			t.Fatal("hook still installed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunRemap(t *testing.T) {
	cfg := config.Default()
	cfg.Remaps = []config.Remap{{From: "A", To: "B"}}

	fake := newFakeNative()
	a, err := New(cfg, WithBackend(fake.backend()), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stop := startApp(t, a)

	fake.events <- input.NewPress(input.A)
	if d := <-fake.decisions; d != input.Block {
		t.Errorf("press A decision = %v, want block", d)
	}
	fake.events <- input.NewPress(input.C)
	if d := <-fake.decisions; d != input.Dispatch {
		t.Errorf("press C decision = %v, want dispatch", d)
	}

	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitUninstalled(t)

	got := fake.Injected()
	if len(got) != 1 {
		t.Fatalf("injected %d events, want 1: %v", len(got), got)
	}
	be, ok := got[0].(input.ButtonEvent)
	if !ok || be.Target != input.B || be.Action != input.Press {
		t.Errorf("injected %v, want press B", got[0])
	}
	if be.Tag != a.Dispatcher().Tag() {
		t.Errorf("injected tag = %#x, want dispatcher tag", uint64(be.Tag))
	}
	if a.Registry().Len() != 0 {
		t.Errorf("registry has %d rules after Run, want 0", a.Registry().Len())
	}
}

func TestRunHookLost(t *testing.T) {
	fake := newFakeNative()
	a, err := New(config.Default(), WithBackend(fake.backend()), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(context.Background()) }()
	for !hook.Installed() {
		time.Sleep(time.Millisecond)
	}

	fake.exitWith <- errors.New("device unplugged")
	select {
	case err := <-errCh:
		if !errors.Is(err, hook.ErrHookLost) {
			t.Errorf("Run error = %v, want ErrHookLost", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after hook loss")
	}
	waitUninstalled(t)
}

func TestRunTwice(t *testing.T) {
	fake := newFakeNative()
	a, err := New(config.Default(), WithBackend(fake.backend()), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stop := startApp(t, a)
	if err := a.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run = %v, want ErrAlreadyRunning", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitUninstalled(t)
}

func TestFailuresCounted(t *testing.T) {
	fake := newFakeNative()
	a, err := New(config.Default(), WithBackend(fake.backend()), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Registry().Register(hotkey.Rule{
		Source: input.ButtonKind,
		Target: hotkey.Exact(input.F1),
		Action: hotkey.OnPress,
		Handler: hotkey.HandlerFunc(func(context.Context, input.Event) error {
			return errors.New("boom")
		}),
	})
	stop := startApp(t, a)

	fake.events <- input.NewPress(input.F1)
	<-fake.decisions

	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitUninstalled(t)
	if a.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", a.Failures())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hookmap.toml")
	writeFile(t, path, `
log_level = "info"

[[remap]]
from = "CapsLock"
to = "Esc"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	level := new(slog.LevelVar)
	fake := newFakeNative()
	a, err := New(cfg,
		WithBackend(fake.backend()),
		WithLogger(quietLogger()),
		WithLevel(level),
		WithConfigPath(path),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Registry().Len() != 1 {
		t.Fatalf("Len() = %d, want 1", a.Registry().Len())
	}

	writeFile(t, path, `
log_level = "debug"

[[remap]]
from = "CapsLock"
to = "Esc"

[[hotkey]]
keys = "Ctrl+J"
send = "Down"
block = true
`)
	if err := a.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if a.Registry().Len() != 2 {
		t.Errorf("Len() after reload = %d, want 2", a.Registry().Len())
	}
	if level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", level.Level())
	}

	writeFile(t, path, `[[hotkey]]
keys = "NoSuchKey"
`)
	err = a.Reload()
	if err == nil {
		t.Fatal("Reload of invalid file succeeded")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Op != "reload" {
		t.Errorf("error = %v, want reload OperationError", err)
	}
	if a.Registry().Len() != 2 {
		t.Errorf("Len() after failed reload = %d, want 2", a.Registry().Len())
	}
}

func TestReloadWithoutPath(t *testing.T) {
	a, err := New(config.Default(), WithBackend(newFakeNative().backend()), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Reload(); !errors.Is(err, ErrNoConfigPath) {
		t.Errorf("Reload() = %v, want ErrNoConfigPath", err)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hookmap.toml")
	writeFile(t, path, "[[remap]]\nfrom = \"A\"\nto = \"B\"\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	fake := newFakeNative()
	a, err := New(cfg,
		WithBackend(fake.backend()),
		WithLogger(quietLogger()),
		WithConfigPath(path),
		WithWatch(true),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stop := startApp(t, a)
	defer func() {
		if err := stop(); err != nil {
			t.Errorf("Run: %v", err)
		}
		waitUninstalled(t)
	}()

	// Give the watcher time to register before the write.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "[[remap]]\nfrom = \"A\"\nto = \"B\"\n\n[[remap]]\nfrom = \"C\"\nto = \"D\"\n")

	deadline := time.Now().Add(3 * time.Second)
	for a.Registry().Len() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("rules not reloaded, Len() = %d", a.Registry().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	logger := NewLogger(&buf, level, "json")
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("json output missing record: %s", buf.String())
	}

	buf.Reset()
	level.Set(slog.LevelDebug)
	NewLogger(&buf, level, "text").Debug("now visible")
	if !strings.Contains(buf.String(), "msg=\"now visible\"") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestOperationError(t *testing.T) {
	base := errors.New("io error")
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{"nil error", nil, ""},
		{"op only", &OperationError{Op: "reload"}, "reload"},
		{"op and target", &OperationError{Op: "reload", Target: "a.toml"}, "reload a.toml"},
		{"full", NewOperationError("reload", "a.toml", base), "reload a.toml: io error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	err := NewOperationError("reload", "a.toml", base)
	if !errors.Is(err, base) {
		t.Error("errors.Is does not reach the wrapped error")
	}
}

func TestNoReloadAfterRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hookmap.toml")
	writeFile(t, path, "[[remap]]\nfrom = \"A\"\nto = \"B\"\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	a, err := New(cfg,
		WithBackend(newFakeNative().backend()),
		WithLogger(quietLogger()),
		WithConfigPath(path),
		WithWatch(true),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stop := startApp(t, a)
	time.Sleep(100 * time.Millisecond)
	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitUninstalled(t)

	writeFile(t, path, "[[remap]]\nfrom = \"C\"\nto = \"D\"\n")
	time.Sleep(500 * time.Millisecond)
	if n := a.Registry().Len(); n != 0 {
		t.Errorf("Len() after Run = %d, want 0", n)
	}
}

func TestPoolStatsLoggedAtShutdown(t *testing.T) {
	var buf bytes.Buffer
	fake := newFakeNative()
	a, err := New(config.Default(),
		WithBackend(fake.backend()),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	done := make(chan struct{})
	a.Registry().Register(hotkey.Rule{
		Source: input.ButtonKind,
		Target: hotkey.Exact(input.F2),
		Action: hotkey.OnPress,
		Mode:   hotkey.Async,
		Handler: hotkey.HandlerFunc(func(context.Context, input.Event) error {
			close(done)
			return nil
		}),
	})
	stop := startApp(t, a)

	fake.events <- input.NewPress(input.F2)
	<-fake.decisions
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler did not run")
	}

	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	waitUninstalled(t)

	st := a.PoolStats()
	if st.Enqueued != 1 || st.Succeeded != 1 {
		t.Errorf("PoolStats() = %+v, want one succeeded task", st)
	}
	if out := buf.String(); !strings.Contains(out, "[app] handler pool") || !strings.Contains(out, "succeeded=1") {
		t.Errorf("log missing pool stats:\n%s", out)
	}
}
