// Package app wires the configuration, the rule registry, the dispatcher
// and a native backend into a running remapper, and reloads rules when the
// configuration changes on disk.
package app

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/hookmap/internal/config"
	"github.com/dshills/hookmap/internal/config/watcher"
	"github.com/dshills/hookmap/internal/input/dispatch"
	"github.com/dshills/hookmap/internal/input/hook"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/input/send"
	"github.com/dshills/hookmap/internal/input/state"
	"github.com/dshills/hookmap/internal/native"
)

// shutdownTimeout bounds how long Run waits for in-flight handlers.
const shutdownTimeout = 3 * time.Second

// Application runs one configuration against one backend.
type Application struct {
	mu sync.Mutex

	cfg     *config.Config
	path    string
	logger  *slog.Logger
	level   *slog.LevelVar
	watch   bool
	backend *native.Backend

	registry   *hotkey.Registry
	tracker    *state.Tracker
	dispatcher *hook.Dispatcher
	sender     *send.Sender
	pool       *dispatch.AsyncDispatcher

	ruleIDs []hotkey.RuleID
	rules   *config.RuleSet

	failures atomic.Uint64
	running  atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithLevel lets Reload apply a changed log_level.
func WithLevel(level *slog.LevelVar) Option {
	return func(a *Application) {
		a.level = level
	}
}

// WithConfigPath records the file cfg was loaded from. Reload and
// watching need it.
func WithConfigPath(path string) Option {
	return func(a *Application) {
		a.path = path
	}
}

// WithWatch reloads the rules whenever the configuration file or one of
// its scripts changes.
func WithWatch(enabled bool) Option {
	return func(a *Application) {
		a.watch = enabled
	}
}

// WithBackend uses b instead of opening the backend named in the
// configuration.
func WithBackend(b *native.Backend) Option {
	return func(a *Application) {
		a.backend = b
	}
}

// New builds the runtime for cfg and compiles its rules. Nothing is
// installed until Run.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: hotkey.NewRegistry(),
		tracker:  state.NewTracker(),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.backend == nil {
		b, err := native.Open(cfg.Backend, native.Options{
			Logger:  a.logger,
			Devices: cfg.Devices,
			NoGrab:  cfg.NoGrab,
			Quit:    a.Quit,
		})
		if err != nil {
			return nil, NewOperationError("open backend", cfg.Backend, err)
		}
		a.backend = b
	}

	a.pool = dispatch.NewAsyncDispatcher(
		dispatch.WithWorkerCount(cfg.Dispatch.Workers),
		dispatch.WithQueueSize(cfg.Dispatch.QueueSize),
		dispatch.WithAsyncTimeout(cfg.Dispatch.Timeout.Std()),
	)
	a.dispatcher = hook.New(a.registry, a.tracker,
		hook.WithLogger(a.logger),
		hook.WithPool(a.pool),
		hook.WithErrorSink(func(*hook.HandlerError) { a.failures.Add(1) }),
	)
	a.sender = send.New(a.backend.Injector, a.dispatcher,
		send.WithModifierState(a.tracker),
		send.WithLogger(a.logger),
	)

	rs, err := a.compile(cfg)
	if err != nil {
		return nil, NewOperationError("compile rules", a.path, err)
	}
	a.rules = rs
	a.ruleIDs = a.registry.RegisterAll(rs.Rules)
	a.logger.Info("[app] rules loaded", "count", len(rs.Rules), "backend", a.backend.Name)
	return a, nil
}

func (a *Application) compile(cfg *config.Config) (*config.RuleSet, error) {
	return cfg.Rules(config.Env{
		Sender: a.sender,
		State:  a.tracker,
		Logger: a.logger,
	})
}

// Registry returns the live rule registry.
func (a *Application) Registry() *hotkey.Registry { return a.registry }

// Dispatcher returns the dispatcher events are routed to.
func (a *Application) Dispatcher() *hook.Dispatcher { return a.dispatcher }

// Sender returns the sender rules inject through.
func (a *Application) Sender() *send.Sender { return a.sender }

// PoolStats returns the counters of the pool that runs async handlers.
func (a *Application) PoolStats() dispatch.AsyncDispatcherStats { return a.pool.Stats() }

// Failures returns how many handler failures have been reported.
func (a *Application) Failures() uint64 { return a.failures.Load() }

// Quit asks Run to return. It is safe to call more than once and from any
// goroutine.
func (a *Application) Quit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// Run installs the hook and blocks until ctx ends, Quit is called or the
// hook is lost. A lost hook is returned as an error wrapping
// hook.ErrHookLost; the other two return nil.
func (a *Application) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	h, err := hook.Install(ctx, a.backend.Hook, a.dispatcher)
	if err != nil {
		a.closeRules()
		return NewOperationError("install", a.backend.Name, err)
	}

	var w *watcher.Watcher
	if a.watch && a.path != "" {
		w, err = a.startWatcher()
		if err != nil {
			a.logger.Warn("[app] config watching disabled", "error", err)
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
	case <-a.quit:
	case runErr = <-h.Lost():
	}

	// Closing waits for a running reload, so none can follow closeRules.
	if w != nil {
		if err := w.Close(); err != nil {
			a.logger.Warn("[app] closing watcher", "error", err)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.Uninstall(stopCtx); err != nil && !errors.Is(err, hook.ErrNotInstalled) {
		a.logger.Warn("[app] uninstall", "error", err)
	}
	a.closeRules()

	st := a.pool.Stats()
	a.logger.Info("[app] handler pool",
		"enqueued", st.Enqueued,
		"succeeded", st.Succeeded,
		"failed", st.Failed,
		"dropped", st.Dropped,
		"timed_out", st.TimedOut,
		"queue_depth", st.QueueDepth,
		"avg_duration", st.AvgDuration,
	)
	return runErr
}

func (a *Application) closeRules() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registry.UnregisterAll(a.ruleIDs)
	a.ruleIDs = nil
	if a.rules != nil {
		if err := a.rules.Close(); err != nil {
			a.logger.Warn("[app] closing scripts", "error", err)
		}
		a.rules = nil
	}
}

// Reload reads the configuration file again and swaps the rule set in one
// step. On error the current rules stay active. Backend and dispatch
// settings only take effect on restart.
func (a *Application) Reload() error {
	if a.path == "" {
		return ErrNoConfigPath
	}
	cfg, err := config.Load(a.path)
	if err != nil {
		return NewOperationError("reload", a.path, err)
	}
	cfg.ApplyEnv()

	rs, err := a.compile(cfg)
	if err != nil {
		return NewOperationError("reload", a.path, err)
	}

	a.mu.Lock()
	old := a.rules
	a.ruleIDs = a.registry.Replace(a.ruleIDs, rs.Rules)
	a.rules = rs
	prev := a.cfg
	a.cfg = cfg
	a.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			a.logger.Warn("[app] closing replaced scripts", "error", err)
		}
	}
	if a.level != nil {
		a.level.Set(ParseLogLevel(cfg.LogLevel))
	}
	if cfg.Backend != prev.Backend || cfg.Dispatch != prev.Dispatch {
		a.logger.Warn("[app] backend and dispatch changes apply after restart")
	}
	a.logger.Info("[app] rules reloaded", "count", len(rs.Rules))
	return nil
}

// watchedFiles is the configuration file and every script it names.
func (a *Application) watchedFiles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	files := []string{a.path}
	seen := map[string]bool{a.path: true}
	for _, h := range a.cfg.Hotkeys {
		if h.Script == "" {
			continue
		}
		p := h.Script
		if !filepath.IsAbs(p) {
			p = filepath.Join(a.cfg.Dir, p)
		}
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	return files
}

func (a *Application) startWatcher() (*watcher.Watcher, error) {
	var w *watcher.Watcher
	w, err := watcher.New(func(paths []string) {
		a.logger.Debug("[app] config changed", "paths", paths)
		if err := a.Reload(); err != nil {
			a.logger.Error("[app] reload failed, keeping previous rules", "error", err)
			return
		}
		for _, f := range a.watchedFiles() {
			if err := w.Watch(f); err != nil {
				a.logger.Warn("[app] watch", "path", f, "error", err)
			}
		}
	}, watcher.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	for _, f := range a.watchedFiles() {
		if err := w.Watch(f); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return w, nil
}
