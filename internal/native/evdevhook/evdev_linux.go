//go:build linux

package evdevhook

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	evdev "github.com/holoplot/go-evdev"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hook"
)

// DefaultDeviceName names the uinput device that replays and injects input.
const DefaultDeviceName = "hookmap virtual input"

// Backend implements hook.Native and send.Injector on evdev and uinput.
type Backend struct {
	logger *slog.Logger
	name   string
	paths  []string
	grab   bool

	mu  sync.Mutex
	out *evdev.InputDevice
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithDevices restricts the backend to the given /dev/input/event* paths
// instead of every keyboard and mouse found.
func WithDevices(paths ...string) Option {
	return func(b *Backend) {
		b.paths = paths
	}
}

// WithoutGrab observes devices without grabbing them. Other readers still
// see every event, so Block has no effect and nothing is replayed.
func WithoutGrab() Option {
	return func(b *Backend) {
		b.grab = false
	}
}

// WithDeviceName sets the name of the uinput device.
func WithDeviceName(name string) Option {
	return func(b *Backend) {
		if name != "" {
			b.name = name
		}
	}
}

// New creates an evdev backend. Devices are opened by Run.
func New(opts ...Option) *Backend {
	b := &Backend{
		logger: slog.Default(),
		name:   DefaultDeviceName,
		grab:   true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type rawEvent struct {
	dev *evdev.InputDevice
	ev  *evdev.InputEvent
}

type readError struct {
	dev *evdev.InputDevice
	err error
}

// Run implements hook.Native.
func (b *Backend) Run(ctx context.Context, cb hook.Callback, ready func()) error {
	out, err := evdev.CreateDevice(b.name, evdev.InputID{BusType: 0x06, Vendor: 0x1, Product: 0x1, Version: 1}, capabilities())
	if err != nil {
		return fmt.Errorf("create uinput device: %w", err)
	}
	b.mu.Lock()
	b.out = out
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.out = nil
		b.mu.Unlock()
		_ = out.Close()
	}()

	devs, err := b.openDevices()
	if err != nil {
		return err
	}
	defer closeDevices(devs)

	events := make(chan rawEvent, 64)
	errs := make(chan readError, len(devs))
	var wg sync.WaitGroup
	for _, d := range devs {
		wg.Add(1)
		go func(d *evdev.InputDevice) {
			defer wg.Done()
			read(ctx, d, events, errs)
		}(d)
	}
	defer wg.Wait()

	ready()

	live := len(devs)
	for {
		select {
		case <-ctx.Done():
			closeDevices(devs)
			return nil
		case re := <-events:
			b.handle(cb, re)
		case re := <-errs:
			if ctx.Err() != nil {
				return nil
			}
			live--
			b.logger.Warn("[evdev] device lost", "path", re.dev.Path(), "error", re.err)
			if live == 0 {
				return fmt.Errorf("all input devices lost: %w", re.err)
			}
		}
	}
}

func read(ctx context.Context, d *evdev.InputDevice, events chan<- rawEvent, errs chan<- readError) {
	for {
		ev, err := d.ReadOne()
		if err != nil {
			errs <- readError{dev: d, err: err}
			return
		}
		select {
		case events <- rawEvent{dev: d, ev: ev}:
		case <-ctx.Done():
			return
		}
	}
}

func (b *Backend) handle(cb hook.Callback, re rawEvent) {
	raw := re.ev
	if raw.Type == evdev.EV_SYN || raw.Type == evdev.EV_MSC {
		return
	}

	ev, ok := decode(raw)
	if ok && hook.Decide(cb, ev) == input.Block {
		return
	}
	if !b.grab {
		return
	}
	if err := b.write(*raw); err != nil {
		b.logger.Error("[evdev] replay failed", "type", raw.Type, "code", raw.Code, "value", raw.Value, "error", err)
	}
}

// Inject implements send.Injector.
func (b *Backend) Inject(ev input.Event) error {
	raw, err := encode(ev)
	if err != nil {
		return err
	}
	return b.write(raw...)
}

// write emits raw followed by a SYN_REPORT.
func (b *Backend) write(raw ...evdev.InputEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.out == nil {
		return ErrNotRunning
	}
	for i := range raw {
		if err := b.out.WriteOne(&raw[i]); err != nil {
			return err
		}
	}
	return b.out.WriteOne(&evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT})
}

func (b *Backend) openDevices() ([]*evdev.InputDevice, error) {
	paths := b.paths
	if len(paths) == 0 {
		found, err := evdev.ListDevicePaths()
		if err != nil {
			return nil, fmt.Errorf("list input devices: %w", err)
		}
		for _, p := range found {
			if p.Name == b.name {
				continue
			}
			paths = append(paths, p.Path)
		}
	}

	var devs []*evdev.InputDevice
	for _, path := range paths {
		d, err := evdev.OpenWithFlags(path, os.O_RDONLY)
		if err != nil {
			b.logger.Debug("[evdev] skipping device", "path", path, "error", err)
			continue
		}
		if !usable(d) {
			_ = d.Close()
			continue
		}
		if b.grab {
			if err := d.Grab(); err != nil {
				b.logger.Warn("[evdev] grab failed", "path", path, "error", err)
				_ = d.Close()
				continue
			}
		}
		name, _ := d.Name()
		b.logger.Info("[evdev] opened device", "path", path, "name", name, "grabbed", b.grab)
		devs = append(devs, d)
	}

	if len(devs) == 0 {
		return nil, ErrNoDevices
	}
	return devs, nil
}

// usable reports whether d looks like a keyboard or a mouse.
func usable(d *evdev.InputDevice) bool {
	for _, c := range d.CapableEvents(evdev.EV_KEY) {
		if c == evdev.KEY_A || c == evdev.BTN_LEFT {
			return true
		}
	}
	return false
}

func closeDevices(devs []*evdev.InputDevice) {
	for _, d := range devs {
		_ = d.Close()
	}
}
