package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dshills/hookmap/internal/config/loader"
	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/input/send"
)

const sampleTOML = `
log_level = "debug"
backend = "terminal"
include = ["extra.toml"]

[dispatch]
workers = 2
queue_size = 16
timeout = "750ms"

[[remap]]
from = "CapsLock"
to = "LCtrl"

[[hotkey]]
keys = "Ctrl+Shift+J"
block = true
send = "Down"

[[hotkey]]
keys = "Alt+Wheel"
without = ["Shift"]
send = "Ctrl+Equal"
`

const extraTOML = `
[[remap]]
from = "RAlt"
to = "RCtrl"

[[hotkey]]
keys = "F1"
on = "release"
send = "H I"
`

const sampleYAML = `
log_level: warn
dispatch:
  workers: 8
  queue_size: 64
  timeout: 1s
remap:
  - from: CapsLock
    to: Esc
hotkey:
  - keys: Super+Space
    on: both
    block: true
`

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"cfg/hookmap.toml": {Data: []byte(sampleTOML)},
		"cfg/extra.toml":   {Data: []byte(extraTOML)},
		"cfg/hookmap.yaml": {Data: []byte(sampleYAML)},
	}
	l := loader.NewWithFS(fsys)

	t.Run("toml with include", func(t *testing.T) {
		cfg, err := LoadWith(l, "cfg/hookmap.toml")
		if err != nil {
			t.Fatalf("LoadWith() error = %v", err)
		}
		if cfg.LogLevel != "debug" || cfg.Backend != "terminal" {
			t.Errorf("scalars = %q, %q", cfg.LogLevel, cfg.Backend)
		}
		if cfg.Dispatch.Workers != 2 || cfg.Dispatch.QueueSize != 16 || cfg.Dispatch.Timeout.Std() != 750*time.Millisecond {
			t.Errorf("dispatch = %+v", cfg.Dispatch)
		}
		if cfg.Script.Timeout.Std() != 2*time.Second {
			t.Errorf("script timeout = %v, want default 2s", cfg.Script.Timeout.Std())
		}
		if len(cfg.Remaps) != 2 || cfg.Remaps[0].From != "RAlt" || cfg.Remaps[1].From != "CapsLock" {
			t.Errorf("remaps = %+v, want included first", cfg.Remaps)
		}
		if len(cfg.Hotkeys) != 3 || cfg.Hotkeys[0].Keys != "F1" {
			t.Errorf("hotkeys = %+v, want included first", cfg.Hotkeys)
		}
		if cfg.Dir != "cfg" {
			t.Errorf("Dir = %q, want cfg", cfg.Dir)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		cfg, err := LoadWith(l, "cfg/hookmap.yaml")
		if err != nil {
			t.Fatalf("LoadWith() error = %v", err)
		}
		if cfg.LogLevel != "warn" || cfg.Backend != "auto" {
			t.Errorf("scalars = %q, %q", cfg.LogLevel, cfg.Backend)
		}
		if cfg.Dispatch.Timeout.Std() != time.Second {
			t.Errorf("timeout = %v, want 1s", cfg.Dispatch.Timeout.Std())
		}
		if len(cfg.Hotkeys) != 1 || cfg.Hotkeys[0].On != "both" || !cfg.Hotkeys[0].Block {
			t.Errorf("hotkeys = %+v", cfg.Hotkeys)
		}
	})
}

func TestLoadIncludeCycle(t *testing.T) {
	fsys := fstest.MapFS{
		"a.toml": {Data: []byte(`include = ["b.toml"]`)},
		"b.toml": {Data: []byte(`include = ["a.toml"]`)},
	}
	_, err := LoadWith(loader.NewWithFS(fsys), "a.toml")
	if !errors.Is(err, ErrIncludeDepthExceeded) {
		t.Errorf("LoadWith() error = %v, want ErrIncludeDepthExceeded", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"backend", func(c *Config) { c.Backend = "x11" }, "backend"},
		{"workers", func(c *Config) { c.Dispatch.Workers = 0 }, "dispatch.workers"},
		{"queue", func(c *Config) { c.Dispatch.QueueSize = 0 }, "dispatch.queue_size"},
		{"remap from", func(c *Config) { c.Remaps = []Remap{{From: "Nope", To: "A"}} }, "remap[0].from"},
		{"remap to", func(c *Config) { c.Remaps = []Remap{{From: "A", To: ""}} }, "remap[0].to"},
		{"keys", func(c *Config) { c.Hotkeys = []Hotkey{{Keys: "A+B", Block: true}} }, "hotkey[0].keys"},
		{"wheel modifier", func(c *Config) { c.Hotkeys = []Hotkey{{Keys: "Nope+Wheel", Block: true}} }, "hotkey[0].keys"},
		{"without", func(c *Config) { c.Hotkeys = []Hotkey{{Keys: "A", Without: []string{"?"}, Block: true}} }, "hotkey[0].without[0]"},
		{"on", func(c *Config) { c.Hotkeys = []Hotkey{{Keys: "A", On: "hover", Block: true}} }, "hotkey[0].on"},
		{"send", func(c *Config) { c.Hotkeys = []Hotkey{{Keys: "A", Send: "Ctrl+"}} }, "hotkey[0].send"},
		{"async and inline", func(c *Config) { c.Hotkeys = []Hotkey{{Keys: "A", Send: "B", Async: true, Inline: true}} }, "hotkey[0].inline"},
		{"function without script", func(c *Config) { c.Hotkeys = []Hotkey{{Keys: "A", Function: "f", Block: true}} }, "hotkey[0].function"},
		{"no effect", func(c *Config) { c.Hotkeys = []Hotkey{{Keys: "A"}} }, "hotkey[0]"},
		{"block only", func(c *Config) { c.Hotkeys = []Hotkey{{Keys: "Insert", Block: true}} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("Validate() error = %v, want ErrValidationFailed", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Validate() error = %v, want field %q", err, tt.field)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	c := Default()
	c.LogLevel = "x"
	c.Backend = "y"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "log_level") || !strings.Contains(err.Error(), "backend") {
		t.Errorf("Validate() error = %v, want both fields reported", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"HOOKMAP_LOG_LEVEL": "error",
		"HOOKMAP_BACKEND":   "terminal",
		"HOOKMAP_DEVICES":   "/dev/input/event3, /dev/input/event7",
		"HOOKMAP_NO_GRAB":   "true",
		"HOOKMAP_WORKERS":   "x",
	}
	c := Default()
	c.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	if c.LogLevel != "error" || c.Backend != "terminal" || !c.NoGrab {
		t.Errorf("ApplyEnv() = %+v", c)
	}
	if len(c.Devices) != 2 || c.Devices[1] != "/dev/input/event7" {
		t.Errorf("Devices = %q", c.Devices)
	}
	if c.Dispatch.Workers != 4 {
		t.Errorf("Workers = %d, want unparsable value ignored", c.Dispatch.Workers)
	}
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []string
	ignored []string
}

func (f *fakeSender) Send(seq send.Sequence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, seq.String())
	return nil
}

func (f *fakeSender) SendIgnoringModifiers(seq send.Sequence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignored = append(f.ignored, seq.String())
	return nil
}

func (f *fakeSender) Move(dx, dy int32) error { return nil }
func (f *fakeSender) Rotate(delta int32) error { return nil }

type noButtons struct{}

func (noButtons) IsPressed(input.Button) bool { return false }

func TestRules(t *testing.T) {
	dir := t.TempDir()
	lua := `
function on_event(ev)
  hookmap.send("Z")
end
function on_wheel(ev)
  hookmap.send("W")
end
`
	if err := os.WriteFile(filepath.Join(dir, "act.lua"), []byte(lua), 0o600); err != nil {
		t.Fatal(err)
	}

	c := Default()
	c.Dir = dir
	c.Remaps = []Remap{{From: "CapsLock", To: "LCtrl"}}
	c.Hotkeys = []Hotkey{
		{Keys: "Ctrl+Shift+J", Block: true, Send: "Down"},
		{Name: "zoom", Keys: "Alt+Wheel", Without: []string{"Shift"}, Script: "act.lua", Function: "on_wheel", Async: true},
		{Keys: "F1", On: "release", Script: "act.lua", Send: "H", IgnoreModifiers: true},
		{Keys: "F2", On: "release_alone", Script: "act.lua", Inline: true},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	fs := &fakeSender{}
	rs, err := c.Rules(Env{Sender: fs, State: noButtons{}})
	if err != nil {
		t.Fatalf("Rules() error = %v", err)
	}
	defer rs.Close()

	if len(rs.Rules) != 5 {
		t.Fatalf("len(Rules) = %d, want 5", len(rs.Rules))
	}
	if len(rs.Scripts) != 1 {
		t.Errorf("len(Scripts) = %d, want one state per file", len(rs.Scripts))
	}

	remap := rs.Rules[0]
	if remap.Policy != input.Block || !remap.Target.Accepts(input.CapsLock) {
		t.Errorf("remap rule = %s", &remap)
	}

	j := rs.Rules[1]
	if j.Policy != input.Block || !j.Target.Accepts(input.J) || j.Action != hotkey.OnPress {
		t.Errorf("hotkey rule = %s", &j)
	}
	if got := j.Condition.String(); !strings.Contains(got, "+Ctrl") || !strings.Contains(got, "+Shift") {
		t.Errorf("condition = %s, want Ctrl and Shift held", got)
	}

	zoom := rs.Rules[2]
	if zoom.Name != "zoom" || zoom.Source != input.WheelKind || zoom.Mode != hotkey.Async {
		t.Errorf("wheel rule = %s", &zoom)
	}
	if got := zoom.Condition.String(); !strings.Contains(got, "+Alt") || !strings.Contains(got, "!Shift") {
		t.Errorf("condition = %s, want Alt held and Shift released", got)
	}

	f1 := rs.Rules[3]
	if f1.Action != hotkey.OnRelease {
		t.Errorf("F1 action = %v, want release", f1.Action)
	}

	modes := []struct {
		name string
		rule hotkey.Rule
		want hotkey.Mode
	}{
		{"send only", j, hotkey.Inline},
		{"script", f1, hotkey.Async},
		{"script inline", rs.Rules[4], hotkey.Inline},
	}
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			if m.rule.Mode != m.want {
				t.Errorf("mode = %v, want %v", m.rule.Mode, m.want)
			}
		})
	}
	if rs.Rules[4].Action != hotkey.OnReleaseAlone {
		t.Errorf("F2 action = %v, want release_alone", rs.Rules[4].Action)
	}

	ctx := context.Background()
	if err := j.Handler.Handle(ctx, input.NewPress(input.J)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := zoom.Handler.Handle(ctx, input.WheelEvent{Delta: 1}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := f1.Handler.Handle(ctx, input.NewRelease(input.F1)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	wantSent := []string{send.Raw(send.Click(input.DownArrow)).String(), send.Raw(send.Click(input.W)).String(), send.Raw(send.Click(input.Z)).String()}
	if strings.Join(fs.sent, "|") != strings.Join(wantSent, "|") {
		t.Errorf("sent = %q, want %q", fs.sent, wantSent)
	}
	if len(fs.ignored) != 1 {
		t.Errorf("ignored = %q, want one send ignoring modifiers", fs.ignored)
	}
}

func TestRulesMissingFunction(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "s.lua"), []byte("x = 1"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := Default()
	c.Dir = dir
	c.Hotkeys = []Hotkey{{Keys: "A", Script: "s.lua"}}

	if _, err := c.Rules(Env{Sender: &fakeSender{}, State: noButtons{}}); err == nil {
		t.Fatal("Rules() error = nil, want missing function error")
	}
}
