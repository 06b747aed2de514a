package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/hookmap/internal/config/loader"
	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/input/send"
)

// maxIncludeDepth limits nested includes.
const maxIncludeDepth = 8

// DefaultFunction is the Lua function called when a hotkey names a script
// but no function.
const DefaultFunction = "on_event"

// Config is the whole configuration file.
type Config struct {
	Include   []string `toml:"include" yaml:"include"`
	LogLevel  string   `toml:"log_level" yaml:"log_level"`
	LogFormat string   `toml:"log_format" yaml:"log_format"`
	Backend   string   `toml:"backend" yaml:"backend"`
	Devices   []string `toml:"devices" yaml:"devices"`
	NoGrab    bool     `toml:"no_grab" yaml:"no_grab"`
	Dispatch  Dispatch `toml:"dispatch" yaml:"dispatch"`
	Script    Script   `toml:"script" yaml:"script"`
	Remaps    []Remap  `toml:"remap" yaml:"remap"`
	Hotkeys   []Hotkey `toml:"hotkey" yaml:"hotkey"`

	// Dir is the directory relative script paths are resolved against.
	// It is set by Load.
	Dir string `toml:"-" yaml:"-"`
}

// Dispatch sizes the worker pool that runs async handlers.
type Dispatch struct {
	Workers   int      `toml:"workers" yaml:"workers"`
	QueueSize int      `toml:"queue_size" yaml:"queue_size"`
	Timeout   Duration `toml:"timeout" yaml:"timeout"`
}

// Script configures Lua handlers.
type Script struct {
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// Remap makes one button act as another.
type Remap struct {
	From string `toml:"from" yaml:"from"`
	To   string `toml:"to" yaml:"to"`
}

// Hotkey is one rule.
type Hotkey struct {
	Name string `toml:"name" yaml:"name"`
	// Keys is a chord such as "Ctrl+Shift+J". The last part may be
	// "Wheel" or "Cursor" to react to mouse motion.
	Keys string `toml:"keys" yaml:"keys"`
	// Without lists buttons that must be released.
	Without []string `toml:"without" yaml:"without"`
	// On is press, release, both or release_alone.
	On    string `toml:"on" yaml:"on"`
	Block bool   `toml:"block" yaml:"block"`
	// Async runs the handler on the worker pool. Hotkeys with a script are
	// async unless Inline is set, since a script may outlast the OS hook
	// timeout.
	Async  bool `toml:"async" yaml:"async"`
	Inline bool `toml:"inline" yaml:"inline"`
	// Send is a sequence like "Ctrl+C Ctrl+V".
	Send string `toml:"send" yaml:"send"`
	// IgnoreModifiers releases held modifiers around Send.
	IgnoreModifiers bool   `toml:"ignore_modifiers" yaml:"ignore_modifiers"`
	Script          string `toml:"script" yaml:"script"`
	Function        string `toml:"function" yaml:"function"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Backend:   "auto",
		Dispatch: Dispatch{
			Workers:   4,
			QueueSize: 256,
			Timeout:   Duration(5 * time.Second),
		},
		Script: Script{
			Timeout: Duration(2 * time.Second),
		},
	}
}

// Load reads the file at path on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	return LoadWith(loader.New(), path)
}

// LoadWith is Load on a custom loader.
func LoadWith(l *loader.Loader, path string) (*Config, error) {
	cfg := Default()
	if err := load(l, path, cfg, maxIncludeDepth); err != nil {
		return nil, err
	}
	cfg.Include = nil
	cfg.Dir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// load decodes path into cfg. Included files are decoded first into a
// separate value whose rules are prepended.
func load(l *loader.Loader, path string, cfg *Config, depth int) error {
	if depth <= 0 {
		return fmt.Errorf("%w: %s", ErrIncludeDepthExceeded, path)
	}
	if err := l.Load(path, cfg); err != nil {
		return err
	}

	includes := cfg.Include
	cfg.Include = nil
	var remaps []Remap
	var hotkeys []Hotkey
	for _, inc := range includes {
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(filepath.Dir(path), inc)
		}
		var sub Config
		if err := load(l, incPath, &sub, depth-1); err != nil {
			return fmt.Errorf("loading include %s: %w", incPath, err)
		}
		// Script paths in an included file are relative to that file.
		for i := range sub.Hotkeys {
			if s := sub.Hotkeys[i].Script; s != "" && !filepath.IsAbs(s) {
				rel, err := filepath.Rel(filepath.Dir(path), filepath.Join(filepath.Dir(incPath), s))
				if err == nil {
					sub.Hotkeys[i].Script = rel
				}
			}
		}
		remaps = append(remaps, sub.Remaps...)
		hotkeys = append(hotkeys, sub.Hotkeys...)
	}
	cfg.Remaps = append(remaps, cfg.Remaps...)
	cfg.Hotkeys = append(hotkeys, cfg.Hotkeys...)
	return nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	backends   = []string{"auto", "os", "terminal"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// Validate checks every setting and rule. All problems are reported,
// joined into one error.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if !oneOf(c.LogLevel, logLevels) {
		add(invalid("log_level", fmt.Sprintf("must be one of %s", strings.Join(logLevels, ", ")), nil))
	}
	if !oneOf(c.LogFormat, logFormats) {
		add(invalid("log_format", fmt.Sprintf("must be one of %s", strings.Join(logFormats, ", ")), nil))
	}
	if !oneOf(c.Backend, backends) {
		add(invalid("backend", fmt.Sprintf("must be one of %s", strings.Join(backends, ", ")), nil))
	}
	if c.Dispatch.Workers < 1 {
		add(invalid("dispatch.workers", "must be at least 1", nil))
	}
	if c.Dispatch.QueueSize < 1 {
		add(invalid("dispatch.queue_size", "must be at least 1", nil))
	}
	if c.Dispatch.Timeout < 0 {
		add(invalid("dispatch.timeout", "must not be negative", nil))
	}
	if c.Script.Timeout < 0 {
		add(invalid("script.timeout", "must not be negative", nil))
	}

	for i, r := range c.Remaps {
		field := fmt.Sprintf("remap[%d]", i)
		if _, err := input.ParseButton(r.From); err != nil {
			add(invalid(field+".from", "invalid button", err))
		}
		if _, err := input.ParseButton(r.To); err != nil {
			add(invalid(field+".to", "invalid button", err))
		}
	}

	for i, h := range c.Hotkeys {
		add(h.validate(fmt.Sprintf("hotkey[%d]", i)))
	}

	return errors.Join(errs...)
}

func (h *Hotkey) validate(field string) error {
	var errs []error
	if _, err := parseKeys(h.Keys); err != nil {
		errs = append(errs, invalid(field+".keys", "invalid keys", err))
	}
	for j, w := range h.Without {
		if _, err := input.ParseButton(w); err != nil {
			errs = append(errs, invalid(fmt.Sprintf("%s.without[%d]", field, j), "invalid button", err))
		}
	}
	if _, err := hotkey.ParseActionKind(h.On); err != nil {
		errs = append(errs, invalid(field+".on", "must be press, release, both or release_alone", err))
	}
	if h.Send != "" {
		if _, err := send.Parse(h.Send); err != nil {
			errs = append(errs, invalid(field+".send", "invalid sequence", err))
		}
	}
	if h.Async && h.Inline {
		errs = append(errs, invalid(field+".inline", "conflicts with async", nil))
	}
	if h.Function != "" && h.Script == "" {
		errs = append(errs, invalid(field+".function", "requires script", nil))
	}
	if h.Send == "" && h.Script == "" && !h.Block {
		errs = append(errs, invalid(field, "does nothing: set send, script or block", nil))
	}
	return errors.Join(errs...)
}

// keys is a parsed Hotkey.Keys.
type keys struct {
	mods   []input.Button
	target input.Button
	source input.EventKind
}

// parseKeys parses a chord whose last part may be Wheel or Cursor.
func parseKeys(spec string) (keys, error) {
	parts := strings.Split(spec, "+")
	last := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))

	var source input.EventKind
	switch last {
	case "wheel":
		source = input.WheelKind
	case "cursor":
		source = input.CursorKind
	default:
		chord, err := input.ParseChord(spec)
		if err != nil {
			return keys{}, err
		}
		return keys{mods: chord.Modifiers, target: chord.Target, source: input.ButtonKind}, nil
	}

	k := keys{source: source}
	for _, p := range parts[:len(parts)-1] {
		b, err := input.ParseButton(p)
		if err != nil {
			return keys{}, err
		}
		k.mods = append(k.mods, b)
	}
	return k, nil
}
