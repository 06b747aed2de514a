package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hotkey"
	"github.com/dshills/hookmap/internal/input/rule"
	"github.com/dshills/hookmap/internal/input/script"
	"github.com/dshills/hookmap/internal/input/send"
)

// Sender is what configured rules send through. *send.Sender implements it.
type Sender interface {
	script.Sender
	SendIgnoringModifiers(seq send.Sequence) error
}

// Env supplies the runtime pieces rules are built on.
type Env struct {
	Sender Sender
	State  script.ButtonState
	Logger *slog.Logger
}

// RuleSet is the compiled form of a configuration. Close releases the Lua
// states its handlers use; do it once the rules are unregistered.
type RuleSet struct {
	Rules   []hotkey.Rule
	Scripts []*script.State
}

// Close closes every script state.
func (rs *RuleSet) Close() error {
	var errs []error
	for _, s := range rs.Scripts {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Rules compiles the remaps and hotkeys, in file order with remaps first.
// Scripts are loaded once per file.
func (c *Config) Rules(env Env) (*RuleSet, error) {
	if env.Logger == nil {
		env.Logger = slog.Default()
	}

	rs := &RuleSet{}
	for _, r := range c.Remaps {
		from, err := input.ParseButton(r.From)
		if err != nil {
			return nil, err
		}
		to, err := input.ParseButton(r.To)
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, rule.Remap(from, to, env.Sender))
	}

	states := make(map[string]*script.State)
	for i := range c.Hotkeys {
		r, err := c.hotkeyRule(&c.Hotkeys[i], i, env, states, rs)
		if err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("hotkey[%d]: %w", i, err)
		}
		rs.Rules = append(rs.Rules, r)
	}
	return rs, nil
}

func (c *Config) hotkeyRule(h *Hotkey, i int, env Env, states map[string]*script.State, rs *RuleSet) (hotkey.Rule, error) {
	k, err := parseKeys(h.Keys)
	if err != nil {
		return hotkey.Rule{}, err
	}
	action, err := hotkey.ParseActionKind(h.On)
	if err != nil {
		return hotkey.Rule{}, err
	}

	var handlers []hotkey.Handler
	if h.Send != "" {
		seq, err := send.Parse(h.Send)
		if err != nil {
			return hotkey.Rule{}, err
		}
		if h.IgnoreModifiers {
			handlers = append(handlers, hotkey.HandlerFunc(func(context.Context, input.Event) error {
				return env.Sender.SendIgnoringModifiers(seq)
			}))
		} else {
			handlers = append(handlers, rule.SendHandler(env.Sender, seq))
		}
	}
	if h.Script != "" {
		st, err := c.loadScript(h.Script, env, states, rs)
		if err != nil {
			return hotkey.Rule{}, err
		}
		fn := h.Function
		if fn == "" {
			fn = DefaultFunction
		}
		if !st.HasFunction(fn) {
			return hotkey.Rule{}, fmt.Errorf("%w: %s in %s", script.ErrNotFunction, fn, h.Script)
		}
		handlers = append(handlers, st.Handler(fn))
	}

	name := h.Name
	if name == "" {
		name = fmt.Sprintf("hotkey[%d] %s", i, h.Keys)
	}
	b := rule.New(nil).Named(name).Hold(k.mods...)
	for _, w := range h.Without {
		btn, err := input.ParseButton(w)
		if err != nil {
			return hotkey.Rule{}, err
		}
		b.Without(btn)
	}
	if h.Block {
		b.Block()
	}
	if h.Async || (h.Script != "" && !h.Inline) {
		b.Async()
	}

	handler := rule.Handlers(handlers...)
	if k.source != input.ButtonKind {
		return b.BuildSource(k.source, handler), nil
	}
	return b.Build(hotkey.Exact(k.target), action, handler), nil
}

func (c *Config) loadScript(path string, env Env, states map[string]*script.State, rs *RuleSet) (*script.State, error) {
	if !filepath.IsAbs(path) && c.Dir != "" {
		path = filepath.Join(c.Dir, path)
	}
	if st, ok := states[path]; ok {
		return st, nil
	}

	st := script.NewState(env.Sender, env.State,
		script.WithName(filepath.Base(path)),
		script.WithLogger(env.Logger),
		script.WithTimeout(c.Script.Timeout.Std()),
	)
	if err := st.DoFile(path); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("loading script %s: %w", path, err)
	}
	states[path] = st
	rs.Scripts = append(rs.Scripts, st)
	return st, nil
}
