package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "HOOKMAP_"

// envMapping maps environment variables to the settings they override.
var envMapping = map[string]func(c *Config, v string){
	"HOOKMAP_LOG_LEVEL":  func(c *Config, v string) { c.LogLevel = v },
	"HOOKMAP_LOG_FORMAT": func(c *Config, v string) { c.LogFormat = v },
	"HOOKMAP_BACKEND":    func(c *Config, v string) { c.Backend = v },
	"HOOKMAP_DEVICES": func(c *Config, v string) {
		c.Devices = nil
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				c.Devices = append(c.Devices, d)
			}
		}
	},
	"HOOKMAP_NO_GRAB": func(c *Config, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.NoGrab = b
		}
	},
	"HOOKMAP_WORKERS": func(c *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			c.Dispatch.Workers = n
		}
	},
}

// ApplyEnv overrides settings from HOOKMAP_* environment variables.
// Call Validate afterwards.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for name, set := range envMapping {
		if v, ok := lookup(name); ok {
			set(c, v)
		}
	}
}
