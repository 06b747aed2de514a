//go:build darwin

package native

import "github.com/dshills/hookmap/internal/native/machook"

func openOS(opts Options) (*Backend, error) {
	b := machook.New(opts.Logger)
	return &Backend{Name: "gohook", Hook: b, Injector: b}, nil
}
