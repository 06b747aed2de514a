//go:build windows

package native

import "github.com/dshills/hookmap/internal/native/winhook"

func openOS(opts Options) (*Backend, error) {
	b := winhook.New(opts.Logger)
	return &Backend{Name: "winhook", Hook: b, Injector: b}, nil
}
