//go:build linux

package native

import "github.com/dshills/hookmap/internal/native/evdevhook"

func openOS(opts Options) (*Backend, error) {
	bopts := []evdevhook.Option{
		evdevhook.WithLogger(opts.Logger),
		evdevhook.WithDevices(opts.Devices...),
	}
	if opts.NoGrab {
		bopts = append(bopts, evdevhook.WithoutGrab())
	}
	b := evdevhook.New(bopts...)
	return &Backend{Name: "evdev", Hook: b, Injector: b}, nil
}
