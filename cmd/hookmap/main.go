// Package main is the entry point for hookmap.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dshills/hookmap/internal/app"
	"github.com/dshills/hookmap/internal/config"
	"github.com/dshills/hookmap/internal/input/hook"
	"github.com/dshills/hookmap/internal/native"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	backend    string
	logLevel   string
	logFormat  string
	logFile    string
	noWatch    bool
	check      bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, path, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.check {
		fmt.Printf("%s: ok (%d remaps, %d hotkeys)\n", path, len(cfg.Remaps), len(cfg.Hotkeys))
		return 0
	}

	logOut, closeLog, err := logWriter(opts.logFile, cfg.Backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening log file: %v\n", err)
		return 1
	}
	defer closeLog()

	level := new(slog.LevelVar)
	level.Set(app.ParseLogLevel(cfg.LogLevel))
	logger := app.NewLogger(logOut, level, cfg.LogFormat)
	slog.SetDefault(logger)

	application, err := app.New(cfg,
		app.WithLogger(logger),
		app.WithLevel(level),
		app.WithConfigPath(path),
		app.WithWatch(path != "" && !opts.noWatch),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("[main] hookmap starting", "version", version, "config", path, "backend", cfg.Backend)
	if err := application.Run(ctx); err != nil {
		if errors.Is(err, hook.ErrHookLost) {
			fmt.Fprintf(os.Stderr, "Error: input hook lost: %v\n", err)
			return 2
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the configuration named on the command line, or the
// default file if it exists, and applies environment and flag overrides.
func loadConfig(opts options) (*config.Config, string, error) {
	path := opts.configPath
	if path == "" {
		path = defaultConfigPath()
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}

	cfg.ApplyEnv()
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// defaultConfigPath returns the per-user configuration file if present.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range []string{"hookmap.toml", "hookmap.yaml", "hookmap.yml"} {
		p := filepath.Join(dir, "hookmap", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// logWriter picks the log destination. The terminal backend owns the
// screen, so it only logs when a file is given.
func logWriter(path, backend string) (io.Writer, func(), error) {
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	if backend == native.Terminal {
		return io.Discard, func() {}, nil
	}
	return os.Stderr, func() {}, nil
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file (TOML or YAML)")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.backend, "backend", "", "Input backend (auto, os, terminal)")
	flag.StringVar(&opts.backend, "b", "", "Input backend (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")
	flag.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stderr")
	flag.BoolVar(&opts.noWatch, "no-watch", false, "Do not reload rules when the configuration changes")
	flag.BoolVar(&opts.check, "check", false, "Validate the configuration and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "hookmap - global keyboard and mouse remapper\n\n")
		fmt.Fprintf(os.Stderr, "Usage: hookmap [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hookmap -c ~/.config/hookmap/hookmap.toml\n")
		fmt.Fprintf(os.Stderr, "  hookmap -b terminal -c rules.yaml -log-file hookmap.log\n")
		fmt.Fprintf(os.Stderr, "  hookmap -check -c rules.toml\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("hookmap %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", flag.Args())
		os.Exit(1)
	}
	return opts
}
