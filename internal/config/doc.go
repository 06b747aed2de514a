// Package config loads hookmap's configuration file.
//
// A configuration selects the backend and logging, sizes the handler worker
// pool, and declares rules: remaps that turn one button into another, and
// hotkeys that send a sequence or call a Lua function.
//
// Example TOML:
//
//	log_level = "info"
//	backend = "terminal"
//
//	[dispatch]
//	workers = 4
//	queue_size = 256
//	timeout = "2s"
//
//	[[remap]]
//	from = "CapsLock"
//	to = "LCtrl"
//
//	[[hotkey]]
//	keys = "Ctrl+Shift+J"
//	block = true
//	send = "Down"
//
//	[[hotkey]]
//	keys = "Alt+Wheel"
//	script = "scripts/zoom.lua"
//	function = "on_wheel"
//
// YAML files use the same keys, with "remap" and "hotkey" as lists.
//
// Files may pull in other files with include. Only the remaps and hotkeys
// of an included file are used; they come before the including file's.
package config
