// Package config loads and validates the process configuration for
// the video platform.
//
// Configuration is layered. The built-in defaults always apply, JSON
// file layers merge over them in the order they were added, and
// VIDEOPROC_* environment variables override everything:
//
//	cfg, err := config.NewLoader().
//		AddLayer("/etc/videoproc/config.json").
//		AddLayer("config.local.json").
//		Load()
//
// Missing layer files are skipped, so the list above works whether or
// not a local override file exists. Duration fields accept Go
// duration strings in files ("5s", "1m30s").
//
// Validation runs after the layers are merged, so a file only has to
// name the fields it changes. Use EnableValidation(false) to inspect
// a config that is known to be incomplete.
//
// This package covers settings fixed for the lifetime of the process.
// The per-frame processing options that change at runtime live in the
// options package.
package config
