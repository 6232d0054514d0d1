// Package xdg resolves XDG Base Directory paths for adw.
// Configuration lives under $XDG_CONFIG_HOME/adw and interaction logs under
// $XDG_STATE_HOME/adw, with the usual ~/.config and ~/.local/state fallbacks.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "adw"

// ConfigDir returns the XDG config directory for adw, creating it with
// private permissions (0700) if missing.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for adw, creating it with
// private permissions (0700) if missing.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// AgentsDir returns the default root for per-operation interaction logs.
func AgentsDir() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "agents"), nil
}

func ensure(env, homeRel string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
