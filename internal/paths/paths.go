// Package paths resolves where trackerhub keeps its configuration and data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user application directories.
const AppName = "trackerhub"

// Environment variables that override the directories.
const (
	EnvConfigDir = "TRACKERHUB_CONFIG_DIR"
	EnvDataDir   = "TRACKERHUB_DATA_DIR"
)

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// lookups are swapped in tests.
var lookups = struct {
	getenv        func(string) string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	goos          string
}{
	getenv:        os.Getenv,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	goos:          runtime.GOOS,
}

// xdgDir returns $<env>/trackerhub, or ~/<fallback...>/trackerhub when the
// variable is unset. Non-Linux systems use os.UserConfigDir for both.
func xdgDir(env string, fallback ...string) (string, error) {
	if lookups.goos != "linux" {
		dir, err := lookups.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if base := lookups.getenv(env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := lookups.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, AppName)...), nil
}

// DefaultConfigDir returns the platform configuration directory:
// $XDG_CONFIG_HOME/trackerhub or ~/.config/trackerhub on Linux, the user
// config dir elsewhere.
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory:
// $XDG_DATA_HOME/trackerhub or ~/.local/share/trackerhub on Linux, the
// user config dir elsewhere.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir applies flag > TRACKERHUB_CONFIG_DIR > DefaultConfigDir.
// Explicit values are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(DefaultConfigDir, flag, lookups.getenv(EnvConfigDir))
}

// ResolveDataDir applies flag > TRACKERHUB_DATA_DIR > configured value >
// DefaultDataDir. Explicit values are made absolute.
func ResolveDataDir(flag, configured string) (string, error) {
	return resolve(DefaultDataDir, flag, lookups.getenv(EnvDataDir), configured)
}

// ConfigFile returns the config file path inside dir.
func ConfigFile(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

func resolve(fallback func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return fallback()
}
