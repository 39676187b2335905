package config

import (
	"os"
	"path/filepath"
)

const appDir = "cmdlog"

// DefaultDataDir returns where the eviction archive lives when no data dir is
// configured. XDG_DATA_HOME wins; otherwise the first existing system or
// per-user application directory is used, falling back to ~/.cmdlog and,
// without a home directory, ./data.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	candidates := []struct{ parent, path string }{
		{"/var/lib", filepath.Join("/var/lib", appDir)},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", appDir)},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", appDir)},
	}
	for _, c := range candidates {
		if isDir(c.parent) {
			return c.path
		}
	}
	return filepath.Join(home, "."+appDir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
