package pipeline

import (
	"os"
	"path/filepath"
)

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "asleep")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "asleep")
}

// CachePath returns the full path to the history and fetch database.
func CachePath() string {
	return filepath.Join(CacheDir(), "asleep.db")
}
