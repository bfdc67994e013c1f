package utils

import (
	"os"
	"path/filepath"
)

// DefaultDBPath is ~/.romvault/data.db, or ./.romvault/data.db when the home
// directory cannot be resolved.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".romvault", "data.db")
}
