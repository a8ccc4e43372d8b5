package node

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// DefaultDataDir mirrors the teacher's own DefaultDataDir: place the node's
// persistent data under a per-OS home-relative directory when
// database_path is left relative or empty, rather than defaulting to the
// current working directory.
func DefaultDataDir() string {
	home := homeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Fuelnode")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Fuelnode")
	default:
		return filepath.Join(home, ".fuelnode")
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// resolvePath joins a relative database_path onto DefaultDataDir, the same
// relative/absolute split the teacher's ServiceContext.resolvePath applies.
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	dir := DefaultDataDir()
	if dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
