package home

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.wacal.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wacal")
}

// SocketPath returns the daemon's UDS socket path.
func SocketPath() string {
	return filepath.Join(BaseDir(), "daemon.sock")
}

// LockPath returns the daemon lock file path.
func LockPath() string {
	return filepath.Join(BaseDir(), "LOCK")
}

// DBPath returns the app-owned wacal.db path.
func DBPath() string {
	return filepath.Join(BaseDir(), "wacal.db")
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// LogPath returns the daemon log file path.
func LogPath() string {
	return filepath.Join(LogDir(), "wacald.log")
}

// ConfigPath returns the config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDirs creates the base directory tree with proper permissions.
func EnsureDirs() error {
	for _, d := range []string{BaseDir(), LogDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
