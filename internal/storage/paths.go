// Package storage persists the server's move cache and counters in
// BadgerDB and locates the application's data directories.
package storage

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const appName = "chessbot"

// DataDir returns the application data directory, creating it if needed.
// A non-empty root overrides the platform default:
//   - macOS: ~/Library/Application Support/chessbot/
//   - Linux: $XDG_DATA_HOME/chessbot/ or ~/.local/share/chessbot/
//   - Windows: %APPDATA%/chessbot/
func DataDir(root string) (string, error) {
	dir := root
	if dir == "" {
		base, err := platformBase()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, appName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "storage: create %s", dir)
	}
	return dir, nil
}

func platformBase() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "storage: home dir")
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	case "windows":
		if base := os.Getenv("APPDATA"); base != "" {
			return base, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "storage: home dir")
		}
		return filepath.Join(home, "AppData", "Roaming"), nil
	default:
		if base := os.Getenv("XDG_DATA_HOME"); base != "" {
			return base, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "storage: home dir")
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

func subDir(root, name string) (string, error) {
	base, err := DataDir(root)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "storage: create %s", dir)
	}
	return dir, nil
}

// ModelDir returns the directory holding network weight files.
func ModelDir(root string) (string, error) {
	return subDir(root, "nnue")
}

// DatabaseDir returns the directory of the badger database.
func DatabaseDir(root string) (string, error) {
	dir, err := subDir(root, "db")
	if err != nil {
		return "", err
	}
	log.Debug().Str("dir", dir).Msg("database directory")
	return dir, nil
}
