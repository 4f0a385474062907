// Package paths resolves the per-OS application data directory used for the
// cookie store and the log file.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "vrcwatch"

// AppDir returns the application data directory, creating it if needed.
// Windows: %APPDATA%\vrcwatch, macOS: ~/Library/Application Support/vrcwatch,
// elsewhere: $XDG_DATA_HOME/vrcwatch or ~/.local/share/vrcwatch.
func AppDir() (string, error) {
	base, err := dataRoot()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create app directory: %w", err)
	}
	return dir, nil
}

func dataRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData, nil
		}
		return filepath.Join(home, "AppData", "Roaming"), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support"), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return xdg, nil
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

// CookieFile is the cookie store location inside the app directory.
func CookieFile() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cookies.toml"), nil
}

// LogFile is the append log location inside the app directory.
func LogFile() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vrcwatch.log"), nil
}
