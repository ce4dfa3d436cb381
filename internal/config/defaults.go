package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/expandd/
//   - Linux:   $XDG_DATA_HOME/expandd/ or ~/.local/share/expandd/
//   - Windows: %APPDATA%\expandd\
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", "expandd")
	case "linux":
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, "expandd")
		}
		return filepath.Join(homeDir(), ".local", "share", "expandd")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "expandd")
		}
		return filepath.Join(homeDir(), "AppData", "Roaming", "expandd")
	default:
		return filepath.Join(homeDir(), ".expandd")
	}
}

// PlatformConfigDir returns the platform-specific config directory.
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "linux":
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "expandd")
		}
		return filepath.Join(homeDir(), ".config", "expandd")
	default:
		return PlatformDataDir()
	}
}

// PlatformLogDir returns the platform-specific log directory.
//
// Platform paths:
//   - macOS:   ~/Library/Logs/expandd/
//   - Linux:   $XDG_STATE_HOME/expandd/ or ~/.local/state/expandd/
//   - Windows: %LOCALAPPDATA%\expandd\logs\
func PlatformLogDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Logs", "expandd")
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "expandd", "logs")
		}
		return filepath.Join(homeDir(), "AppData", "Local", "expandd", "logs")
	default:
		if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
			return filepath.Join(stateHome, "expandd")
		}
		return filepath.Join(homeDir(), ".local", "state", "expandd")
	}
}

// PlatformRuntimeDir returns the directory for sockets and pid files.
func PlatformRuntimeDir() string {
	switch runtime.GOOS {
	case "linux":
		if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
			return filepath.Join(xdgRuntime, "expandd")
		}
		return filepath.Join("/tmp", "expandd-"+userID())
	case "windows":
		return "" // Windows uses named pipes
	default:
		return filepath.Join("/tmp", "expandd-"+userID())
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}

func userID() string {
	if uid := os.Getuid(); uid >= 0 {
		return strconv.Itoa(uid)
	}
	return "0"
}

// SupportedConfigFormats lists the config file extensions Load accepts.
func SupportedConfigFormats() []string {
	return []string{".toml", ".json", ".yaml", ".yml"}
}

// FindConfigFile searches the standard locations for a config file and
// returns the first that exists, or empty.
func FindConfigFile() string {
	candidates := []string{
		filepath.Join(ExpanddDir(), "config.toml"),
		filepath.Join(PlatformConfigDir(), "config.toml"),
		filepath.Join(PlatformConfigDir(), "expandd.toml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
