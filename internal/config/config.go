// Package config handles configuration loading, validation, and hot
// reload for expandd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Engine configuration for the expansion pipeline.
	Engine EngineConfig `toml:"engine" json:"engine" yaml:"engine"`

	// Matching configuration for trigger detection.
	Matching MatchingConfig `toml:"matching" json:"matching" yaml:"matching"`

	// Injection configuration for synthetic output.
	Injection InjectionConfig `toml:"injection" json:"injection" yaml:"injection"`

	// Snippets configuration for library files.
	Snippets SnippetsConfig `toml:"snippets" json:"snippets" yaml:"snippets"`

	// Journal configuration for the expansion journal.
	Journal JournalConfig `toml:"journal" json:"journal" yaml:"journal"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configuration for the scrape endpoint.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`

	// IPC configuration for the control socket.
	IPC IPCConfig `toml:"ipc" json:"ipc" yaml:"ipc"`

	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// EngineConfig holds expansion pipeline configuration.
type EngineConfig struct {
	// Enabled determines whether expansion starts active.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// QueueSize is the hook event queue capacity. When the pipeline
	// falls behind, the oldest queued events are dropped.
	QueueSize int `toml:"queue_size" json:"queue_size" yaml:"queue_size"`

	// ApplyTimeoutMs bounds a single expansion delivery.
	ApplyTimeoutMs int `toml:"apply_timeout_ms" json:"apply_timeout_ms" yaml:"apply_timeout_ms"`
}

// MatchingConfig holds trigger detection configuration.
type MatchingConfig struct {
	// CaseSensitive compares triggers byte for byte. Off by default:
	// ";Sig" and ";sig" fire the same snippet.
	CaseSensitive bool `toml:"case_sensitive" json:"case_sensitive" yaml:"case_sensitive"`

	// RequireDelimiter is the default boundary policy: triggers fire
	// only when followed by whitespace or punctuation. Snippets can
	// override it individually.
	RequireDelimiter bool `toml:"require_delimiter" json:"require_delimiter" yaml:"require_delimiter"`

	// NormalizeSymbols folds = ; , to _ when comparing triggers, so a
	// trigger defined as ";sig" also fires when typed as "_sig" on
	// layouts where the symbol is awkward.
	NormalizeSymbols bool `toml:"normalize_symbols" json:"normalize_symbols" yaml:"normalize_symbols"`
}

// InjectionConfig holds synthetic output configuration.
type InjectionConfig struct {
	// MaxDirectRunes is the longest expansion typed key by key; longer
	// text goes through the clipboard paste path.
	MaxDirectRunes int `toml:"max_direct_runes" json:"max_direct_runes" yaml:"max_direct_runes"`

	// PasteNonBMP routes text containing characters outside the Basic
	// Multilingual Plane (emoji) through the paste path.
	PasteNonBMP bool `toml:"paste_non_bmp" json:"paste_non_bmp" yaml:"paste_non_bmp"`

	// InterKeyDelayMs is the pacing between synthetic keystrokes.
	InterKeyDelayMs int `toml:"inter_key_delay_ms" json:"inter_key_delay_ms" yaml:"inter_key_delay_ms"`

	// PasteSettleMs is how long to wait after the paste chord before
	// restoring the previous clipboard contents.
	PasteSettleMs int `toml:"paste_settle_ms" json:"paste_settle_ms" yaml:"paste_settle_ms"`
}

// SnippetsConfig holds snippet library configuration.
type SnippetsConfig struct {
	// Paths are snippet library files or directories. Directories are
	// scanned for .toml, .yaml, and .json files.
	Paths []string `toml:"paths" json:"paths" yaml:"paths"`

	// IncludeDefaults adds the built-in snippet set (dates, times,
	// timestamps) underneath user libraries.
	IncludeDefaults bool `toml:"include_defaults" json:"include_defaults" yaml:"include_defaults"`

	// Watch reloads libraries automatically when their files change.
	Watch bool `toml:"watch" json:"watch" yaml:"watch"`
}

// JournalConfig holds expansion journal configuration.
type JournalConfig struct {
	// Enabled determines whether expansions are journaled.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite journal database file.
	Path string `toml:"path" json:"path" yaml:"path"`

	// RetentionDays is how long journal entries are kept.
	RetentionDays int `toml:"retention_days" json:"retention_days" yaml:"retention_days"`

	// BusyTimeoutMs is the SQLite busy timeout.
	BusyTimeoutMs int `toml:"busy_timeout_ms" json:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file when Output includes "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the log size before rotation.
	MaxSizeMB int64 `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the retention of rotated files.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress gzips rotated files.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	// Enabled serves Prometheus metrics over HTTP.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// ListenAddr is the scrape endpoint address. Loopback only unless
	// the operator deliberately opens it up.
	ListenAddr string `toml:"listen_addr" json:"listen_addr" yaml:"listen_addr"`
}

// IPCConfig holds control socket configuration.
type IPCConfig struct {
	// Enabled serves the control protocol.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// SocketPath is the unix socket (or Windows named pipe) path.
	SocketPath string `toml:"socket_path" json:"socket_path" yaml:"socket_path"`

	// TimeoutSec bounds a single request.
	TimeoutSec int `toml:"timeout_sec" json:"timeout_sec" yaml:"timeout_sec"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	dir := ExpanddDir()

	return &Config{
		Version: Version,
		Engine: EngineConfig{
			Enabled:        true,
			QueueSize:      256,
			ApplyTimeoutMs: 5000,
		},
		Matching: MatchingConfig{
			CaseSensitive:    false,
			RequireDelimiter: false,
			NormalizeSymbols: false,
		},
		Injection: InjectionConfig{
			MaxDirectRunes:  50,
			PasteNonBMP:     true,
			InterKeyDelayMs: 10,
			PasteSettleMs:   200,
		},
		Snippets: SnippetsConfig{
			Paths:           []string{filepath.Join(dir, "snippets")},
			IncludeDefaults: true,
			Watch:           true,
		},
		Journal: JournalConfig{
			Enabled:       true,
			Path:          filepath.Join(dir, "journal.db"),
			RetentionDays: 90,
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "file",
			FilePath:   filepath.Join(PlatformLogDir(), "expandd.log"),
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9384",
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: defaultSocketPath(),
			TimeoutSec: 30,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ExpanddDir(), "config.toml")
}

// ExpanddDir returns the base expandd directory, honoring the
// EXPANDD_DATA_DIR environment override.
func ExpanddDir() string {
	if envDir := os.Getenv("EXPANDD_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates all directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		ExpanddDir(),
		filepath.Dir(c.Journal.Path),
		filepath.Dir(c.Logging.FilePath),
	}
	for _, p := range c.Snippets.Paths {
		if filepath.Ext(p) == "" {
			dirs = append(dirs, p)
		}
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies EXPANDD_* environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("EXPANDD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EXPANDD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("EXPANDD_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
	}
	if v := os.Getenv("EXPANDD_SOCKET_PATH"); v != "" {
		c.IPC.SocketPath = v
	}
	if v := os.Getenv("EXPANDD_METRICS_ADDR"); v != "" {
		c.Metrics.ListenAddr = v
		c.Metrics.Enabled = true
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := Config{
		Version:   c.Version,
		Engine:    c.Engine,
		Matching:  c.Matching,
		Injection: c.Injection,
		Snippets:  c.Snippets,
		Journal:   c.Journal,
		Logging:   c.Logging,
		Metrics:   c.Metrics,
		IPC:       c.IPC,
	}
	clone.Snippets.Paths = append([]string{}, c.Snippets.Paths...)
	return &clone
}

func defaultSocketPath() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "expandd", "expandd.sock")
	case "linux":
		if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
			return filepath.Join(xdgRuntime, "expandd.sock")
		}
		return "/tmp/expandd.sock"
	case "windows":
		return `\\.\pipe\expandd`
	default:
		return "/tmp/expandd.sock"
	}
}
