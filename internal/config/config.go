// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for rigtools.
//
// A single TOML file holds every setting, with sensible defaults,
// environment variable overrides, and advisory validation.
//
// Configuration file locations (in order of precedence):
//   - $RIGTOOLS_CONFIG
//   - ~/.rigtools/config.toml
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/rigtools/internal/diag"
	"github.com/jeranaias/rigtools/internal/tools"
	"github.com/jeranaias/rigtools/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigtools configuration.
type Config struct {
	// Schema version, reserved for future migrations
	Version string `toml:"version" json:"version"`

	// Tool group enablement and sandbox roots
	Tools ToolsConfig `toml:"tools" json:"tools"`

	// Local Ollama runtime connection
	Ollama OllamaConfig `toml:"ollama" json:"ollama"`

	// Local HTTP API
	Server ServerConfig `toml:"server" json:"server"`

	// Conversation database
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Diagnostic log
	Log LogConfig `toml:"log" json:"log"`
}

// ToolsConfig holds the per-group enable flags and sandbox roots. Every
// group is opt-in; a fresh install exposes no tools at all.
type ToolsConfig struct {
	// FilesystemEnabled exposes read_file, write_file and list_dir
	FilesystemEnabled bool `toml:"filesystem_enabled" json:"filesystem_enabled"`

	// FilesystemRoot is the sandbox root for the filesystem tools. Empty
	// means the user home directory.
	FilesystemRoot string `toml:"filesystem_root" json:"filesystem_root"`

	// ObsidianEnabled exposes the obsidian_* note tools
	ObsidianEnabled bool `toml:"obsidian_enabled" json:"obsidian_enabled"`

	// ObsidianVaultPath is the vault directory for the note tools
	ObsidianVaultPath string `toml:"obsidian_vault_path" json:"obsidian_vault_path"`

	// WebSearchEnabled exposes web_search, fetch_url and open_browser_search
	WebSearchEnabled bool `toml:"web_search_enabled" json:"web_search_enabled"`

	// TerminalEnabled exposes run_command and open_terminal_and_run
	TerminalEnabled bool `toml:"terminal_enabled" json:"terminal_enabled"`

	// CommandTimeoutSecs bounds run_command execution (default 10)
	CommandTimeoutSecs int `toml:"command_timeout_secs" json:"command_timeout_secs"`
}

// OllamaConfig holds the connection settings for the local Ollama runtime.
type OllamaConfig struct {
	// URL of the Ollama HTTP API
	URL string `toml:"url" json:"url"`

	// DefaultModel used when no model is specified. Empty falls back to
	// the client's built-in default.
	DefaultModel string `toml:"default_model" json:"default_model"`
}

// ServerConfig holds the local HTTP API settings.
type ServerConfig struct {
	// Host to bind; loopback only by default
	Host string `toml:"host" json:"host"`

	// Port to listen on
	Port int `toml:"port" json:"port"`

	// RatePerSecond is the sustained request budget per client
	RatePerSecond float64 `toml:"rate_per_second" json:"rate_per_second"`

	// RateBurst is the short-term burst allowance per client
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
}

// StorageConfig holds the conversation database settings.
type StorageConfig struct {
	// Path of the SQLite database file. Empty means ~/.rigtools/rigtools.db.
	Path string `toml:"path" json:"path"`
}

// LogConfig holds the diagnostic log settings.
type LogConfig struct {
	// Path of the log file. Empty means ~/.rigtools/logs/rigtools.log.
	Path string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	currentVersion = "1.0"

	defaultOllamaURL          = "http://127.0.0.1:11434"
	defaultServerHost         = "127.0.0.1"
	defaultServerPort         = 8787
	defaultRatePerSecond      = 10
	defaultRateBurst          = 20
	defaultCommandTimeoutSecs = 10
)

// Default returns a configuration with all default values. Tool groups
// start disabled; enabling one is an explicit user decision.
func Default() *Config {
	return &Config{
		Version: currentVersion,
		Tools: ToolsConfig{
			CommandTimeoutSecs: defaultCommandTimeoutSecs,
		},
		Ollama: OllamaConfig{
			URL: defaultOllamaURL,
		},
		Server: ServerConfig{
			Host:          defaultServerHost,
			Port:          defaultServerPort,
			RatePerSecond: defaultRatePerSecond,
			RateBurst:     defaultRateBurst,
		},
	}
}

// SetDefaults fills in any zero values with defaults. Boolean flags are
// left alone; false is always a valid setting.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = currentVersion
	}
	if c.Tools.CommandTimeoutSecs == 0 {
		c.Tools.CommandTimeoutSecs = defaultCommandTimeoutSecs
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = defaultOllamaURL
	}
	if c.Server.Host == "" {
		c.Server.Host = defaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.RatePerSecond == 0 {
		c.Server.RatePerSecond = defaultRatePerSecond
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = defaultRateBurst
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the rigtools configuration directory (~/.rigtools).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".rigtools"), nil
}

// ConfigPath returns the active config file path. The RIGTOOLS_CONFIG
// environment variable overrides the default ~/.rigtools/config.toml.
func ConfigPath() (string, error) {
	if p := os.Getenv("RIGTOOLS_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// DefaultFilesystemRoot returns the fallback sandbox root used when the
// filesystem tools are enabled without an explicit root. Empty when no
// home directory can be determined.
func DefaultFilesystemRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// StoragePath returns the SQLite database path.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rigtools.db"), nil
}

// LogPath returns the diagnostic log path, or "" when none is available.
func (c *Config) LogPath() string {
	if c.Log.Path != "" {
		return c.Log.Path
	}
	return diag.DefaultLogPath()
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from the active config path. A missing
// file is not an error; the built-in defaults are returned. A file that
// cannot be read or parsed also yields the defaults, together with the
// error, so callers can warn and keep going.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return defaultsWithEnv(), err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return defaultsWithEnv(), nil
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		return defaultsWithEnv(), err
	}
	return cfg, nil
}

// LoadFromPath reads and parses a specific TOML config file.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := &Config{}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	return cfg, nil
}

func defaultsWithEnv() *Config {
	cfg := Default()
	cfg.ApplyEnvOverrides()
	return cfg
}

// =============================================================================
// SAVING
// =============================================================================

// configHeader is written at the top of saved config files.
const configHeader = `# rigtools configuration
# Edit directly or use: rigtools config set <key> <value>

`

// Save writes the configuration to the active config path.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// SaveToPath writes the configuration as TOML to the given path. The
// write is atomic and the file is restricted to the owner.
func (c *Config) SaveToPath(path string) error {
	var buf strings.Builder
	buf.WriteString(configHeader)
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, []byte(buf.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies RIGTOOLS_* environment variables on top of
// the loaded values. Only variables that are set take effect.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RIGTOOLS_FILESYSTEM_ROOT"); v != "" {
		c.Tools.FilesystemRoot = v
	}
	if v := os.Getenv("RIGTOOLS_VAULT"); v != "" {
		c.Tools.ObsidianVaultPath = v
	}
	if v := os.Getenv("RIGTOOLS_OLLAMA_URL"); v != "" {
		c.Ollama.URL = v
	}
	if v := os.Getenv("RIGTOOLS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("RIGTOOLS_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("RIGTOOLS_LOG"); v != "" {
		c.Log.Path = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Warning is an advisory validation finding. Nothing in the config is
// fatal; a misconfigured root simply means the affected tools refuse to
// run until it is fixed.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	return w.Field + ": " + w.Message
}

// Warnings inspects the configuration and reports advisory findings.
func (c *Config) Warnings() []Warning {
	var out []Warning

	if c.Tools.FilesystemEnabled {
		root := c.Tools.FilesystemRoot
		if strings.TrimSpace(root) == "" {
			root = DefaultFilesystemRoot()
		}
		if root == "" {
			out = append(out, Warning{"tools.filesystem_root", "filesystem tools enabled but no root could be determined"})
		} else if _, err := os.Stat(root); err != nil {
			out = append(out, Warning{"tools.filesystem_root", "root does not exist: " + root})
		}
	}
	if c.Tools.ObsidianEnabled {
		vault := c.Tools.ObsidianVaultPath
		if strings.TrimSpace(vault) == "" {
			out = append(out, Warning{"tools.obsidian_vault_path", "obsidian tools enabled but vault path is empty"})
		} else if _, err := os.Stat(vault); err != nil {
			out = append(out, Warning{"tools.obsidian_vault_path", "vault does not exist: " + vault})
		}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		out = append(out, Warning{"server.port", fmt.Sprintf("port out of range: %d", c.Server.Port)})
	}
	if c.Server.RatePerSecond <= 0 {
		out = append(out, Warning{"server.rate_per_second", "rate limit must be positive"})
	}
	if c.Tools.CommandTimeoutSecs < 0 {
		out = append(out, Warning{"tools.command_timeout_secs", "timeout cannot be negative"})
	}
	if !strings.HasPrefix(c.Ollama.URL, "http://") && !strings.HasPrefix(c.Ollama.URL, "https://") {
		out = append(out, Warning{"ollama.url", "not an http(s) URL: " + c.Ollama.URL})
	}
	return out
}

// =============================================================================
// CAPABILITY AND ROOT RESOLUTION
// =============================================================================

// Capabilities converts the tool settings into the registry's capability
// view. Roots are passed through as stored; listing applies its own
// blank-root gating.
func (c *Config) Capabilities() tools.Capabilities {
	return tools.Capabilities{
		FilesystemEnabled: c.Tools.FilesystemEnabled,
		FilesystemRoot:    c.Tools.FilesystemRoot,
		ObsidianEnabled:   c.Tools.ObsidianEnabled,
		ObsidianVault:     c.Tools.ObsidianVaultPath,
		WebSearchEnabled:  c.Tools.WebSearchEnabled,
		TerminalEnabled:   c.Tools.TerminalEnabled,
	}
}

// ResolveRoots returns the execution roots handed to the tool executor.
// The filesystem root falls back to the home directory when the group is
// enabled with a blank root; the vault path is used exactly as stored.
func (c *Config) ResolveRoots() (fsRoot, vaultRoot string) {
	if c.Tools.FilesystemEnabled {
		fsRoot = c.Tools.FilesystemRoot
		if strings.TrimSpace(fsRoot) == "" {
			fsRoot = DefaultFilesystemRoot()
		}
	}
	if c.Tools.ObsidianEnabled && c.Tools.ObsidianVaultPath != "" {
		vaultRoot = c.Tools.ObsidianVaultPath
	}
	return fsRoot, vaultRoot
}

// CommandTimeout returns the run_command timeout as a duration.
func (c *Config) CommandTimeout() time.Duration {
	if c.Tools.CommandTimeoutSecs <= 0 {
		return defaultCommandTimeoutSecs * time.Second
	}
	return time.Duration(c.Tools.CommandTimeoutSecs) * time.Second
}

// ExecutorConfig builds the tool executor configuration. The executor
// fills in the remaining defaults itself.
func (c *Config) ExecutorConfig(sink diag.Sink) tools.ExecutorConfig {
	return tools.ExecutorConfig{
		Sink:           sink,
		CommandTimeout: c.CommandTimeout(),
	}
}

// =============================================================================
// DYNAMIC ACCESS
// =============================================================================

// Get retrieves a configuration value by dot-notation key, for example
// "tools.filesystem_root" or "server.port".
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field := v.FieldByNameFunc(func(name string) bool {
			return normalizeFieldName(name) == normalizeFieldName(part)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
		v = field
	}
	return nil, fmt.Errorf("unknown config key: %s", key)
}

// Set updates a configuration value by dot-notation key. The string
// value is converted to the field's type.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field := v.FieldByNameFunc(func(name string) bool {
			return normalizeFieldName(name) == normalizeFieldName(part)
		})
		if !field.IsValid() {
			return fmt.Errorf("unknown config key: %s", key)
		}
		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set config key: %s", key)
			}
			return setFieldValue(field, value)
		}
		if field.Kind() != reflect.Struct {
			return fmt.Errorf("unknown config key: %s", key)
		}
		v = field
	}
	return fmt.Errorf("unknown config key: %s", key)
}

// normalizeFieldName lowercases and strips separators so snake_case keys
// match their CamelCase struct fields.
func normalizeFieldName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number value: %s", value)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported config value type: %s", field.Kind())
	}
	return nil
}

// GetAllKeys returns every settable configuration key.
func GetAllKeys() []string {
	return []string{
		"version",
		"tools.filesystem_enabled",
		"tools.filesystem_root",
		"tools.obsidian_enabled",
		"tools.obsidian_vault_path",
		"tools.web_search_enabled",
		"tools.terminal_enabled",
		"tools.command_timeout_secs",
		"ollama.url",
		"ollama.default_model",
		"server.host",
		"server.port",
		"server.rate_per_second",
		"server.rate_burst",
		"storage.path",
		"log.path",
	}
}

// =============================================================================
// UTILITY METHODS
// =============================================================================

// Clone returns an independent copy of the configuration. Every field is
// a value type, so a plain copy suffices.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration as indented JSON.
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// =============================================================================
// GLOBAL CONFIG SINGLETON
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Load still returns usable defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. On error the
// running configuration is kept. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
