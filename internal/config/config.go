// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/freechat-tui/internal/engine"
	"github.com/jeranaias/freechat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete freechat configuration.
type Config struct {
	Version string `toml:"version"`

	// Engine configuration
	Engine EngineConfig `toml:"engine"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`
}

// EngineConfig contains completion gateway configuration.
type EngineConfig struct {
	// BaseURL is the OpenAI-compatible gateway endpoint.
	BaseURL string `toml:"base_url"`
	// Model is the default model identifier.
	Model string `toml:"model"`
	// APIKey is an optional Bearer token. Most free gateways ignore it.
	APIKey string `toml:"api_key"`
	// Streaming controls whether responses arrive token by token.
	Streaming bool `toml:"streaming"`
	// MaxRetries is the retry budget for transient gateway failures.
	MaxRetries int `toml:"max_retries"`
	// RequestsPerMinute is the client-side rate cap (0 = unlimited).
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	// ConversationsPath overrides where the JSON document lives
	// (empty = ~/.freechat/conversations.json).
	ConversationsPath string `toml:"conversations_path"`
	// MaxConversations limits stored conversations (0 = unlimited).
	MaxConversations int `toml:"max_conversations"`
	// AutoSaveSecs is the auto-save interval in seconds.
	AutoSaveSecs int `toml:"auto_save_secs"`
	// SearchIndex enables the SQLite message search index.
	SearchIndex bool `toml:"search_index"`
}

// UIConfig contains TUI configuration.
type UIConfig struct {
	// Theme selects the color theme: "dark", "light", or "auto".
	Theme string `toml:"theme"`
	// ShowSidebar shows the conversation list on start.
	ShowSidebar bool `toml:"show_sidebar"`
	// ShowTimestamps renders message timestamps in chat bubbles.
	ShowTimestamps bool `toml:"show_timestamps"`
	// MarkdownRendering renders assistant messages as markdown.
	MarkdownRendering bool `toml:"markdown_rendering"`
	// SyntaxHighlighting highlights fenced code blocks.
	SyntaxHighlighting bool `toml:"syntax_highlighting"`
}

// LoggingConfig controls the debug log.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// File overrides the log location (empty = ~/.freechat/debug.log).
	File string `toml:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Engine: EngineConfig{
			BaseURL:           engine.DefaultBaseURL,
			Model:             engine.DefaultModel,
			Streaming:         true,
			MaxRetries:        engine.DefaultMaxRetries,
			RequestsPerMinute: 20,
		},
		Storage: StorageConfig{
			MaxConversations: 200,
			AutoSaveSecs:     30,
			SearchIndex:      true,
		},
		UI: UIConfig{
			Theme:              "auto",
			ShowSidebar:        true,
			ShowTimestamps:     false,
			MarkdownRendering:  true,
			SyntaxHighlighting: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the freechat config directory (~/.freechat).
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".freechat"), nil
}

// Path returns the TOML config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir creates the config directory if needed.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, applying defaults and env overrides.
// A missing file yields the defaults; a malformed file is an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads a config file from the given location.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config atomically to its default location.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the config atomically to the given location.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# freechat configuration\n\n")

	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// DEFAULTS / VALIDATION
// =============================================================================

// SetDefaults fills zero values with defaults after parsing.
func (c *Config) SetDefaults() {
	def := Default()

	if c.Engine.BaseURL == "" {
		c.Engine.BaseURL = def.Engine.BaseURL
	}
	if c.Engine.Model == "" {
		c.Engine.Model = def.Engine.Model
	}
	if c.Engine.MaxRetries <= 0 {
		c.Engine.MaxRetries = def.Engine.MaxRetries
	}
	if c.Storage.AutoSaveSecs <= 0 {
		c.Storage.AutoSaveSecs = def.Storage.AutoSaveSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Engine.BaseURL, "http://") && !strings.HasPrefix(c.Engine.BaseURL, "https://") {
		return fmt.Errorf("engine.base_url must be an http(s) URL, got %q", c.Engine.BaseURL)
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui.theme must be dark, light, or auto, got %q", c.UI.Theme)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies FREECHAT_* environment variables.
// Env values win over file values.
func (c *Config) ApplyEnvOverrides() {
	if url := os.Getenv("FREECHAT_BASE_URL"); url != "" {
		c.Engine.BaseURL = url
	}
	if model := os.Getenv("FREECHAT_MODEL"); model != "" {
		c.Engine.Model = model
	}
	if key := os.Getenv("FREECHAT_API_KEY"); key != "" {
		c.Engine.APIKey = key
	}
	if streaming := os.Getenv("FREECHAT_STREAMING"); streaming != "" {
		if v, err := strconv.ParseBool(streaming); err == nil {
			c.Engine.Streaming = v
		}
	}
	if path := os.Getenv("FREECHAT_CONVERSATIONS"); path != "" {
		c.Storage.ConversationsPath = path
	}
	if theme := os.Getenv("FREECHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if level := os.Getenv("FREECHAT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig *Config
	globalMu     sync.RWMutex
)

// Global returns the process-wide config, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
			cfg.ApplyEnvOverrides()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// SetGlobal replaces the process-wide config.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global config.
func ResetGlobalForTesting() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = nil
}
