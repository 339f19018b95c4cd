package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Config is the persistent application configuration
type Config struct {
	// DataDir holds the database, logs, and config itself
	DataDir string `json:"data_dir"`

	// SourcesFile optionally points at a YAML source registry;
	// empty means built-in defaults
	SourcesFile string `json:"sources_file,omitempty"`

	Search   SearchConfig   `json:"search"`
	Snapshot SnapshotConfig `json:"snapshot"`
	Refresh  RefreshConfig  `json:"refresh"`
}

// SearchConfig holds search-API settings
type SearchConfig struct {
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"api_key,omitempty"`
}

// SnapshotConfig holds edge-aggregator fast-path settings
type SnapshotConfig struct {
	Endpoint  string `json:"endpoint,omitempty"` // empty disables the fast path
	TimeoutMs int    `json:"timeout_ms"`
}

// RefreshConfig holds refresh-cycle tuning
type RefreshConfig struct {
	SourceTimeoutMs int `json:"source_timeout_ms"`
	Concurrency     int `json:"concurrency"`
	CacheTTLMs      int `json:"cache_ttl_ms"`
	MaxAgeDays      int `json:"max_age_days"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".pulso"),
		Search: SearchConfig{
			Endpoint: "https://newsapi.org/v2/everything",
		},
		Snapshot: SnapshotConfig{
			TimeoutMs: 5000,
		},
		Refresh: RefreshConfig{
			SourceTimeoutMs: 10000,
			Concurrency:     3,
			CacheTTLMs:      int((10 * time.Minute).Milliseconds()),
			MaxAgeDays:      7,
		},
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pulso", "config.json")
}

// Load reads config from path, or returns defaults when the file is
// missing or unreadable. The search API key can always be supplied via
// the PULSO_SEARCH_API_KEY environment variable, which wins over the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		cfg = DefaultConfig()
	}
	cfg.applyEnv()
	return cfg, nil
}

// Save writes config to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for API keys
}

func (c *Config) applyEnv() {
	if key := os.Getenv("PULSO_SEARCH_API_KEY"); key != "" {
		c.Search.APIKey = key
	}
	if endpoint := os.Getenv("PULSO_SNAPSHOT_ENDPOINT"); endpoint != "" {
		c.Snapshot.Endpoint = endpoint
	}
}

// SnapshotTimeout converts the configured snapshot timeout
func (c *Config) SnapshotTimeout() time.Duration {
	return time.Duration(c.Snapshot.TimeoutMs) * time.Millisecond
}

// SourceTimeout converts the configured per-source timeout
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Refresh.SourceTimeoutMs) * time.Millisecond
}

// CacheTTL converts the configured cache time-to-live
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Refresh.CacheTTLMs) * time.Millisecond
}
