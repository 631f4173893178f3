package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for scribe.
type Config struct {
	General GeneralConfig `json:"general" yaml:"general"`
	Discord DiscordConfig `json:"discord" yaml:"discord"`
	Elastic ElasticConfig `json:"elastic" yaml:"elastic"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"` // "debug" | "info" | "warn" | "error"
	LogFile  string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
}

// DiscordConfig configures the Discord gateway.
type DiscordConfig struct {
	Token string `json:"token" yaml:"token"`
	// Privileged lists the author ids allowed to issue in-band commands.
	// Empty means command features are unreachable; forwarding still works.
	Privileged FlexStringList `json:"privileged" yaml:"privileged"`
	// CommandPrefix is the reserved leading character for commands.
	CommandPrefix string `json:"commandPrefix,omitempty" yaml:"commandPrefix,omitempty"`
}

// ElasticConfig configures the outbound datastore writes.
type ElasticConfig struct {
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
	APIKey  string `json:"apiKey" yaml:"apiKey"`
	Index   string `json:"index" yaml:"index"`
	// InsecureSkipVerify disables TLS peer verification. Defaults to true:
	// the deployments this serves run self-signed clusters.
	InsecureSkipVerify bool `json:"insecureSkipVerify" yaml:"insecureSkipVerify"`
	TimeoutSeconds     int  `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
}

// JournalConfig configures the local write-outcome journal.
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"dbPath" yaml:"dbPath"`
}

// MetricsConfig configures the Prometheus-format metrics endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// FlexStringList is a []string that can unmarshal from arrays containing both
// strings and numbers (e.g. ["123", 456] both become "123", "456"). Discord
// snowflakes are often written unquoted in hand-edited configs.
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

func (f *FlexStringList) UnmarshalYAML(value *yaml.Node) error {
	var ss []string
	if err := value.Decode(&ss); err == nil {
		*f = ss
		return nil
	}
	var anys []any
	if err := value.Decode(&anys); err != nil {
		return err
	}
	result := make([]string, 0, len(anys))
	for _, item := range anys {
		switch v := item.(type) {
		case string:
			result = append(result, v)
		case int:
			result = append(result, strconv.Itoa(v))
		case int64:
			result = append(result, strconv.FormatInt(v, 10))
		case float64:
			result = append(result, strconv.FormatInt(int64(v), 10))
		default:
			result = append(result, fmt.Sprint(v))
		}
	}
	*f = result
	return nil
}

// Contains reports whether id is in the list.
func (f FlexStringList) Contains(id string) bool {
	for _, v := range f {
		if v == id {
			return true
		}
	}
	return false
}

// DefaultConfigDir returns the default config directory (~/.scribe).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scribe"
	}
	return filepath.Join(home, ".scribe")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads the config at path (JSON, or YAML for .yaml/.yml files),
// applies it over defaults, and validates it.
func Load(path string) (*Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated reads and parses the config without validating it. The
// config editing commands use it so a half-filled config stays editable.
func LoadUnvalidated(path string) (*Config, error) {
	path = expandHome(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return cfg, nil
}

// Save writes the config to path as indented JSON.
func Save(path string, cfg *Config) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// Validate checks for values the process cannot start without. An empty
// privileged list is deliberately not an error: the gateway warns and runs
// with command features unreachable.
func (c *Config) Validate() error {
	var errs []string
	if c.Discord.Token == "" {
		errs = append(errs, "discord.token is required")
	}
	if c.Elastic.BaseURL == "" {
		errs = append(errs, "elastic.baseUrl is required")
	}
	if c.Elastic.APIKey == "" {
		errs = append(errs, "elastic.apiKey is required")
	}
	if c.Elastic.Index == "" {
		errs = append(errs, "elastic.index is required")
	}
	if c.Elastic.TimeoutSeconds < 0 {
		errs = append(errs, "elastic.timeoutSeconds must be non-negative")
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		errs = append(errs, "journal.dbPath is required when the journal is enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
