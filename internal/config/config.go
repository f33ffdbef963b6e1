// Package config loads and validates the ReverseIt YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// ProviderURL is the base URL of the external health-data service
	// (e.g. "https://cgm.example.com").
	ProviderURL string `yaml:"provider_url"`

	// ProviderToken is the access token used to authenticate with the
	// health-data service.
	ProviderToken string `yaml:"provider_token"`

	// WindowDays is the lookback window for imports, 1–31 days.
	// Defaults to 7 if unset.
	WindowDays int `yaml:"window_days"`

	// PollInterval controls how often the daemon re-runs an import.
	// Minimum 1m, maximum 24h. Defaults to 1h if unset.
	PollInterval time.Duration `yaml:"poll_interval"`

	// MinPullInterval throttles redundant pulls: an import is skipped when
	// the previous successful pull is more recent than this. Zero (the
	// default) disables throttling, in which case overlapping imports
	// store duplicate records.
	MinPullInterval time.Duration `yaml:"min_pull_interval,omitempty"`

	// Push enables opportunistic outbound pushes of newly-logged records.
	Push bool `yaml:"push"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "reverseit".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request. Use this for authentication tokens, e.g.:
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/reverseit/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "reverseit", "config.yaml"), nil
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to path, creating the directory if needed.
// Used by the setup wizard.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("writing config file %q: %w", path, err)
	}
	return nil
}

// validate checks that all required fields are present and well-formed.
func (c *Config) validate() error {
	if c.ProviderURL == "" {
		return fmt.Errorf("provider_url is required")
	}
	u, err := url.ParseRequestURI(c.ProviderURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("provider_url %q must be a valid http or https URL", c.ProviderURL)
	}

	if c.ProviderToken == "" {
		return fmt.Errorf("provider_token is required")
	}

	if c.WindowDays == 0 {
		c.WindowDays = 7
	}
	if c.WindowDays < 1 || c.WindowDays > 31 {
		return fmt.Errorf("window_days %d must be between 1 and 31", c.WindowDays)
	}

	if c.PollInterval == 0 {
		c.PollInterval = time.Hour
	}
	if c.PollInterval < time.Minute {
		return fmt.Errorf("poll_interval %v is too short (minimum 1m)", c.PollInterval)
	}
	if c.PollInterval > 24*time.Hour {
		return fmt.Errorf("poll_interval %v is too long (maximum 24h)", c.PollInterval)
	}

	if c.MinPullInterval < 0 {
		return fmt.Errorf("min_pull_interval must not be negative")
	}
	if c.MinPullInterval > 24*time.Hour {
		return fmt.Errorf("min_pull_interval %v is too long (maximum 24h)", c.MinPullInterval)
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}
