package core

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Provider names accepted by Config.Provider.
const (
	ProviderWAHA     = "waha"
	ProviderGreenAPI = "green_api"
)

// Defaults applied by NewConfig and FromEnv.
const (
	DefaultSession        = "default"
	DefaultLogLevel       = "INFO"
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = time.Second
)

// Config selects a provider and carries its credentials plus the
// transport knobs shared by all providers.
type Config struct {
	Provider string `toml:"provider"`

	// WAHA credentials.
	APIURL string `toml:"api_url"`
	APIKey string `toml:"api_key"`

	// Green API credentials.
	InstanceID string `toml:"instance_id"`
	APIToken   string `toml:"api_token"`

	// Session name, used by providers with session management.
	Session string `toml:"session"`

	Timeout        time.Duration `toml:"timeout"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`

	// MaxRetries bounds transport-level retries of idempotent reads.
	// Zero means the default; negative disables retries.
	MaxRetries int           `toml:"max_retries"`
	RetryDelay time.Duration `toml:"retry_delay"`

	LogLevel string `toml:"log_level"`

	// Extra carries provider-specific settings the core does not
	// validate.
	Extra map[string]any `toml:"extra"`
}

// NewConfig returns a Config for the given provider with defaults
// filled in.
func NewConfig(provider string) *Config {
	cfg := &Config{Provider: provider}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Session == "" {
		c.Session = DefaultSession
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// FromEnv builds a Config from environment variables:
//
//	WHATSFUSE_PROVIDER      provider name (default "waha")
//	WHATSFUSE_API_URL       API URL (WAHA)
//	WHATSFUSE_API_KEY       API key (WAHA)
//	GREEN_API_INSTANCE_ID   instance ID (Green API)
//	GREEN_API_API_TOKEN     API token (Green API)
//	WHATSFUSE_SESSION       session name (default "default")
//	WHATSFUSE_LOG_LEVEL     log level (default "INFO")
func FromEnv() *Config {
	provider := os.Getenv("WHATSFUSE_PROVIDER")
	if provider == "" {
		provider = ProviderWAHA
	}
	cfg := &Config{
		Provider:   provider,
		APIURL:     os.Getenv("WHATSFUSE_API_URL"),
		APIKey:     os.Getenv("WHATSFUSE_API_KEY"),
		InstanceID: os.Getenv("GREEN_API_INSTANCE_ID"),
		APIToken:   os.Getenv("GREEN_API_API_TOKEN"),
		Session:    os.Getenv("WHATSFUSE_SESSION"),
		LogLevel:   os.Getenv("WHATSFUSE_LOG_LEVEL"),
	}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a TOML config from the given path and fills defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// SaveFile writes the config as TOML to the given path, creating parent
// dirs as needed. Credentials go to disk, so the file is 0600.
func SaveFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate checks that the fields required by the selected provider are
// present. It performs no network access.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return ErrConfiguration("provider is required")
	}
	switch c.Provider {
	case ProviderWAHA:
		if c.APIURL == "" {
			return ErrConfiguration("api_url is required for the waha provider")
		}
		if c.APIKey == "" {
			return ErrConfiguration("api_key is required for the waha provider")
		}
	case ProviderGreenAPI:
		if c.InstanceID == "" {
			return ErrConfiguration("instance_id is required for the green_api provider")
		}
		if c.APIToken == "" {
			return ErrConfiguration("api_token is required for the green_api provider")
		}
	default:
		return ErrUnsupportedProvider(c.Provider)
	}
	return nil
}
