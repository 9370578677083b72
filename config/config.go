package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/s0up4200/proxer/proxer"
)

// EnvPrefix is prepended to every environment override, e.g.
// PROXER_PROXER_API_KEY or PROXER_LOGGING_LEVEL.
const EnvPrefix = "PROXER"

// Load loads the configuration from file and environment. A missing file is
// only an error when configPath names one explicitly.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".proxer"))
		}

		// Check /etc
		v.AddConfigPath("/etc/proxer/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Proxer defaults
	v.SetDefault("proxer.api_key", "")
	v.SetDefault("proxer.test_mode", false)
	v.SetDefault("proxer.token", "")
	v.SetDefault("proxer.host", proxer.DefaultHost)
	v.SetDefault("proxer.port", 0)
	v.SetDefault("proxer.insecure", false)
	v.SetDefault("proxer.base_path", proxer.DefaultBasePath)
	v.SetDefault("proxer.device", proxer.DefaultDeviceLabel)

	// Transport defaults
	v.SetDefault("transport.timeout", proxer.DefaultTimeout)
	v.SetDefault("transport.retries", 0)

	// Batch defaults
	v.SetDefault("batch.concurrency", 4)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if !cfg.Proxer.TestMode && strings.TrimSpace(cfg.Proxer.APIKey) == "" {
		return fmt.Errorf("proxer.api_key is required unless proxer.test_mode is set")
	}

	if err := cfg.ProxerConfig().Validate(); err != nil {
		return err
	}

	if cfg.Transport.Timeout < 0 {
		return fmt.Errorf("transport.timeout must not be negative")
	}
	if cfg.Transport.Retries < 0 {
		return fmt.Errorf("transport.retries must not be negative")
	}
	if cfg.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// Key returns the client credential. Test mode takes precedence over an
// API key.
func (c *Config) Key() (proxer.Key, error) {
	if c.Proxer.TestMode {
		return proxer.TestKey, nil
	}
	return proxer.ParseKey(c.Proxer.APIKey)
}

// ProxerConfig returns the endpoint part of the configuration
func (c *Config) ProxerConfig() proxer.Config {
	return proxer.Config{
		Insecure:    c.Proxer.Insecure,
		Host:        c.Proxer.Host,
		Port:        c.Proxer.Port,
		BasePath:    c.Proxer.BasePath,
		DeviceLabel: c.Proxer.Device,
	}
}

// ClientOptions translates the configuration into client options. The
// transport retries through go-retryablehttp when transport.retries > 0.
func (c *Config) ClientOptions(logger zerolog.Logger) []proxer.Option {
	opts := []proxer.Option{
		proxer.WithConfig(c.ProxerConfig()),
		proxer.WithLogger(logger),
	}
	if c.Proxer.Token != "" {
		opts = append(opts, proxer.WithToken(c.Proxer.Token))
	}

	if c.Transport.Retries > 0 {
		httpClient := proxer.NewRetryingHTTPClient(c.Transport.Retries, c.Transport.Timeout, logger)
		opts = append(opts, proxer.WithTransport(proxer.NewHTTPTransport(httpClient, logger)))
	} else if c.Transport.Timeout != proxer.DefaultTimeout {
		httpClient := cleanhttp.DefaultPooledClient()
		httpClient.Timeout = c.Transport.Timeout
		opts = append(opts, proxer.WithTransport(proxer.NewHTTPTransport(httpClient, logger)))
	}

	return opts
}

// NewClient creates a client from the configuration
func (c *Config) NewClient(logger zerolog.Logger) (*proxer.Client, error) {
	key, err := c.Key()
	if err != nil {
		return nil, err
	}
	return proxer.New(key, c.ClientOptions(logger)...)
}
