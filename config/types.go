package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Proxer    ProxerConfig    `mapstructure:"proxer"`
	Transport TransportConfig `mapstructure:"transport"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ProxerConfig holds Proxer API connection details
type ProxerConfig struct {
	APIKey   string `mapstructure:"api_key"`
	TestMode bool   `mapstructure:"test_mode"`
	Token    string `mapstructure:"token"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Insecure bool   `mapstructure:"insecure"`
	BasePath string `mapstructure:"base_path"`
	Device   string `mapstructure:"device"`
}

// TransportConfig controls the HTTP client
type TransportConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// BatchConfig controls batch execution
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
