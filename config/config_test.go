package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/proxer/proxer"
)

func validConfig() *Config {
	return &Config{
		Proxer: ProxerConfig{
			APIKey:   "secret",
			Host:     proxer.DefaultHost,
			BasePath: proxer.DefaultBasePath,
			Device:   proxer.DefaultDeviceLabel,
		},
		Transport: TransportConfig{Timeout: proxer.DefaultTimeout},
		Batch:     BatchConfig{Concurrency: 4},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:   "test mode without key",
			modify: func(c *Config) { c.Proxer.APIKey = ""; c.Proxer.TestMode = true },
		},
		{
			name:    "missing key",
			modify:  func(c *Config) { c.Proxer.APIKey = " " },
			wantErr: "proxer.api_key",
		},
		{
			name:    "missing host",
			modify:  func(c *Config) { c.Proxer.Host = "" },
			wantErr: "host",
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.Proxer.Port = 65536 },
			wantErr: "port",
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Transport.Retries = -1 },
			wantErr: "transport.retries",
		},
		{
			name:    "zero concurrency",
			modify:  func(c *Config) { c.Batch.Concurrency = 0 },
			wantErr: "batch.concurrency",
		},
		{
			name:    "invalid logging level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level",
		},
		{
			name:    "invalid logging format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid logging format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"proxer:",
		"  api_key: from-file",
		"  host: localhost",
		"  port: 8080",
		"  insecure: true",
		"transport:",
		"  timeout: 5s",
		"  retries: 2",
		"logging:",
		"  level: debug",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Proxer.APIKey)
	assert.Equal(t, proxer.Config{
		Insecure:    true,
		Host:        "localhost",
		Port:        8080,
		BasePath:    proxer.DefaultBasePath,
		DeviceLabel: proxer.DefaultDeviceLabel,
	}, cfg.ProxerConfig())
	assert.Equal(t, 5*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, 2, cfg.Transport.Retries)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("PROXER_PROXER_API_KEY", "from-env")
	t.Setenv("PROXER_LOGGING_FORMAT", "json")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Proxer.APIKey)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))
	t.Setenv("PROXER_PROXER_API_KEY", "k")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestKey(t *testing.T) {
	cfg := validConfig()
	key, err := cfg.Key()
	require.NoError(t, err)
	assert.Equal(t, proxer.SecretKey("secret"), key)

	cfg.Proxer.TestMode = true
	key, err = cfg.Key()
	require.NoError(t, err)
	assert.True(t, key.IsTest())

	cfg.Proxer.TestMode = false
	cfg.Proxer.APIKey = ""
	_, err = cfg.Key()
	assert.ErrorIs(t, err, proxer.ErrInvalidParameters)
}

func TestNewClient(t *testing.T) {
	cfg := validConfig()
	cfg.Proxer.Token = "session"
	cfg.Transport.Retries = 1

	client, err := cfg.NewClient(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, cfg.ProxerConfig(), client.Config())
	token, ok := client.Token()
	assert.True(t, ok)
	assert.Equal(t, "session", token)
	assert.Len(t, cfg.ClientOptions(zerolog.Nop()), 4)

	cfg.Transport.Retries = 0
	assert.Len(t, cfg.ClientOptions(zerolog.Nop()), 3)

	cfg.Proxer.Token = ""
	assert.Len(t, cfg.ClientOptions(zerolog.Nop()), 2)
}
