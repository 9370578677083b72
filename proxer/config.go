package proxer

import (
	"net/netip"
	"strings"
)

const (
	// DefaultHost is the public Proxer host
	DefaultHost = "proxer.me"
	// DefaultBasePath is prefixed to every API path
	DefaultBasePath = "/api"
	// DefaultDeviceLabel is sent as the User-Agent
	DefaultDeviceLabel = "proxer-go"

	apiVersion = "v1"
)

// Config holds the connection settings of a Client. It is a plain value;
// a Client keeps its own copy.
type Config struct {
	// Insecure selects http instead of https.
	Insecure bool
	Host     string
	// Port is omitted from URLs when zero.
	Port        int
	BasePath    string
	DeviceLabel string
}

// DefaultConfig returns the settings for the public API over https.
func DefaultConfig() Config {
	return Config{
		Host:        DefaultHost,
		BasePath:    DefaultBasePath,
		DeviceLabel: DefaultDeviceLabel,
	}
}

// Scheme returns "https" unless Insecure is set
func (c Config) Scheme() string {
	if c.Insecure {
		return "http"
	}
	return "https"
}

// Validate checks the fields URL and header construction depend on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return invalidParams("validate config", "host is required")
	}
	if strings.Contains(c.Host, "/") {
		return invalidParams("validate config", "host %q must not contain a path", c.Host)
	}
	if host := strings.Trim(c.Host, "[]"); strings.Contains(host, ":") {
		if _, err := netip.ParseAddr(host); err != nil {
			return invalidParams("validate config", "host %q must not include a port", c.Host)
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		return invalidParams("validate config", "port %d out of range", c.Port)
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return invalidParams("validate config", "base path %q must start with /", c.BasePath)
	}
	return nil
}
