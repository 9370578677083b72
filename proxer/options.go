package proxer

import "github.com/rs/zerolog"

// Option configures a Client.
type Option func(*Client)

// WithConfig replaces the whole connection configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.config = cfg
	}
}

// WithHost sets the API host.
func WithHost(host string) Option {
	return func(c *Client) {
		c.config.Host = host
	}
}

// WithPort sets an explicit port. Zero restores the scheme default.
func WithPort(port int) Option {
	return func(c *Client) {
		c.config.Port = port
	}
}

// WithInsecure switches the client to plain http.
// Use with caution and only for development/testing.
func WithInsecure() Option {
	return func(c *Client) {
		c.config.Insecure = true
	}
}

// WithBasePath sets the path prefix in front of /v1.
func WithBasePath(path string) Option {
	return func(c *Client) {
		c.config.BasePath = path
	}
}

// WithDeviceLabel sets the User-Agent identifying this device.
func WithDeviceLabel(label string) Option {
	return func(c *Client) {
		c.config.DeviceLabel = label
	}
}

// WithToken sets the initial session token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithLogger sets the logger used for request tracing. The default
// transport logs through it as well.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
