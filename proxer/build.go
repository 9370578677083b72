package proxer

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Header names understood by the Proxer API.
const (
	HeaderAPIKey    = "proxer-api-key"
	HeaderTestMode  = "proxer-api-testmode"
	HeaderToken     = "proxer-api-token"
	HeaderUserAgent = "User-Agent"
)

// BuildURL returns {scheme}://{host}[:{port}]{basePath}/v1/{group}/{function}.
// Query arguments are not included; they are handed to the transport
// separately.
func BuildURL(req Request, cfg Config) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	// IPv6 literals are bracketed with or without a port
	host := strings.TrimSuffix(strings.TrimPrefix(cfg.Host, "["), "]")
	switch {
	case cfg.Port != 0:
		host = net.JoinHostPort(host, strconv.Itoa(cfg.Port))
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}

	raw := cfg.Scheme() + "://" + host + cfg.BasePath + req.Path()
	if _, err := url.Parse(raw); err != nil {
		return "", &Error{Kind: KindInvalidParameters, Op: "build url", Err: err}
	}
	return raw, nil
}

// BuildHeaders returns the headers for req sent by c. Headers already in
// req.Headers are never replaced; the client only fills in what is missing:
// the User-Agent (DefaultDeviceLabel when the config has none), then either the test mode marker or the API key, then the
// session token when req requires authorization and c has one.
//
// A request requiring authorization on a client without a token gets no
// token header and no error; the API rejects it if it really needed one.
func BuildHeaders(req Request, c *Client) (http.Header, error) {
	if c == nil {
		return nil, invalidParams("build headers", "client is nil")
	}
	if !c.key.Valid() {
		return nil, invalidParams("build headers", "invalid key")
	}

	h := make(http.Header, len(req.Headers)+3)
	for k, v := range req.Headers {
		h.Set(k, v)
	}

	label := c.config.DeviceLabel
	if label == "" {
		label = DefaultDeviceLabel
	}
	setDefault(h, HeaderUserAgent, label)
	if c.key.IsTest() {
		setDefault(h, HeaderTestMode, "1")
	} else {
		setDefault(h, HeaderAPIKey, c.key.Secret())
	}
	if req.RequiresAuth && c.token != "" {
		setDefault(h, HeaderToken, c.token)
	}

	return h, nil
}

func setDefault(h http.Header, key, value string) {
	if len(h.Values(key)) == 0 {
		h.Set(key, value)
	}
}
