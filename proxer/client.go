package proxer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Requester is implemented by *Client and can be used for testing.
type Requester interface {
	// MakeRequest sends one request and normalizes the response
	MakeRequest(ctx context.Context, req Request) (*Response, error)
}

// Ensure Client implements Requester at compile time.
var _ Requester = (*Client)(nil)

// Client pairs a Key and an optional session token with a Config. A Client
// is never modified after New returns and is safe for concurrent use.
type Client struct {
	key       Key
	token     string
	config    Config
	transport Transport
	logger    zerolog.Logger
}

// New creates a Client. It performs no I/O and does not validate the
// configuration; malformed settings are reported by MakeRequest.
func New(key Key, opts ...Option) (*Client, error) {
	if !key.Valid() {
		return nil, invalidParams("create client", "api key or test key is required")
	}

	c := &Client{
		key:    key,
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = NewHTTPTransport(nil, c.logger)
	}

	return c, nil
}

// Key returns the client's credential
func (c *Client) Key() Key {
	return c.key
}

// Config returns a copy of the client's connection settings
func (c *Client) Config() Config {
	return c.config
}

// Token returns the session token and whether one is set
func (c *Client) Token() (string, bool) {
	return c.token, c.token != ""
}

// WithToken returns a copy of c that sends token on requests requiring
// authorization. An empty token clears it. c itself is left unchanged.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// Validate checks that c can build requests.
func (c *Client) Validate() error {
	if c == nil {
		return invalidParams("validate client", "client is nil")
	}
	if !c.key.Valid() {
		return invalidParams("validate client", "invalid key")
	}
	if c.transport == nil {
		return invalidParams("validate client", "transport is nil")
	}
	return c.config.Validate()
}

// MakeRequest builds the URL and headers for req, sends it through the
// transport and normalizes the JSON body.
//
// A 200 response with an object body always succeeds, even when the body
// reports an API error; check Response.Error or Response.Err for that.
// Every failure is an *Error whose Kind tells the cases apart.
func (c *Client) MakeRequest(ctx context.Context, req Request) (*Response, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reqURL, err := BuildURL(req, c.config)
	if err != nil {
		return nil, internalize(err)
	}
	headers, err := BuildHeaders(req, c)
	if err != nil {
		return nil, internalize(err)
	}

	op := strings.ToLower(string(req.Method))
	query := toValues(req.Query)

	c.logger.Debug().
		Str("method", string(req.Method)).
		Str("url", reqURL).
		Bool("auth", req.RequiresAuth).
		Msg("Making Proxer API request")

	var raw *RawResponse
	switch req.Method {
	case MethodPost:
		raw, err = c.transport.Post(ctx, reqURL, toValues(req.Body), headers, query)
	default:
		raw, err = c.transport.Get(ctx, reqURL, headers, query)
	}
	if err != nil {
		c.logger.Debug().Err(err).Str("url", reqURL).Msg("Proxer API request failed")
		return nil, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	if raw == nil {
		return nil, &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("transport returned no response")}
	}

	c.logger.Debug().
		Str("url", reqURL).
		Int("status", raw.Status).
		Msg("Received Proxer API response")

	if raw.Status != 200 {
		return nil, &Error{Kind: KindUnexpectedResponse, Op: op, Response: raw}
	}
	body, ok := raw.Body.(map[string]any)
	if !ok {
		return nil, &Error{
			Kind:     KindUnexpectedResponse,
			Op:       op,
			Response: raw,
			Err:      fmt.Errorf("body is %T, not an object", raw.Body),
		}
	}

	return Normalize(body), nil
}

func toValues(m map[string]string) url.Values {
	if len(m) == 0 {
		return nil
	}
	values := make(url.Values, len(m))
	for k, v := range m {
		values.Set(k, v)
	}
	return values
}
