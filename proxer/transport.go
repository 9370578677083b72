package proxer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single HTTP exchange of the default transport.
const DefaultTimeout = 30 * time.Second

// Transport performs the HTTP exchange for a Client. Connection pooling,
// timeouts and retries are its responsibility. Implementations must be
// safe for concurrent use.
type Transport interface {
	// Get sends a GET request with query appended to rawURL
	Get(ctx context.Context, rawURL string, headers http.Header, query url.Values) (*RawResponse, error)

	// Post sends body form-encoded, with query appended to rawURL
	Post(ctx context.Context, rawURL string, body url.Values, headers http.Header, query url.Values) (*RawResponse, error)
}

// RawResponse is the transport's view of a reply.
type RawResponse struct {
	Status int
	// Body is the decoded JSON value, or the raw text if it was not JSON.
	Body   any
	Header http.Header
}

// HTTPTransport implements Transport on top of an *http.Client.
type HTTPTransport struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// Ensure HTTPTransport implements Transport at compile time.
var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport wraps httpClient. A nil httpClient is replaced by a
// pooled client with DefaultTimeout.
func NewHTTPTransport(httpClient *http.Client, logger zerolog.Logger) *HTTPTransport {
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
		httpClient.Timeout = DefaultTimeout
	}
	return &HTTPTransport{
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewRetryingHTTPClient returns an *http.Client that retries connection
// errors and 5xx responses up to retries times. Once retries are exhausted
// the last response is returned as is.
func NewRetryingHTTPClient(retries int, timeout time.Duration, logger zerolog.Logger) *http.Client {
	base := cleanhttp.DefaultPooledClient()
	if timeout > 0 {
		base.Timeout = timeout
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = base
	rc.RetryMax = max(retries, 0)
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{logger: logger}

	return rc.StandardClient()
}

// Get implements Transport
func (t *HTTPTransport) Get(ctx context.Context, rawURL string, headers http.Header, query url.Values) (*RawResponse, error) {
	return t.do(ctx, http.MethodGet, rawURL, headers, query, nil)
}

// Post implements Transport
func (t *HTTPTransport) Post(ctx context.Context, rawURL string, body url.Values, headers http.Header, query url.Values) (*RawResponse, error) {
	headers = headers.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	if headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return t.do(ctx, http.MethodPost, rawURL, headers, query, strings.NewReader(body.Encode()))
}

func (t *HTTPTransport) do(ctx context.Context, method, rawURL string, headers http.Header, query url.Values, body io.Reader) (*RawResponse, error) {
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	t.logger.Trace().
		Str("method", method).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("HTTP exchange complete")

	return &RawResponse{
		Status: resp.StatusCode,
		Body:   decodeBody(data),
		Header: resp.Header,
	}, nil
}

// decodeBody keeps numbers as json.Number so large ids survive intact.
// Bodies that are not a single JSON value are returned as text.
func decodeBody(data []byte) any {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return string(data)
	}
	if _, err := dec.Token(); err != io.EOF {
		return string(data)
	}
	return v
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
