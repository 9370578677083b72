package proxer

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransport records the last call and replies with a fixed result.
type stubTransport struct {
	resp *RawResponse
	err  error

	method  string
	url     string
	headers http.Header
	query   url.Values
	body    url.Values
}

func (s *stubTransport) Get(ctx context.Context, rawURL string, headers http.Header, query url.Values) (*RawResponse, error) {
	s.method, s.url, s.headers, s.query, s.body = http.MethodGet, rawURL, headers, query, nil
	return s.resp, s.err
}

func (s *stubTransport) Post(ctx context.Context, rawURL string, body url.Values, headers http.Header, query url.Values) (*RawResponse, error) {
	s.method, s.url, s.headers, s.query, s.body = http.MethodPost, rawURL, headers, query, body
	return s.resp, s.err
}

func newTestClient(t *testing.T, key Key, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithTransport(&stubTransport{})}, opts...)
	c, err := New(key, opts...)
	require.NoError(t, err)
	return c
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		cfg     Config
		want    string
		wantErr bool
	}{
		{
			name: "default config",
			req:  Get("info", "getEntry"),
			cfg:  DefaultConfig(),
			want: "https://proxer.me/api/v1/info/getEntry",
		},
		{
			name: "insecure",
			req:  Get("info", "getEntry"),
			cfg:  Config{Insecure: true, Host: "proxer.me", BasePath: "/api"},
			want: "http://proxer.me/api/v1/info/getEntry",
		},
		{
			name: "explicit port",
			req:  Post("user", "login"),
			cfg:  Config{Host: "localhost", Port: 8443, BasePath: "/api"},
			want: "https://localhost:8443/api/v1/user/login",
		},
		{
			name: "empty base path",
			req:  Get("list", "getEntryList"),
			cfg:  Config{Host: "proxer.me"},
			want: "https://proxer.me/v1/list/getEntryList",
		},
		{
			name: "query is not part of the url",
			req:  Get("info", "getEntry").WithQuery("id", "53"),
			cfg:  DefaultConfig(),
			want: "https://proxer.me/api/v1/info/getEntry",
		},
		{
			name: "ipv6 host without port",
			req:  Get("info", "getEntry"),
			cfg:  Config{Host: "::1"},
			want: "https://[::1]/v1/info/getEntry",
		},
		{
			name: "ipv6 host with port",
			req:  Get("info", "getEntry"),
			cfg:  Config{Insecure: true, Host: "::1", Port: 8080, BasePath: "/api"},
			want: "http://[::1]:8080/api/v1/info/getEntry",
		},
		{
			name: "bracketed ipv6 host",
			req:  Get("info", "getEntry"),
			cfg:  Config{Host: "[2001:db8::1]", Port: 443},
			want: "https://[2001:db8::1]:443/v1/info/getEntry",
		},
		{
			name:    "host with embedded port",
			req:     Get("info", "getEntry"),
			cfg:     Config{Host: "proxer.me:8080"},
			wantErr: true,
		},
		{
			name:    "missing group",
			req:     Get("", "getEntry"),
			cfg:     DefaultConfig(),
			wantErr: true,
		},
		{
			name:    "missing function",
			req:     Get("info", " "),
			cfg:     DefaultConfig(),
			wantErr: true,
		},
		{
			name:    "unsupported method",
			req:     Request{Method: "PUT", Group: "info", Function: "getEntry"},
			cfg:     DefaultConfig(),
			wantErr: true,
		},
		{
			name:    "missing host",
			req:     Get("info", "getEntry"),
			cfg:     Config{BasePath: "/api"},
			wantErr: true,
		},
		{
			name:    "port out of range",
			req:     Get("info", "getEntry"),
			cfg:     Config{Host: "proxer.me", Port: 70000},
			wantErr: true,
		},
		{
			name:    "host that does not parse",
			req:     Get("info", "getEntry"),
			cfg:     Config{Host: "bad host"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(tt.req, tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidParameters)
				assert.Equal(t, KindInvalidParameters, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildURLChangesWithEveryField(t *testing.T) {
	req := Get("info", "getEntry")
	cfg := Config{Host: "proxer.me", Port: 443, BasePath: "/api"}

	base, err := BuildURL(req, cfg)
	require.NoError(t, err)
	assert.Contains(t, base, "/v1/info/getEntry")

	variants := map[string]func() (Request, Config){
		"scheme":    func() (Request, Config) { c := cfg; c.Insecure = true; return req, c },
		"host":      func() (Request, Config) { c := cfg; c.Host = "proxer.test"; return req, c },
		"port":      func() (Request, Config) { c := cfg; c.Port = 8443; return req, c },
		"no port":   func() (Request, Config) { c := cfg; c.Port = 0; return req, c },
		"base path": func() (Request, Config) { c := cfg; c.BasePath = "/api2"; return req, c },
		"group":     func() (Request, Config) { return Get("list", "getEntry"), cfg },
		"function":  func() (Request, Config) { return Get("info", "getName"), cfg },
	}

	seen := map[string]string{base: "base"}
	for name, variant := range variants {
		r, c := variant()
		got, err := BuildURL(r, c)
		require.NoError(t, err, name)
		assert.Contains(t, got, "/v1/"+r.Group+"/"+r.Function, name)
		if prev, dup := seen[got]; dup {
			t.Fatalf("%s produced the same url as %s: %s", name, prev, got)
		}
		seen[got] = name
	}
}

func TestBuildHeaders(t *testing.T) {
	t.Run("api key", func(t *testing.T) {
		c := newTestClient(t, SecretKey("secret"))
		h, err := BuildHeaders(Get("info", "getEntry"), c)
		require.NoError(t, err)

		assert.Equal(t, "secret", h.Get(HeaderAPIKey))
		assert.Empty(t, h.Values(HeaderTestMode))
		assert.Equal(t, DefaultDeviceLabel, h.Get(HeaderUserAgent))
	})

	t.Run("test mode", func(t *testing.T) {
		c := newTestClient(t, TestKey)
		h, err := BuildHeaders(Get("info", "getEntry"), c)
		require.NoError(t, err)

		assert.Equal(t, "1", h.Get(HeaderTestMode))
		assert.Empty(t, h.Values(HeaderAPIKey))
	})

	t.Run("device label", func(t *testing.T) {
		c := newTestClient(t, TestKey, WithDeviceLabel("my-app/1.0"))
		h, err := BuildHeaders(Get("info", "getEntry"), c)
		require.NoError(t, err)
		assert.Equal(t, "my-app/1.0", h.Get(HeaderUserAgent))
	})

	t.Run("empty device label falls back to default", func(t *testing.T) {
		c := newTestClient(t, TestKey, WithDeviceLabel(""))
		h, err := BuildHeaders(Get("info", "getEntry"), c)
		require.NoError(t, err)
		assert.Equal(t, []string{DefaultDeviceLabel}, h.Values(HeaderUserAgent))
	})

	t.Run("extra headers win", func(t *testing.T) {
		c := newTestClient(t, SecretKey("secret"), WithToken("session"))
		req := Get("ucp", "getList").
			Authenticated().
			WithHeader("user-agent", "custom").
			WithHeader("PROXER-API-KEY", "other").
			WithHeader(HeaderToken, "caller-token").
			WithHeader("X-Extra", "1")

		h, err := BuildHeaders(req, c)
		require.NoError(t, err)

		assert.Equal(t, []string{"custom"}, h.Values(HeaderUserAgent))
		assert.Equal(t, []string{"other"}, h.Values(HeaderAPIKey))
		assert.Equal(t, []string{"caller-token"}, h.Values(HeaderToken))
		assert.Equal(t, "1", h.Get("X-Extra"))
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := BuildHeaders(Get("info", "getEntry"), nil)
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})
}

func TestBuildHeadersSessionToken(t *testing.T) {
	tests := []struct {
		name         string
		requiresAuth bool
		token        string
		want         bool
	}{
		{name: "auth with token", requiresAuth: true, token: "tok", want: true},
		{name: "auth without token", requiresAuth: true, token: "", want: false},
		{name: "no auth with token", requiresAuth: false, token: "tok", want: false},
		{name: "no auth without token", requiresAuth: false, token: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, SecretKey("secret")).WithToken(tt.token)
			req := Get("ucp", "getList")
			req.RequiresAuth = tt.requiresAuth

			h, err := BuildHeaders(req, c)
			require.NoError(t, err)

			if tt.want {
				assert.Equal(t, tt.token, h.Get(HeaderToken))
			} else {
				assert.Empty(t, h.Values(HeaderToken))
			}
		})
	}
}

func TestRequestBuildersCopy(t *testing.T) {
	base := Get("info", "getEntry").WithQuery("id", "1")
	derived := base.WithQuery("id", "2").WithBody("k", "v").WithHeader("X", "y").Authenticated()

	assert.Equal(t, "1", base.Query["id"])
	assert.Nil(t, base.Body)
	assert.Nil(t, base.Headers)
	assert.False(t, base.RequiresAuth)

	assert.Equal(t, "2", derived.Query["id"])
	assert.Equal(t, "v", derived.Body["k"])
	assert.True(t, derived.RequiresAuth)
	assert.Equal(t, "/v1/info/getEntry", derived.Path())
}
