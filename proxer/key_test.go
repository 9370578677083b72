package proxer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("api key uses default config", func(t *testing.T) {
		c, err := New(SecretKey("abc123"))
		require.NoError(t, err)

		assert.Equal(t, "abc123", c.Key().Secret())
		assert.False(t, c.Key().IsTest())
		assert.Equal(t, DefaultConfig(), c.Config())
		_, ok := c.Token()
		assert.False(t, ok)
	})

	t.Run("test key accepts any config", func(t *testing.T) {
		for _, cfg := range []Config{{}, DefaultConfig(), {Host: "bad host", Port: -1}} {
			c, err := New(TestKey, WithConfig(cfg))
			require.NoError(t, err)
			assert.True(t, c.Key().IsTest())
			assert.Equal(t, cfg, c.Config())
		}
	})

	t.Run("zero key", func(t *testing.T) {
		_, err := New(Key{})
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := New(SecretKey(""))
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("options", func(t *testing.T) {
		c, err := New(TestKey,
			WithHost("localhost"),
			WithPort(8080),
			WithInsecure(),
			WithBasePath("/proxy"),
			WithDeviceLabel("device"),
			WithToken("tok"),
		)
		require.NoError(t, err)

		assert.Equal(t, Config{
			Insecure:    true,
			Host:        "localhost",
			Port:        8080,
			BasePath:    "/proxy",
			DeviceLabel: "device",
		}, c.Config())
		token, ok := c.Token()
		assert.True(t, ok)
		assert.Equal(t, "tok", token)
	})
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    Key
		wantErr bool
	}{
		{name: "string", value: "abc", want: SecretKey("abc")},
		{name: "test key", value: TestKey, want: TestKey},
		{name: "secret key", value: SecretKey("k"), want: SecretKey("k")},
		{name: "empty string", value: "", wantErr: true},
		{name: "number", value: 42, wantErr: true},
		{name: "nil", value: nil, wantErr: true},
		{name: "empty list", value: []string{}, wantErr: true},
		{name: "zero key", value: Key{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameters)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithTokenLeavesOriginal(t *testing.T) {
	c, err := New(SecretKey("abc"))
	require.NoError(t, err)

	authed := c.WithToken("session")
	token, ok := authed.Token()
	assert.True(t, ok)
	assert.Equal(t, "session", token)

	_, ok = c.Token()
	assert.False(t, ok)
	assert.Equal(t, c.Key(), authed.Key())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "test-mode", TestKey.String())
	assert.Equal(t, "api-key(redacted)", SecretKey("hunter2").String())
	assert.NotContains(t, SecretKey("hunter2").String(), "hunter2")
	assert.Equal(t, "invalid", Key{}.String())
}
