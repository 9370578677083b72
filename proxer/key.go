package proxer

// Key is the credential a Client authenticates with: either an API key or
// the test mode marker. The zero Key is invalid.
type Key struct {
	secret string
	test   bool
}

// TestKey marks requests as test traffic instead of sending a real key.
var TestKey = Key{test: true}

// SecretKey wraps an API key string.
func SecretKey(secret string) Key {
	return Key{secret: secret}
}

// ParseKey converts a loosely typed value, typically read from
// configuration, into a Key. Only a Key or a non-empty string is accepted.
func ParseKey(v any) (Key, error) {
	switch k := v.(type) {
	case Key:
		if !k.Valid() {
			return Key{}, invalidParams("parse key", "zero key")
		}
		return k, nil
	case string:
		if k == "" {
			return Key{}, invalidParams("parse key", "empty api key")
		}
		return SecretKey(k), nil
	default:
		return Key{}, invalidParams("parse key", "unsupported key type %T", v)
	}
}

// IsTest reports whether k is the test mode marker
func (k Key) IsTest() bool {
	return k.test
}

// Secret returns the API key, or "" for the test marker
func (k Key) Secret() string {
	return k.secret
}

// Valid reports whether k holds exactly one of the two forms.
func (k Key) Valid() bool {
	return k.test != (k.secret != "")
}

// String never reveals the secret.
func (k Key) String() string {
	switch {
	case k.test:
		return "test-mode"
	case k.secret != "":
		return "api-key(redacted)"
	default:
		return "invalid"
	}
}
