package proxer

import (
	"maps"
	"strings"
)

// Method is the HTTP method of a Request. Only GET and POST are used by
// the API.
type Method string

const (
	// MethodGet sends arguments in the query string only
	MethodGet Method = "GET"
	// MethodPost sends body arguments form-encoded
	MethodPost Method = "POST"
)

// Request describes one API call independent of any Client. The builder
// methods copy before modifying, so a Request can be shared and reused.
type Request struct {
	Method   Method
	Group    string
	Function string
	Query    map[string]string
	// Body is only sent for POST requests.
	Body map[string]string
	// Headers take precedence over the headers the client adds.
	Headers      map[string]string
	RequiresAuth bool
}

// Get returns a GET descriptor for /v1/{group}/{function}.
func Get(group, function string) Request {
	return Request{Method: MethodGet, Group: group, Function: function}
}

// Post returns a POST descriptor for /v1/{group}/{function}.
func Post(group, function string) Request {
	return Request{Method: MethodPost, Group: group, Function: function}
}

// WithQuery returns a copy of r with the query argument set
func (r Request) WithQuery(key, value string) Request {
	r.Query = withEntry(r.Query, key, value)
	return r
}

// WithBody returns a copy of r with the body argument set
func (r Request) WithBody(key, value string) Request {
	r.Body = withEntry(r.Body, key, value)
	return r
}

// WithHeader returns a copy of r with the extra header set
func (r Request) WithHeader(key, value string) Request {
	r.Headers = withEntry(r.Headers, key, value)
	return r
}

// Authenticated returns a copy of r that requires a session token
func (r Request) Authenticated() Request {
	r.RequiresAuth = true
	return r
}

// Path returns the endpoint path below the base path.
func (r Request) Path() string {
	return "/" + apiVersion + "/" + r.Group + "/" + r.Function
}

// Validate checks that r can be turned into a URL.
func (r Request) Validate() error {
	switch r.Method {
	case MethodGet, MethodPost:
	default:
		return invalidParams("validate request", "unsupported method %q", r.Method)
	}
	if err := validSegment("group", r.Group); err != nil {
		return err
	}
	return validSegment("function", r.Function)
}

func validSegment(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalidParams("validate request", "%s is required", name)
	}
	if strings.ContainsAny(value, "/?#") {
		return invalidParams("validate request", "%s %q contains a reserved character", name, value)
	}
	return nil
}

func withEntry(m map[string]string, key, value string) map[string]string {
	out := maps.Clone(m)
	if out == nil {
		out = make(map[string]string, 1)
	}
	out[key] = value
	return out
}
