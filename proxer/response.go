package proxer

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ettle/strcase"
	"github.com/go-viper/mapstructure/v2"
)

// Canonical names of the fields every API response carries.
const (
	FieldError   = "error"
	FieldMessage = "message"
	FieldCode    = "code"
	FieldData    = "data"
)

// Response is a normalized API reply. The upstream error code is folded
// into Error; every other top-level field is kept in Fields under its
// snake_case name.
type Response struct {
	Error  bool
	Fields map[string]any
}

// Normalize converts a decoded JSON object into a Response.
func Normalize(body map[string]any) *Response {
	fields := make(map[string]any, len(body))

	// Keys that are already canonical win over converted duplicates.
	// Among converted duplicates the first key in sorted order wins.
	for _, k := range slices.Sorted(maps.Keys(body)) {
		key := strcase.ToSnake(k)
		if key == k {
			continue
		}
		if _, taken := fields[key]; !taken {
			fields[key] = body[k]
		}
	}
	for k, v := range body {
		if strcase.ToSnake(k) == k {
			fields[k] = v
		}
	}

	code, ok := fields[FieldError]
	delete(fields, FieldError)

	return &Response{
		Error:  ok && errorFlag(code),
		Fields: fields,
	}
}

// errorFlag interprets the upstream error field. Anything it cannot read
// as zero or false counts as an error.
func errorFlag(v any) bool {
	switch c := v.(type) {
	case nil:
		return false
	case bool:
		return c
	case float64:
		return c != 0
	case int:
		return c != 0
	case int64:
		return c != 0
	case json.Number:
		f, err := c.Float64()
		return err != nil || f != 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		return err != nil || f != 0
	default:
		return true
	}
}

// Get returns a field by its canonical name
func (r *Response) Get(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Message returns the message field, if it is a string
func (r *Response) Message() string {
	msg, _ := r.Fields[FieldMessage].(string)
	return msg
}

// Code returns the numeric code field, or 0 when absent
func (r *Response) Code() int {
	switch c := r.Fields[FieldCode].(type) {
	case float64:
		return int(c)
	case int:
		return c
	case json.Number:
		n, _ := c.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(c)
		return n
	default:
		return 0
	}
}

// Data returns the data field
func (r *Response) Data() any {
	return r.Fields[FieldData]
}

// Err returns an *APIError when the API flagged the request as failed.
func (r *Response) Err() error {
	if !r.Error {
		return nil
	}
	return &APIError{Code: r.Code(), Message: r.Message()}
}

// Map returns the fields together with the error flag, in the shape used
// for display and decoding.
func (r *Response) Map() map[string]any {
	out := maps.Clone(r.Fields)
	if out == nil {
		out = make(map[string]any, 1)
	}
	out[FieldError] = r.Error
	return out
}

// MarshalJSON encodes the response as a flat object.
func (r *Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// Decode copies the response into out, matching fields by their json tags.
// Numbers and strings are converted where the target type requires it.
func (r *Response) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(r.Map()); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
