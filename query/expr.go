// Package query evaluates expr expressions against normalized Proxer
// responses.
//
// Top-level response fields are exposed as variables, so a login reply
// can be checked with:
//
//	!response.error && data.token != ""
//
// The whole response is also available as "response". Helper functions:
//
//	hasField(name)  reports whether the response carries a top-level field
//	fromUnix(v)     converts a unix timestamp (number or numeric string) to a time
//	daysSince(t)    whole days elapsed since t
//	daysAgo(n)      the time n days before now
package query

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/proxer/proxer"
)

// Program is a compiled expression. It is safe for concurrent use.
type Program struct {
	expression string
	program    *vm.Program
}

// CompilerOption configures a Compiler
type CompilerOption func(*Compiler)

// WithCache enables program caching with the specified size
func WithCache(size int) CompilerOption {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) CompilerOption {
	return func(c *Compiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// Compiler turns expressions into Programs
type Compiler struct {
	helperFuncs map[string]any
	cache       *lruCache
}

// NewCompiler creates a new expression compiler
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Compile compiles an expression into an executable program
func (c *Compiler) Compile(expression string) (*Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Response fields are only known at run time
	program, err := expr.Compile(expression,
		expr.Env(c.compileEnvironment()),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	p := &Program{
		expression: expression,
		program:    program,
	}

	if c.cache != nil {
		c.cache.Put(expression, p)
	}

	return p, nil
}

// Clear removes all cached programs
func (c *Compiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached programs
func (c *Compiler) Size() int {
	if c.cache != nil {
		return c.cache.Len()
	}
	return 0
}

// compileEnvironment holds helpers plus placeholders for the closures
// bound per response.
func (c *Compiler) compileEnvironment() map[string]any {
	env := make(map[string]any, len(c.helperFuncs)+2)
	env["hasField"] = func(string) bool { return false }
	env["response"] = map[string]any{}
	maps.Copy(env, c.helperFuncs)
	return env
}

// Eval runs the program against a response and returns its result
func (p *Program) Eval(resp *proxer.Response) (any, error) {
	if resp == nil {
		return nil, &EvaluationError{
			Expression: p.expression,
			Reason:     "no response",
		}
	}

	result, err := expr.Run(p.program, createRuntimeEnvironment(resp))
	if err != nil {
		return nil, &EvaluationError{
			Expression: p.expression,
			Reason:     "failed to evaluate expression",
			Err:        err,
		}
	}
	return result, nil
}

// Match runs the program and requires a boolean result
func (p *Program) Match(resp *proxer.Response) (bool, error) {
	result, err := p.Eval(resp)
	if err != nil {
		return false, err
	}

	matched, ok := result.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: p.expression,
			Reason:     "expression did not produce a boolean",
		}
	}
	return matched, nil
}

// Expression returns the original expression
func (p *Program) Expression() string {
	return p.expression
}

func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 8)
	addHelperFunctions(funcs)
	return funcs
}

func addHelperFunctions(env map[string]any) {
	env["fromUnix"] = fromUnix
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
}

// createRuntimeEnvironment exposes the response fields next to the helpers.
// Helpers shadow fields of the same name; those stay reachable through
// "response".
func createRuntimeEnvironment(resp *proxer.Response) map[string]any {
	fields := plainNumbers(resp.Map()).(map[string]any)

	env := make(map[string]any, len(fields)+8)
	maps.Copy(env, fields)
	env["response"] = fields
	env["hasField"] = createHasFieldFunc(fields)
	addHelperFunctions(env)

	return env
}

// plainNumbers replaces json.Number values with int or float64 so they
// compare like numbers. Integers that do not fit an int stay json.Number.
func plainNumbers(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(n.String(), 10, 0); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil && strings.ContainsAny(n.String(), ".eE") {
			return f
		}
		return n
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[k] = plainNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = plainNumbers(item)
		}
		return out
	default:
		return v
	}
}

func createHasFieldFunc(fields map[string]any) func(string) bool {
	return func(name string) bool {
		_, ok := fields[name]
		return ok
	}
}

// fromUnix accepts the shapes timestamps arrive in from the API. Anything
// unreadable maps to the zero time.
func fromUnix(v any) time.Time {
	var secs int64
	switch n := v.(type) {
	case float64:
		secs = int64(n)
	case int:
		secs = int64(n)
	case int64:
		secs = n
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return time.Time{}
		}
		secs = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return time.Time{}
		}
		secs = parsed
	default:
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
