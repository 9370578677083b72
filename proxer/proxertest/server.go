// Package proxertest runs a fake Proxer API for tests.
//
// The server answers on {url}/api/v1/{group}/{function}, records every call
// and implements just enough of the API to exercise authentication:
// user/login issues a session token and user/userinfo requires it. Other
// endpoints are registered with Handle.
package proxertest

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/s0up4200/proxer/proxer"
)

// BasePath is the base path the fake server is mounted on.
const BasePath = "/api"

// Call is one request received by the server.
type Call struct {
	ID       string
	Method   string
	Group    string
	Function string
	Header   http.Header
	Query    url.Values
	Form     url.Values
}

// Raw is written to the client verbatim instead of being JSON encoded.
type Raw string

// Handler produces the status and body for a call. Body is JSON encoded
// unless it is Raw.
type Handler func(call Call) (status int, body any)

// Server is a fake Proxer API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
	tokens   map[string]string
}

// NewServer starts a server that is closed when the test ends.
func NewServer(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{
		handlers: make(map[string]Handler),
		tokens:   make(map[string]string),
	}
	s.Handle("user", "login", s.login)
	s.Handle("user", "userinfo", s.userinfo)

	router := chi.NewRouter()
	router.Route(BasePath+"/v1", func(v1 chi.Router) {
		v1.Get("/{group}/{function}", s.serve)
		v1.Post("/{group}/{function}", s.serve)
	})

	s.Server = httptest.NewServer(router)
	tb.Cleanup(s.Close)
	return s
}

// Handle registers h for group/function, replacing any previous handler.
func (s *Server) Handle(group, function string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[group+"/"+function] = h
}

// Reply registers a handler that always answers with status and body.
func (s *Server) Reply(group, function string, status int, body any) {
	s.Handle(group, function, func(Call) (int, any) {
		return status, body
	})
}

// Calls returns the calls received so far, oldest first.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// LastCall returns the most recent call.
func (s *Server) LastCall() (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return Call{}, false
	}
	return s.calls[len(s.calls)-1], true
}

// Config returns client settings pointing at the server.
func (s *Server) Config() proxer.Config {
	return Config(s.Server)
}

// Config returns client settings pointing at any httptest server.
func Config(ts *httptest.Server) proxer.Config {
	u, err := url.Parse(ts.URL)
	if err != nil {
		panic("proxertest: bad server url: " + err.Error())
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		panic("proxertest: bad server host: " + err.Error())
	}
	port, _ := strconv.Atoi(portStr)

	return proxer.Config{
		Insecure:    true,
		Host:        host,
		Port:        port,
		BasePath:    BasePath,
		DeviceLabel: "proxertest",
	}
}

// Client creates a client for the server, failing the test on error.
func (s *Server) Client(tb testing.TB, key proxer.Key, opts ...proxer.Option) *proxer.Client {
	tb.Helper()

	opts = append([]proxer.Option{
		proxer.WithConfig(s.Config()),
		proxer.WithTransport(proxer.NewHTTPTransport(s.Server.Client(), zerolog.Nop())),
	}, opts...)

	client, err := proxer.New(key, opts...)
	if err != nil {
		tb.Fatalf("proxertest: create client: %v", err)
	}
	return client
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	call := Call{
		ID:       uuid.NewString(),
		Method:   r.Method,
		Group:    chi.URLParam(r, "group"),
		Function: chi.URLParam(r, "function"),
		Header:   r.Header.Clone(),
		Query:    r.URL.Query(),
		Form:     r.PostForm,
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	handler, ok := s.handlers[call.Group+"/"+call.Function]
	s.mu.Unlock()

	if call.Header.Get(proxer.HeaderAPIKey) == "" && call.Header.Get(proxer.HeaderTestMode) != "1" {
		writeJSON(w, http.StatusOK, Failure(1001, "API key missing"))
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, Failure(1002, "API function does not exist"))
		return
	}

	status, body := handler(call)
	if raw, isRaw := body.(Raw); isRaw {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(raw))
		return
	}
	writeJSON(w, status, body)
}

func (s *Server) login(call Call) (int, any) {
	username := call.Form.Get("username")
	if username == "" || call.Form.Get("password") == "" {
		return http.StatusOK, Failure(3001, "Invalid login credentials")
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = username
	s.mu.Unlock()

	return http.StatusOK, Success("Login successful", map[string]any{
		"uid":   "1",
		"token": token,
	})
}

func (s *Server) userinfo(call Call) (int, any) {
	s.mu.Lock()
	username, ok := s.tokens[call.Header.Get(proxer.HeaderToken)]
	s.mu.Unlock()

	if !ok {
		return http.StatusOK, Failure(3004, "User is not logged in")
	}
	return http.StatusOK, Success("Data loaded", map[string]any{
		"uid":      "1",
		"username": username,
	})
}

// Success builds a body with error 0.
func Success(message string, data any) map[string]any {
	return map[string]any{
		"error":   0,
		"message": message,
		"data":    data,
	}
}

// Failure builds a body with error 1 and the given code.
func Failure(code int, message string) map[string]any {
	return map[string]any{
		"error":   1,
		"message": message,
		"code":    code,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
