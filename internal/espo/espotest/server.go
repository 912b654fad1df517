// Package espotest runs a fake CRM on httptest for service tests.
package espotest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/go-chi/chi/v5"
)

const (
	User     = "admin"
	Password = "secret"
)

type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Decode unmarshals the recorded request body.
func (c Call) Decode(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(c.Body, v); err != nil {
		t.Fatalf("decode %s %s body %q: %v", c.Method, c.Path, c.Body, err)
	}
}

type Server struct {
	*httptest.Server
	mu    sync.Mutex
	calls []Call
}

// New starts a fake CRM whose routes are registered by routes and returns a
// client authenticated with User/Password. Requests without those credentials get 401.
func New(t testing.TB, routes func(r chi.Router)) (*Server, *espo.Client) {
	t.Helper()
	s := &Server{}
	r := chi.NewRouter()
	r.Use(s.record, requireAuth)
	routes(r)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s, espo.NewClient(s.URL, 5*time.Second, espo.Static{Username: User, Password: Password}, nil)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != User || p != Password || r.Header.Get("Espo-Authorization") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo filters recorded calls by method and exact path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ListOf wraps items in the CRM list envelope.
func ListOf[T any](total int, items []T) map[string]any {
	if items == nil {
		items = []T{}
	}
	return map[string]any{"total": total, "list": items}
}
