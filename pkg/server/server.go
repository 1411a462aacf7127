// Package server wraps abcxyz/pkg/serving with the middleware chain
// the graph-builder HTTP surface needs, adapted from ocifactory's
// handler.Server/Logger pattern.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/serving"
)

// Middleware wraps an http.Handler with cross-cutting behavior.
type Middleware func(next http.Handler) http.Handler

// Server is a wrapper around serving.Server that applies a middleware
// chain before handing requests to the graph handler.
type Server struct {
	svr         *serving.Server
	middlewares []Middleware
}

// New binds a listener on address:port with middlewares applied
// outermost-first. An empty address binds all interfaces.
func New(address, port string, middlewares ...Middleware) (*Server, error) {
	svr, err := serving.New(net.JoinHostPort(address, port))
	if err != nil {
		return nil, fmt.Errorf("server: creating listener: %w", err)
	}
	return &Server{svr: svr, middlewares: middlewares}, nil
}

// Start serves handler until ctx is cancelled, then gracefully drains
// in-flight requests.
func (s *Server) Start(ctx context.Context, handler http.Handler) error {
	h := handler
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		h = s.middlewares[i](h)
	}
	return s.svr.StartHTTPHandler(ctx, h) //nolint:wrapcheck
}

// Logger attaches a request-scoped logger configured from
// GRAPH_BUILDER_-prefixed environment variables.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(logging.WithLogger(r.Context(), logging.NewFromEnv("GRAPH_BUILDER_")))
		next.ServeHTTP(w, r)
	})
}
