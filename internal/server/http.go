package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/teemow/inboxassist/internal/logging"
)

const (
	// DefaultAddr is the default address for the API server.
	DefaultAddr = ":8080"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string
	// JWTSecret enables bearer authentication on /api and /mcp. When empty,
	// every request acts as the configured identity.
	JWTSecret string
	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}

// HTTPServer serves the JSON API, the MCP endpoint and health probes.
type HTTPServer struct {
	sc         *ServerContext
	config     HTTPConfig
	health     *HealthChecker
	httpServer *http.Server
	logger     *slog.Logger
}

// NewHTTPServer creates an HTTPServer. It does not listen until Start.
func NewHTTPServer(sc *ServerContext, config HTTPConfig) (*HTTPServer, error) {
	if sc == nil {
		return nil, errors.New("server context is required")
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	return &HTTPServer{
		sc:     sc,
		config: config,
		health: NewHealthChecker(sc),
		logger: logging.OrDefault(sc.Logger()).With(slog.String("component", "http")),
	}, nil
}

// Handler builds the routed handler. Health endpoints are never
// authenticated.
func (s *HTTPServer) Handler() http.Handler {
	protect := func(h http.Handler) http.Handler { return h }
	if s.config.JWTSecret != "" {
		secret := []byte(s.config.JWTSecret)
		protect = func(h http.Handler) http.Handler { return JWTAuth(secret, s.logger, h) }
	}

	mux := http.NewServeMux()
	s.health.RegisterHealthEndpoints(mux)
	NewAPI(s.sc).Register(mux, protect)
	if s.config.MCPHandler != nil {
		mux.Handle("/mcp", protect(s.config.MCPHandler))
	}
	return InstrumentHTTP(s.sc.Metrics(), mux)
}

// Health exposes the readiness switch.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a graceful shutdown.
func (s *HTTPServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return s.sc.Context() },
	}
	s.logger.Info("starting http server", slog.String("addr", s.config.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.config.Addr
}
