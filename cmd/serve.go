package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/auth"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/inbox_tools"
	"github.com/teemow/inboxassist/internal/tools/rewrite_tools"
)

// Transport names accepted by serve.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveOptions struct {
	Transport string
	Addr      string
	Metrics   MetricsConfig
}

func newServeCmd() *cobra.Command {
	var (
		transport     string
		httpAddr      string
		metricsAddr   string
		enableMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API and MCP server",
		Long: `Start the server that exposes the inbox and the rewriter.

Transports:
  stdio  MCP over stdin/stdout, for assistants that spawn the process
  http   JSON API under /api, MCP under /mcp, health probes under /healthz

With session.jwt_secret set, /api and /mcp require an HS256 bearer token
whose subject is the identity. Without it, every request acts as
session.identity.

The server never runs the interactive consent flow; connect an account
with 'inboxassist connect' first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := serveOptions{
				Transport: transport,
				Addr:      httpAddr,
				Metrics:   MetricsConfig{Enabled: enableMetrics, Addr: metricsAddr},
			}
			if !cmd.Flags().Changed("metrics") && os.Getenv("METRICS_ENABLED") == "false" {
				opts.Metrics.Enabled = false
			}
			return runServe(opts)
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", TransportHTTP, "Transport: stdio or http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (default: server.addr)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics listen address (default: server.metrics_addr)")
	cmd.Flags().BoolVar(&enableMetrics, "metrics", true, "Serve Prometheus metrics on a separate port (http transport only)")

	return cmd
}

func runServe(opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.Addr == "" {
		opts.Addr = cfg.Server.Addr
	}
	if opts.Metrics.Addr == "" {
		opts.Metrics.Addr = cfg.Server.MetricsAddr
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	a, err := newApp(shutdownCtx, cfg, logger, appOptions{Metrics: provider.Metrics()})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close token store", logging.Err(err))
		}
	}()

	serverContext, err := server.NewServerContext(shutdownCtx, server.Options{
		Inbox:          a.inbox,
		Rewriter:       a.rewriter,
		Resolver:       a.resolver,
		Store:          a.store,
		RequestTimeout: cfg.Inbox.RequestTimeout,
		Logger:         logger,
		Metrics:        provider.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	mcpSrv, err := newMCPServer(serverContext)
	if err != nil {
		return err
	}

	switch opts.Transport {
	case TransportStdio:
		return runStdioServer(mcpSrv, logger)
	case TransportHTTP, "streamable-http":
		var metricsServer *server.MetricsServer
		if opts.Metrics.Enabled && provider.PrometheusEnabled() {
			metricsServer, err = startMetricsServer(opts.Metrics, provider, logger)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
				defer cancel()
				if err := metricsServer.Shutdown(ctx); err != nil {
					logger.Warn("error during metrics server shutdown", logging.Err(err))
				}
			}()
		}
		return runHTTPServer(shutdownCtx, mcpSrv, serverContext, opts.Addr, cfg.Session.JWTSecret, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", opts.Transport, TransportStdio, TransportHTTP)
	}
}

// newMCPServer creates the MCP server with every tool group registered.
func newMCPServer(sc *server.ServerContext) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("inboxassist", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerAllTools(mcpSrv, sc); err != nil {
		return nil, err
	}
	return mcpSrv, nil
}

func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Inbox",
			register: func() error {
				return inbox_tools.RegisterInboxTools(mcpSrv, sc)
			},
		},
		{
			name: "Rewrite",
			register: func() error {
				return rewrite_tools.RegisterRewriteTools(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}
	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv, mcpserver.WithErrorLogger(logging.StdLogger(logger, slog.LevelError))); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func startMetricsServer(cfg MetricsConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	return metricsServer, nil
}

// identityFromRequest carries the identity established by the JWT
// middleware into the MCP session context.
func identityFromRequest(ctx context.Context, r *http.Request) context.Context {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return auth.WithIdentity(ctx, id)
	}
	return ctx
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, addr, jwtSecret string, logger *slog.Logger) error {
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithLogger(logging.NewMCPAdapter(logger)),
		mcpserver.WithHTTPContextFunc(identityFromRequest),
	)

	httpServer, err := server.NewHTTPServer(sc, server.HTTPConfig{
		Addr:       addr,
		JWTSecret:  jwtSecret,
		MCPHandler: streamable,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	logger.Info("starting inboxassist server",
		slog.String("addr", httpServer.Addr()),
		slog.Bool("jwt_auth", jwtSecret != ""),
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
