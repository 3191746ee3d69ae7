package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/inboxassist/internal/auth"
	"github.com/teemow/inboxassist/internal/inbox"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/rewrite"
)

// DefaultRequestTimeout bounds a single API request or tool call.
const DefaultRequestTimeout = 60 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires a ServerContext. Inbox and Rewriter are required.
type Options struct {
	Inbox    *inbox.Service
	Rewriter rewrite.Rewriter
	// Resolver is optional; without it connection status and disconnect
	// are unavailable.
	Resolver *auth.Resolver
	Store    Pinger

	RequestTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *instrumentation.Metrics
}

// ServerContext holds the services shared by the HTTP API and the MCP tools.
type ServerContext struct {
	ctx            context.Context
	cancel         context.CancelFunc
	inbox          *inbox.Service
	rewriter       rewrite.Rewriter
	resolver       *auth.Resolver
	store          Pinger
	requestTimeout time.Duration
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
	audit          *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context bound to ctx.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Inbox == nil {
		return nil, errors.New("server: inbox service is required")
	}
	if opts.Rewriter == nil {
		return nil, errors.New("server: rewriter is required")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	logger := logging.OrDefault(opts.Logger)

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:            shutdownCtx,
		cancel:         cancel,
		inbox:          opts.Inbox,
		rewriter:       opts.Rewriter,
		resolver:       opts.Resolver,
		store:          opts.Store,
		requestTimeout: opts.RequestTimeout,
		logger:         logger,
		metrics:        opts.Metrics,
		audit:          instrumentation.NewAuditLogger(logger),
	}, nil
}

// Context returns the server context. It is cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

func (sc *ServerContext) Inbox() *inbox.Service {
	return sc.inbox
}

func (sc *ServerContext) Rewriter() rewrite.Rewriter {
	return sc.rewriter
}

// Resolver may be nil.
func (sc *ServerContext) Resolver() *auth.Resolver {
	return sc.resolver
}

func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics may be nil, which records nothing.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// WithRequestTimeout derives a context bounded by the configured request
// timeout.
func (sc *ServerContext) WithRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, sc.requestTimeout)
}

// Ping checks the token store. Without a store it always succeeds.
func (sc *ServerContext) Ping(ctx context.Context) error {
	if sc.store == nil {
		return nil
	}
	return sc.store.Ping(ctx)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
