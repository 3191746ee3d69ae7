package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/auth"
	"github.com/teemow/inboxassist/internal/config"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/google"
	"github.com/teemow/inboxassist/internal/inbox"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/rewrite"
	"github.com/teemow/inboxassist/internal/store"
)

// app holds the dependencies every command is built from.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    store.Store
	oauth    *oauth2.Config
	resolver *auth.Resolver
	dialer   gmail.Dialer
	inbox    *inbox.Service
	rewriter rewrite.Rewriter
}

type appOptions struct {
	// Interactive enables the copy-paste consent flow on stdin and stderr.
	// It must stay off when stdin carries a protocol.
	Interactive bool
	Metrics     *instrumentation.Metrics
}

// loadConfig reads the configuration named by --config and builds the
// logger it describes.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(os.Stderr, logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	storeOpts := cfg.StoreOptions()
	storeOpts.Logger = logger
	st, err := store.Open(ctx, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		oauth:  google.NewOAuthConfig(cfg.OAuthSettings()),
		dialer: gmail.Dialer{
			Endpoint:   cfg.Google.GmailEndpoint,
			HTTPClient: google.NewHTTPClient(cfg.Inbox.RequestTimeout),
		},
	}

	authCfg := auth.Config{
		Session: auth.ContextSession{Fallback: auth.StaticSession{ID: cfg.Session.Identity}},
		Tokens:  st,
		Users:   st,
		Logger:  logger,
		Metrics: opts.Metrics,
	}
	if opts.Interactive && cfg.Google.ClientID != "" {
		authCfg.Authorizer = google.NewInteractiveFlow(a.oauth, os.Stdin, os.Stderr)
	}
	a.resolver, err = auth.NewResolver(authCfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	scorer, err := gmail.NewScorer(cfg.Inbox.ScoringMode)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	fetcher, err := gmail.NewFetcher(gmail.FetcherConfig{
		Connect:        a.dialer.Connect,
		Invalidator:    a.resolver,
		Scorer:         scorer,
		MaxConcurrency: cfg.Inbox.MaxConcurrency,
		DetailTimeout:  cfg.Inbox.DetailTimeout,
		MaxPartDepth:   cfg.Inbox.MaxPartDepth,
		Logger:         logger,
		Metrics:        opts.Metrics,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	a.inbox, err = inbox.NewService(a.resolver, fetcher, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a.rewriter, err = newRewriter(cfg.Rewrite, logger, opts.Metrics)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

// newRewriter returns the chat-backed rewriter, or canned rewrites when no
// API key is configured.
func newRewriter(cfg config.RewriteConfig, logger *slog.Logger, metrics *instrumentation.Metrics) (rewrite.Rewriter, error) {
	if cfg.APIKey == "" {
		logging.OrDefault(logger).Warn("no rewrite API key configured, using canned rewrites")
		return rewrite.MockRewriter{}, nil
	}
	return rewrite.NewChatRewriter(rewrite.ChatConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
		Logger:  logger,
		Metrics: metrics,
	})
}

// gmailToken resolves the token of the configured identity.
func (a *app) gmailToken(ctx context.Context) (*oauth2.Token, error) {
	tok, err := a.resolver.Resolve(ctx)
	if errors.Is(err, auth.ErrNotConnected) {
		return nil, fmt.Errorf("%w: run 'inboxassist connect' first", err)
	}
	return tok, err
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp loads the configuration, builds the app and closes it after fn.
func withApp(ctx context.Context, opts appOptions, fn func(a *app) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close token store", logging.Err(err))
		}
	}()
	return fn(a)
}
