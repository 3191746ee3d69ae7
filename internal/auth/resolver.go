package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
)

// ProviderGmail is the provider key Gmail tokens are stored under.
const ProviderGmail = "gmail"

var (
	// ErrAuthenticationRequired means no identity is established and no
	// interactive authorization could stand in for one.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrNotConnected means the identity has no Gmail token and no way to
	// obtain one without an interactive authorizer.
	ErrNotConnected = errors.New("gmail account not connected")

	// ErrTokenNotFound is returned by TokenStore.GetToken for a missing entry.
	ErrTokenNotFound = errors.New("token not found")
)

// Session exposes the current identity and any provider token it carries.
type Session interface {
	Identity(ctx context.Context) (string, bool)
	ProviderToken(ctx context.Context) (*oauth2.Token, bool)
}

// TokenStore persists provider tokens keyed by (identity, provider).
type TokenStore interface {
	UpsertToken(ctx context.Context, identity, provider string, tok *oauth2.Token) error
	GetToken(ctx context.Context, identity, provider string) (*oauth2.Token, error)
	DeleteToken(ctx context.Context, identity, provider string) error
}

// UserStore records known identities. EnsureUser must be idempotent.
type UserStore interface {
	EnsureUser(ctx context.Context, identity string) error
}

// Authorizer runs an interactive OAuth flow and returns the token pair.
type Authorizer interface {
	Authorize(ctx context.Context) (*oauth2.Token, error)
}

// Config wires a Resolver. Session and Tokens are required.
type Config struct {
	Session    Session
	Tokens     TokenStore
	Users      UserStore
	Authorizer Authorizer
	Logger     *slog.Logger
	Metrics    *instrumentation.Metrics
}

// Resolver obtains a Gmail access token through the fallback chain
// stored token, session token, interactive authorization.
type Resolver struct {
	session    Session
	tokens     TokenStore
	users      UserStore
	authorizer Authorizer
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Session == nil {
		return nil, errors.New("auth: session is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("auth: token store is required")
	}
	return &Resolver{
		session:    cfg.Session,
		tokens:     cfg.Tokens,
		users:      cfg.Users,
		authorizer: cfg.Authorizer,
		logger:     logging.OrDefault(cfg.Logger),
		metrics:    cfg.Metrics,
	}, nil
}

// Resolve returns a usable Gmail token, first success wins:
//
//  1. Without an identity, the interactive flow runs and its token is returned
//     unpersisted. No authorizer, or a failed flow, is ErrAuthenticationRequired.
//  2. A stored token for (identity, "gmail") is returned verbatim. Expiry is
//     not checked; the caller learns about it from a 401.
//  3. A token carried by the session is persisted and returned.
//  4. The interactive flow runs and its token pair is persisted.
//
// Persistence failures in steps 3 and 4 are logged, never returned.
func (r *Resolver) Resolve(ctx context.Context) (*oauth2.Token, error) {
	identity, ok := r.session.Identity(ctx)
	if !ok || identity == "" {
		if r.authorizer == nil {
			return nil, ErrAuthenticationRequired
		}
		tok, err := r.authorize(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationRequired, err)
		}
		return tok, nil
	}
	logger := r.logger.With(logging.UserHash(identity))

	tok, err := r.tokens.GetToken(ctx, identity, ProviderGmail)
	switch {
	case err == nil && usable(tok):
		r.metrics.RecordTokenResolution(ctx, instrumentation.TokenSourceStore, instrumentation.StatusSuccess)
		return tok, nil
	case err != nil && !errors.Is(err, ErrTokenNotFound):
		// An unreachable store must not block the remaining fallbacks.
		logger.Warn("failed to read cached token", logging.Operation("auth.resolve"), logging.Err(err))
	}

	if tok, ok := r.session.ProviderToken(ctx); ok && usable(tok) {
		r.persist(ctx, logger, identity, tok)
		r.metrics.RecordTokenResolution(ctx, instrumentation.TokenSourceSession, instrumentation.StatusSuccess)
		return tok, nil
	}

	if r.authorizer == nil {
		return nil, ErrNotConnected
	}
	tok, err = r.authorize(ctx)
	if err != nil {
		return nil, err
	}
	r.persist(ctx, logger, identity, tok)
	return tok, nil
}

// Connect runs the interactive flow regardless of any cached token and
// persists the result for the current identity.
func (r *Resolver) Connect(ctx context.Context) (*oauth2.Token, error) {
	identity, ok := r.session.Identity(ctx)
	if !ok || identity == "" {
		return nil, ErrAuthenticationRequired
	}
	if r.authorizer == nil {
		return nil, errors.New("no interactive authorizer configured")
	}
	tok, err := r.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.ensureUser(ctx, identity); err != nil {
		return nil, err
	}
	if err := r.tokens.UpsertToken(ctx, identity, ProviderGmail, tok); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return tok, nil
}

// Invalidate deletes the stored Gmail token of the current identity so the
// next Resolve re-acquires one. Without an identity it does nothing.
func (r *Resolver) Invalidate(ctx context.Context) error {
	identity, ok := r.session.Identity(ctx)
	if !ok || identity == "" {
		return nil
	}
	if err := r.tokens.DeleteToken(ctx, identity, ProviderGmail); err != nil && !errors.Is(err, ErrTokenNotFound) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	r.logger.Info("invalidated cached gmail token", logging.UserHash(identity))
	return nil
}

// Disconnect removes the stored Gmail token. It is Invalidate for an
// explicit user action and requires an identity.
func (r *Resolver) Disconnect(ctx context.Context) error {
	if identity, ok := r.session.Identity(ctx); !ok || identity == "" {
		return ErrAuthenticationRequired
	}
	return r.Invalidate(ctx)
}

// Connected reports whether a Gmail token is stored for the current identity.
func (r *Resolver) Connected(ctx context.Context) (bool, error) {
	identity, ok := r.session.Identity(ctx)
	if !ok || identity == "" {
		return false, ErrAuthenticationRequired
	}
	tok, err := r.tokens.GetToken(ctx, identity, ProviderGmail)
	if errors.Is(err, ErrTokenNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return usable(tok), nil
}

func (r *Resolver) authorize(ctx context.Context) (*oauth2.Token, error) {
	tok, err := r.authorizer.Authorize(ctx)
	if err == nil && !usable(tok) {
		err = errors.New("authorization returned no access token")
	}
	if err != nil {
		r.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		r.metrics.RecordTokenResolution(ctx, instrumentation.TokenSourceInteractive, instrumentation.StatusError)
		return nil, fmt.Errorf("gmail authorization failed: %w", err)
	}
	r.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	r.metrics.RecordTokenResolution(ctx, instrumentation.TokenSourceInteractive, instrumentation.StatusSuccess)
	return tok, nil
}

func (r *Resolver) persist(ctx context.Context, logger *slog.Logger, identity string, tok *oauth2.Token) {
	if err := r.ensureUser(ctx, identity); err != nil {
		logger.Warn("failed to record user", logging.Operation("auth.persist"), logging.Err(err))
	}
	if err := r.tokens.UpsertToken(ctx, identity, ProviderGmail, tok); err != nil {
		logger.Warn("failed to persist gmail token", logging.Operation("auth.persist"), logging.Err(err))
		return
	}
	logger.Debug("persisted gmail token", logging.Operation("auth.persist"))
}

func (r *Resolver) ensureUser(ctx context.Context, identity string) error {
	if r.users == nil {
		return nil
	}
	return r.users.EnsureUser(ctx, identity)
}

func usable(tok *oauth2.Token) bool {
	return tok != nil && tok.AccessToken != ""
}
