package auth

import (
	"context"

	"golang.org/x/oauth2"
)

type identityKey struct{}

// WithIdentity returns a context carrying an authenticated identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey{}).(string)
	return id, ok && id != ""
}

// StaticSession is a fixed identity with an optional provider token, as
// used by the CLI where the identity comes from configuration.
type StaticSession struct {
	ID    string
	Token *oauth2.Token
}

func (s StaticSession) Identity(context.Context) (string, bool) {
	return s.ID, s.ID != ""
}

func (s StaticSession) ProviderToken(context.Context) (*oauth2.Token, bool) {
	return s.Token, s.Token != nil
}

// ContextSession reads the identity from the request context and falls back
// to Fallback when the context has none.
type ContextSession struct {
	Fallback Session
}

func (s ContextSession) Identity(ctx context.Context) (string, bool) {
	if id, ok := IdentityFromContext(ctx); ok {
		return id, true
	}
	if s.Fallback != nil {
		return s.Fallback.Identity(ctx)
	}
	return "", false
}

func (s ContextSession) ProviderToken(ctx context.Context) (*oauth2.Token, bool) {
	if _, ok := IdentityFromContext(ctx); ok {
		// A provider token belongs to the fallback identity only.
		return nil, false
	}
	if s.Fallback != nil {
		return s.Fallback.ProviderToken(ctx)
	}
	return nil, false
}
