// Package auth resolves the Gmail access token for the current identity.
//
// Collaborators are injected through Config: the Session that knows who is
// signed in, the TokenStore caching tokens per (identity, provider), an
// optional UserStore, and an optional interactive Authorizer. The Resolver
// also implements gmail.Invalidator so a 401 from Gmail purges the cached
// token.
package auth
