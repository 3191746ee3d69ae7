// Package google provides the Google OAuth2 pieces of inboxassist.
//
// NewOAuthConfig builds the client configuration, InteractiveFlow runs the
// consent flow with PKCE for the CLI, and UserInfoClient reads the profile of
// the account a token belongs to.
package google
