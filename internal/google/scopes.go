package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultOAuthScopes are requested by the interactive flow.
//
// The scopes provide access to:
//   - Gmail: read messages and labels (modify is needed for label state)
//   - OpenID profile: the connected account's address and name
var DefaultOAuthScopes = []string{
	// OpenID Connect scopes (required for user info)
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",

	gmail.GmailModifyScope,
}
