package common

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxassist/internal/auth"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/rewrite"
)

// Messages shown to the user. An expired session asks for a reconnect,
// anything else for a retry.
const (
	MsgReconnect     = "Your Gmail session has expired. Reconnect with `inboxassist connect`, then try again."
	MsgNotConnected  = "Gmail is not connected. Run `inboxassist connect` first."
	MsgAuthRequired  = "You are not signed in."
	MsgRetry         = "Could not reach Gmail. Please try again."
	MsgRewriteFailed = "The rewrite service is unavailable. Please try again later."
)

// UserMessage maps an error to the message shown to the user.
func UserMessage(err error) string {
	var providerErr *gmail.ProviderError
	switch {
	case errors.Is(err, gmail.ErrTokenExpired):
		return MsgReconnect
	case errors.Is(err, auth.ErrNotConnected):
		return MsgNotConnected
	case errors.Is(err, auth.ErrAuthenticationRequired):
		return MsgAuthRequired
	case errors.Is(err, rewrite.ErrEmptyText), errors.Is(err, rewrite.ErrUnknownTone):
		return err.Error()
	case errors.Is(err, rewrite.ErrRewriteFailed):
		return MsgRewriteFailed
	case errors.As(err, &providerErr):
		return fmt.Sprintf("%s (status %d)", MsgRetry, providerErr.Status)
	default:
		return MsgRetry
	}
}

// ErrorResult builds a tool error result from err.
func ErrorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(UserMessage(err))
}
