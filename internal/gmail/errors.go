package gmail

import (
	"errors"
	"fmt"
)

// ErrTokenExpired is returned when Gmail rejects the bearer token with 401.
// The cached token has already been invalidated when this is returned; callers
// should ask the user to reconnect rather than retry with the same token.
var ErrTokenExpired = errors.New("gmail token expired")

// ProviderError is any other non-2xx response from Gmail.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gmail provider error: status %d", e.Status)
	}
	return fmt.Sprintf("gmail provider error: status %d: %s", e.Status, e.Body)
}

// DroppedMessage records a message whose detail could not be fetched or
// parsed. Dropped messages never fail a page.
type DroppedMessage struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}
