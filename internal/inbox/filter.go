package inbox

import (
	"fmt"
	"strings"

	"github.com/teemow/inboxassist/internal/gmail"
)

// FilterMode selects which messages of a page are shown.
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterImportant FilterMode = "important"
	FilterUnread    FilterMode = "unread"
)

// ImportantScore is the score above which a message counts as important
// even without the IMPORTANT label.
const ImportantScore = 0.7

// ParseFilterMode validates a mode name. Empty means all.
func ParseFilterMode(s string) (FilterMode, error) {
	switch m := FilterMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return FilterAll, nil
	case FilterAll, FilterImportant, FilterUnread:
		return m, nil
	default:
		return "", fmt.Errorf("unknown filter %q: want all, important or unread", s)
	}
}

// Filter narrows a page by mode and a case-insensitive search query over
// sender name, sender address, subject and snippet.
type Filter struct {
	Mode  FilterMode
	Query string
}

// Match reports whether m passes the filter.
func (f Filter) Match(m gmail.DisplayMessage) bool {
	switch f.Mode {
	case FilterImportant:
		if !m.IsImportant && m.AIScore <= ImportantScore {
			return false
		}
	case FilterUnread:
		if m.IsRead {
			return false
		}
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{m.From.Name, m.From.Email, m.Subject, m.Snippet} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Apply returns the messages matching f, preserving order.
func (f Filter) Apply(msgs []gmail.DisplayMessage) []gmail.DisplayMessage {
	out := make([]gmail.DisplayMessage, 0, len(msgs))
	for _, m := range msgs {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}
