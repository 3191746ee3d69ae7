package gmail

import (
	"net/mail"
	"slices"
	"sort"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// Gmail system label ids.
const (
	LabelUnread    = "UNREAD"
	LabelStarred   = "STARRED"
	LabelImportant = "IMPORTANT"
	LabelInbox     = "INBOX"
)

// DisplayMessage is the normalized message record handed to callers.
type DisplayMessage struct {
	ID          string  `json:"id"`
	ThreadID    string  `json:"threadId"`
	From        Sender  `json:"from"`
	Subject     string  `json:"subject"`
	Snippet     string  `json:"snippet"`
	Date        string  `json:"date"`
	Timestamp   int64   `json:"timestamp"`
	IsRead      bool    `json:"isRead"`
	IsStarred   bool    `json:"isStarred"`
	IsImportant bool    `json:"isImportant"`
	AIScore     float64 `json:"aiScore"`
}

// BuildDisplayMessage assembles a DisplayMessage from a full message. It does
// no I/O; missing or malformed fields fall back to defaults. A missing From
// header leaves From empty, so From.Email is "" rather than a placeholder.
// A nil scorer means LabelScorer.
func BuildDisplayMessage(m *gmail.Message, scorer Scorer, now time.Time) DisplayMessage {
	if scorer == nil {
		scorer = LabelScorer{}
	}
	date := HeaderValue(m, "Date")
	dm := DisplayMessage{
		ID:          m.Id,
		ThreadID:    m.ThreadId,
		From:        ParseSender(HeaderValue(m, "From")),
		Subject:     DecodeSubject(HeaderValue(m, "Subject")),
		Snippet:     m.Snippet,
		Date:        date,
		Timestamp:   messageTimestamp(m.InternalDate, date, now),
		IsRead:      !slices.Contains(m.LabelIds, LabelUnread),
		IsStarred:   slices.Contains(m.LabelIds, LabelStarred),
		IsImportant: slices.Contains(m.LabelIds, LabelImportant),
	}
	dm.AIScore = clampScore(scorer.Score(dm))
	return dm
}

// messageTimestamp prefers the delivery time in milliseconds. A malformed
// delivery time means now; an absent one falls back to the Date header,
// then now.
func messageTimestamp(internalDate int64, dateHeader string, now time.Time) int64 {
	switch {
	case internalDate > 0:
		return internalDate
	case internalDate < 0:
		return now.UnixMilli()
	}
	if dateHeader != "" {
		if t, err := mail.ParseDate(dateHeader); err == nil {
			return t.UnixMilli()
		}
	}
	return now.UnixMilli()
}

// SortByRecency orders messages newest first. Equal timestamps keep their
// relative order.
func SortByRecency(msgs []DisplayMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp > msgs[j].Timestamp
	})
}
