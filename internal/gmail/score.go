package gmail

import (
	"fmt"
	"strings"
)

// Scoring modes accepted by NewScorer.
const (
	ScoringLabel   = "label"
	ScoringKeyword = "keyword"
)

// Scorer assigns the heuristic importance score in [0,1] to a message.
// Exactly one Scorer is active per Fetcher.
type Scorer interface {
	Score(m DisplayMessage) float64
}

// NewScorer returns the scorer for a configured mode. An empty mode selects
// ScoringLabel.
func NewScorer(mode string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ScoringLabel:
		return LabelScorer{}, nil
	case ScoringKeyword:
		return NewKeywordScorer(), nil
	default:
		return nil, fmt.Errorf("unknown scoring mode %q, must be one of: %s, %s", mode, ScoringLabel, ScoringKeyword)
	}
}

// LabelScorer scores 0.8 for messages Gmail marks IMPORTANT and 0.3 otherwise.
type LabelScorer struct{}

func (LabelScorer) Score(m DisplayMessage) float64 {
	if m.IsImportant {
		return 0.8
	}
	return 0.3
}

// KeywordScorer looks for urgency and promotional keywords in the subject
// and snippet, then falls back to the length of the sender name.
type KeywordScorer struct {
	Urgent      []string
	Promotional []string
}

// NewKeywordScorer returns a KeywordScorer with the default English and
// Russian keyword lists.
func NewKeywordScorer() KeywordScorer {
	return KeywordScorer{
		Urgent: []string{
			"срочно", "urgent", "asap", "важное", "critical", "срочное",
			"срочный", "неотложно", "неотложный", "deadline", "крайний срок", "просрочено",
		},
		Promotional: []string{
			"unsubscribe", "отписаться", "marketing", "newsletter", "promotional", "реклама",
		},
	}
}

func (s KeywordScorer) Score(m DisplayMessage) float64 {
	text := strings.ToLower(m.Subject + " " + m.Snippet)
	for _, kw := range s.Urgent {
		if strings.Contains(text, kw) {
			return 0.95
		}
	}
	for _, kw := range s.Promotional {
		if strings.Contains(text, kw) {
			return 0.1
		}
	}
	if len([]rune(m.From.Name)) > 2 {
		return 0.7
	}
	return 0.4
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
