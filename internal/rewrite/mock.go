package rewrite

import (
	"context"
	"strings"
	"time"
)

// MockRewriter returns canned rewrites so the rewrite surfaces work without
// an API key.
type MockRewriter struct {
	// Delay imitates provider latency.
	Delay time.Duration
}

func (m MockRewriter) Polish(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return strings.TrimSpace(text) + " (исправлено грамматикой).", nil
}

func (m MockRewriter) ChangeTone(ctx context.Context, text string, tone Tone) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if _, err := tonePrompt(text, tone); err != nil {
		return "", err
	}
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	body := strings.TrimSpace(text)
	if tone == ToneProfessional {
		return "Уважаемый адресат,\n\nХотел бы обратить Ваше внимание на следующее: " + body + "\n\nС уважением.", nil
	}
	return "Привет! 😊\n\nЯ хотел бы рассказать тебе о следующем: " + body + "\n\nСпасибо за внимание! 👋", nil
}

func (m MockRewriter) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(m.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
