package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Tone is a target register for ChangeTone.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
)

var (
	// ErrRewriteFailed wraps every failure of the rewrite provider.
	ErrRewriteFailed = errors.New("rewrite failed")

	// ErrUnknownTone is returned for a tone other than professional or friendly.
	ErrUnknownTone = errors.New("unknown tone")

	// ErrEmptyText is returned when there is nothing to rewrite.
	ErrEmptyText = errors.New("text is empty")
)

// Rewriter improves draft text.
type Rewriter interface {
	Polish(ctx context.Context, text string) (string, error)
	ChangeTone(ctx context.Context, text string, tone Tone) (string, error)
}

// ParseTone validates a tone name.
func ParseTone(s string) (Tone, error) {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case ToneProfessional, ToneFriendly:
		return t, nil
	default:
		return "", fmt.Errorf("%w %q: want professional or friendly", ErrUnknownTone, s)
	}
}

const (
	polishMarker       = "Текст для исправления:\n"
	toneMarker         = "Текст:\n"
	professionalMarker = "официально-деловом"
	friendlyMarker     = "дружелюбном"
)

func polishPrompt(text string) string {
	return "Исправь грамматические и стилистические ошибки. Сохрани смысл и тон. " +
		"Верни только исправленный текст без объяснений.\n\n" + polishMarker + text
}

func tonePrompt(text string, tone Tone) (string, error) {
	switch tone {
	case ToneProfessional:
		return "Перепиши текст в " + professionalMarker + " стиле. Используй уважительные обращения " +
			"и формальные выражения. Верни только переписанный текст без объяснений.\n\n" + toneMarker + text, nil
	case ToneFriendly:
		return "Перепиши текст в " + friendlyMarker + ", неформальном тоне, но сохрани профессионализм " +
			"и понятность. Используй более casual выражения и позитивные интонации. " +
			"Верни только переписанный текст без объяснений.\n\n" + toneMarker + text, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownTone, tone)
	}
}
