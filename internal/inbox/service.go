package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/logging"
)

// TokenResolver yields the Gmail token of the current identity.
type TokenResolver interface {
	Resolve(ctx context.Context) (*oauth2.Token, error)
}

// MessageFetcher is the Gmail side of the inbox.
type MessageFetcher interface {
	List(ctx context.Context, tok *oauth2.Token, pageSize int64, pageToken string) (*gmail.Page, error)
	Content(ctx context.Context, tok *oauth2.Token, id string) (*gmail.MessageContent, error)
}

// ListRequest asks for one page of the inbox.
type ListRequest struct {
	PageSize  int
	PageToken string
	Filter    Filter
}

// Service resolves a token per call and serves inbox pages and message
// bodies.
type Service struct {
	tokens  TokenResolver
	fetcher MessageFetcher
	logger  *slog.Logger
}

func NewService(tokens TokenResolver, fetcher MessageFetcher, logger *slog.Logger) (*Service, error) {
	if tokens == nil || fetcher == nil {
		return nil, errors.New("inbox: token resolver and fetcher are required")
	}
	return &Service{tokens: tokens, fetcher: fetcher, logger: logging.OrDefault(logger)}, nil
}

// List returns one page sorted newest first with the filter applied. The
// filter works on the fetched page only; NextPageToken still refers to the
// unfiltered listing.
func (s *Service) List(ctx context.Context, req ListRequest) (*gmail.Page, error) {
	tok, err := s.tokens.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	page, err := s.fetcher.List(ctx, tok, int64(req.PageSize), req.PageToken)
	if err != nil {
		return nil, err
	}

	msgs := req.Filter.Apply(page.Messages)
	gmail.SortByRecency(msgs)
	page.Messages = msgs

	s.logger.Debug("listed inbox page",
		logging.Operation("inbox.list"),
		logging.Count(len(msgs)),
		slog.Int("dropped", len(page.Dropped)))
	return page, nil
}

// Message returns the renderable content of one message.
func (s *Service) Message(ctx context.Context, id string) (*gmail.MessageContent, error) {
	tok, err := s.tokens.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	content, err := s.fetcher.Content(ctx, tok, id)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", id, err)
	}
	return content, nil
}
