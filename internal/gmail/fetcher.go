package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
)

const (
	// DefaultPageSize matches the Gmail web client's page.
	DefaultPageSize = 25
	// MaxPageSize is the largest maxResults Gmail accepts.
	MaxPageSize = 500

	DefaultMaxConcurrency = 8
	DefaultDetailTimeout  = 15 * time.Second
)

// Invalidator forgets the cached Gmail token of the current identity.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Page is one listing page. NextPageToken is empty on the last page and must
// be passed back unmodified to continue.
type Page struct {
	Messages      []DisplayMessage `json:"messages"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
	Dropped       []DroppedMessage `json:"dropped,omitempty"`
}

// FetcherConfig configures a Fetcher. Only Connect is required.
type FetcherConfig struct {
	Connect     ConnectFunc
	Invalidator Invalidator
	Scorer      Scorer

	// MaxConcurrency caps in-flight detail fetches per page (default 8).
	MaxConcurrency int
	// DetailTimeout bounds each detail fetch (default 15s).
	DetailTimeout time.Duration
	// MaxPartDepth is passed to BodyExtractor.
	MaxPartDepth int

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Now     func() time.Time
}

// Fetcher lists mailbox pages and fetches message details concurrently.
type Fetcher struct {
	connect        ConnectFunc
	invalidator    Invalidator
	scorer         Scorer
	extractor      BodyExtractor
	maxConcurrency int
	detailTimeout  time.Duration
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
	now            func() time.Time
}

// NewFetcher creates a Fetcher, filling defaults for unset fields.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Connect == nil {
		return nil, errors.New("gmail: connect function is required")
	}
	f := &Fetcher{
		connect:        cfg.Connect,
		invalidator:    cfg.Invalidator,
		scorer:         cfg.Scorer,
		extractor:      BodyExtractor{MaxDepth: cfg.MaxPartDepth},
		maxConcurrency: cfg.MaxConcurrency,
		detailTimeout:  cfg.DetailTimeout,
		logger:         logging.OrDefault(cfg.Logger),
		metrics:        cfg.Metrics,
		now:            cfg.Now,
	}
	if f.scorer == nil {
		f.scorer = LabelScorer{}
	}
	if f.maxConcurrency <= 0 {
		f.maxConcurrency = DefaultMaxConcurrency
	}
	if f.detailTimeout <= 0 {
		f.detailTimeout = DefaultDetailTimeout
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f, nil
}

// List fetches one page of messages. A 401 invalidates the cached token and
// returns ErrTokenExpired; any other listing failure is a *ProviderError.
// Messages whose detail cannot be fetched are reported in Page.Dropped and
// never fail the page. Messages keep the listing order.
func (f *Fetcher) List(ctx context.Context, tok *oauth2.Token, pageSize int64, pageToken string) (*Page, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationList,
		attribute.Int64(instrumentation.SpanAttrPageSize, pageSize))
	defer span.End()

	src, err := f.connect(ctx, tok)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to connect to Gmail: %w", err)
	}

	start := time.Now()
	res, err := src.ListMessages(ctx, pageSize, pageToken)
	f.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationList,
		instrumentation.StatusOf(err), time.Since(start))
	if err != nil {
		err = f.classify(ctx, err)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	page := &Page{Messages: []DisplayMessage{}, NextPageToken: res.NextPageToken}
	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		if m != nil && m.Id != "" {
			ids = append(ids, m.Id)
		}
	}
	if len(ids) == 0 {
		instrumentation.SetSpanSuccess(span)
		return page, nil
	}

	page.Messages, page.Dropped = f.fetchDetails(ctx, src, ids)
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrDropped, len(page.Dropped)))

	if len(page.Dropped) > 0 {
		dropped := make([]string, len(page.Dropped))
		for i, d := range page.Dropped {
			dropped[i] = d.ID
		}
		f.logger.Warn("dropped messages from page",
			logging.Operation("gmail.list"),
			logging.Count(len(dropped)),
			slog.Any("message_ids", dropped))
		f.metrics.RecordDroppedMessages(ctx, len(dropped))
	}

	instrumentation.SetSpanSuccess(span)
	return page, nil
}

// fetchDetails fetches ids with at most maxConcurrency requests in flight.
// Each goroutine writes only its own slot.
func (f *Fetcher) fetchDetails(ctx context.Context, src MessageSource, ids []string) ([]DisplayMessage, []DroppedMessage) {
	built := make([]*DisplayMessage, len(ids))
	failures := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(f.maxConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			m, err := f.getMessage(ctx, src, id)
			if err != nil {
				failures[i] = err
				return nil
			}
			dm := BuildDisplayMessage(m, f.scorer, f.now())
			if dm.ID == "" {
				dm.ID = id
			}
			built[i] = &dm
			return nil
		})
	}
	_ = g.Wait()

	messages := make([]DisplayMessage, 0, len(ids))
	var dropped []DroppedMessage
	for i, id := range ids {
		if built[i] != nil {
			messages = append(messages, *built[i])
			continue
		}
		f.logger.Debug("message detail failed",
			logging.Operation("gmail.get"),
			logging.MessageID(id),
			logging.Err(failures[i]))
		dropped = append(dropped, DroppedMessage{ID: id, Reason: failures[i].Error()})
	}
	return messages, dropped
}

func (f *Fetcher) getMessage(ctx context.Context, src MessageSource, id string) (*gmail.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, f.detailTimeout)
	defer cancel()

	start := time.Now()
	m, err := src.GetMessage(ctx, id)
	if err == nil && (m == nil || m.Payload == nil) {
		err = fmt.Errorf("message %s has no payload", id)
	}
	f.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet,
		instrumentation.StatusOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MessageContent is the lazily extracted body of one message.
type MessageContent struct {
	ID      string `json:"id"`
	HTML    string `json:"html"`
	Snippet string `json:"snippet"`
}

// Renderable returns the HTML body, or the escaped snippet when no body
// could be extracted.
func (c MessageContent) Renderable() string {
	if c.HTML != "" {
		return c.HTML
	}
	return htmlEscaper.Replace(c.Snippet)
}

// Content fetches a single message and extracts its renderable body.
// Errors are classified like List.
func (f *Fetcher) Content(ctx context.Context, tok *oauth2.Token, id string) (*MessageContent, error) {
	if id == "" {
		return nil, errors.New("message id is required")
	}
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationGet,
		attribute.String(instrumentation.SpanAttrResourceID, id))
	defer span.End()

	src, err := f.connect(ctx, tok)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to connect to Gmail: %w", err)
	}
	m, err := f.getMessage(ctx, src, id)
	if err != nil {
		err = f.classify(ctx, err)
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	instrumentation.SetSpanSuccess(span)
	return &MessageContent{
		ID:      id,
		HTML:    f.extractor.Extract(m.Payload),
		Snippet: m.Snippet,
	}, nil
}

// classify maps a Gmail API error onto ErrTokenExpired or *ProviderError.
func (f *Fetcher) classify(ctx context.Context, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gmail request failed: %w", err)
	}
	if apiErr.Code == http.StatusUnauthorized {
		if f.invalidator != nil {
			if invErr := f.invalidator.Invalidate(ctx); invErr != nil {
				f.logger.Warn("failed to invalidate cached token",
					logging.Operation("gmail.invalidate"),
					logging.Err(invErr))
			}
		}
		return ErrTokenExpired
	}
	return &ProviderError{Status: apiErr.Code, Body: apiErr.Body}
}
