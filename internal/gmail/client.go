package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// userMe addresses the mailbox of the authenticated user.
const userMe = "me"

// MessageSource is the part of the Gmail API the Fetcher depends on.
type MessageSource interface {
	ListMessages(ctx context.Context, pageSize int64, pageToken string) (*gmail.ListMessagesResponse, error)
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
}

// ConnectFunc opens a MessageSource authorised by a bearer token.
type ConnectFunc func(ctx context.Context, tok *oauth2.Token) (MessageSource, error)

// Client wraps the Gmail Users service for one bearer token.
type Client struct {
	svc      *gmail.UsersService
	http     *http.Client
	basePath string
}

// Dialer builds Clients. The zero value talks to the public Gmail API with
// http.DefaultClient as the base transport.
type Dialer struct {
	// Endpoint overrides the API base URL, e.g. "http://127.0.0.1:8080/".
	Endpoint string

	// HTTPClient is the transport the bearer token is layered on.
	HTTPClient *http.Client
}

// Dial returns a Client that sends tok as "Authorization: Bearer <token>".
// The token is used as is; it is never refreshed.
func (d Dialer) Dial(ctx context.Context, tok *oauth2.Token) (*Client, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if d.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, d.HTTPClient)
	}
	// Only the access token is handed to the transport so an expired token
	// surfaces as a 401 instead of a silent refresh.
	static := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok.AccessToken, TokenType: "Bearer"})
	hc := oauth2.NewClient(ctx, static)
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if d.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(d.Endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users, http: hc, basePath: svc.BasePath}, nil
}

// Connect adapts Dial to a ConnectFunc.
func (d Dialer) Connect(ctx context.Context, tok *oauth2.Token) (MessageSource, error) {
	return d.Dial(ctx, tok)
}

// ListMessages returns one page of message ids from the mailbox.
func (c *Client) ListMessages(ctx context.Context, pageSize int64, pageToken string) (*gmail.ListMessagesResponse, error) {
	req := c.svc.Messages.List(userMe).MaxResults(pageSize)
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}
	return req.Context(ctx).Do()
}

// GetMessage retrieves a full Gmail message, including its MIME payload.
// Unlike the generated call it tolerates a malformed internalDate, which
// is reported as MalformedInternalDate instead of failing the decode.
func (c *Client) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	u := googleapi.ResolveRelative(c.basePath, "gmail/v1/users/"+userMe+"/messages/"+url.PathEscape(id))
	u += "?" + url.Values{"alt": {"json"}, "format": {"full"}, "prettyPrint": {"false"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer googleapi.CloseBody(res)
	if err := googleapi.CheckResponse(res); err != nil {
		return nil, err
	}
	return decodeMessage(res.Body)
}

// MalformedInternalDate marks a message whose internalDate was present but
// not an integer.
const MalformedInternalDate int64 = -1

// wireMessage shadows the generated ",string" internalDate field so one bad
// value does not fail the whole message.
type wireMessage struct {
	*gmail.Message
	InternalDate json.RawMessage `json:"internalDate,omitempty"`
}

func decodeMessage(r io.Reader) (*gmail.Message, error) {
	w := wireMessage{Message: &gmail.Message{}}
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	w.Message.InternalDate = parseInternalDate(w.InternalDate)
	return w.Message, nil
}

// parseInternalDate accepts the quoted form Gmail sends and a bare number.
// Absent or null yields 0.
func parseInternalDate(raw json.RawMessage) int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	text := string(raw)
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	if text == "" {
		return 0
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil || v < 0 {
		return MalformedInternalDate
	}
	return v
}

// Profile returns the mailbox address and counters for the token's owner.
func (c *Client) Profile(ctx context.Context) (*gmail.Profile, error) {
	return c.svc.GetProfile(userMe).Context(ctx).Do()
}
