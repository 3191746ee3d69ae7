package inbox_tools

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/auth"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/inbox"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/rewrite"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/store"
	"github.com/teemow/inboxassist/internal/tools/batch"
	"github.com/teemow/inboxassist/internal/tools/common"
)

type fakeFetcher struct {
	mu          sync.Mutex
	page        *gmail.Page
	listErr     error
	contents    map[string]*gmail.MessageContent
	contentErr  map[string]error
	gotPageSize int64
}

func (f *fakeFetcher) List(_ context.Context, _ *oauth2.Token, pageSize int64, _ string) (*gmail.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotPageSize = pageSize
	if f.listErr != nil {
		return nil, f.listErr
	}
	p := *f.page
	return &p, nil
}

func (f *fakeFetcher) Content(_ context.Context, _ *oauth2.Token, id string) (*gmail.MessageContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.contentErr[id]; err != nil {
		return nil, err
	}
	return f.contents[id], nil
}

func newServerContext(t *testing.T, f *fakeFetcher, connected bool) *server.ServerContext {
	t.Helper()
	st := store.NewMemoryStore()
	if connected {
		require.NoError(t, st.UpsertToken(context.Background(), "u1", auth.ProviderGmail, &oauth2.Token{AccessToken: "tok"}))
	}
	resolver, err := auth.NewResolver(auth.Config{
		Session: auth.StaticSession{ID: "u1"},
		Tokens:  st,
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	svc, err := inbox.NewService(resolver, f, logging.Discard())
	require.NoError(t, err)
	sc, err := server.NewServerContext(context.Background(), server.Options{
		Inbox:    svc,
		Rewriter: rewrite.MockRewriter{},
		Resolver: resolver,
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, r)
	require.NotEmpty(t, r.Content)
	switch c := r.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", r.Content[0])
	return ""
}

func TestRegisterInboxTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterInboxTools(s, newServerContext(t, &fakeFetcher{page: &gmail.Page{}}, true)))

	tools := s.ListTools()
	for _, name := range []string{"inbox_list_messages", "inbox_get_message_content", "inbox_gmail_status"} {
		assert.Contains(t, tools, name)
	}
}

func TestHandleListMessages(t *testing.T) {
	f := &fakeFetcher{page: &gmail.Page{
		Messages: []gmail.DisplayMessage{
			{ID: "a", Subject: "Newsletter", Timestamp: 1, AIScore: 0.1},
			{ID: "b", Subject: "Server down", Timestamp: 2, AIScore: 0.95},
		},
		NextPageToken: "p2",
		Dropped:       []gmail.DroppedMessage{{ID: "c", Reason: "detail fetch failed"}},
	}}
	sc := newServerContext(t, f, true)

	result, err := handleListMessages(context.Background(), callRequest(map[string]any{
		"pageSize": float64(10),
		"filter":   "important",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.Equal(t, int64(10), f.gotPageSize)

	var page gmail.Page
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "b", page.Messages[0].ID)
	assert.Equal(t, "p2", page.NextPageToken)
	assert.Len(t, page.Dropped, 1)
}

func TestHandleListMessages_Errors(t *testing.T) {
	t.Run("expired token asks to reconnect", func(t *testing.T) {
		sc := newServerContext(t, &fakeFetcher{listErr: gmail.ErrTokenExpired}, true)
		result, err := handleListMessages(context.Background(), callRequest(nil), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, common.MsgReconnect, resultText(t, result))
	})

	t.Run("provider error asks to retry", func(t *testing.T) {
		sc := newServerContext(t, &fakeFetcher{listErr: &gmail.ProviderError{Status: 500}}, true)
		result, err := handleListMessages(context.Background(), callRequest(nil), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), common.MsgRetry)
	})

	t.Run("bad filter", func(t *testing.T) {
		sc := newServerContext(t, &fakeFetcher{page: &gmail.Page{}}, true)
		result, err := handleListMessages(context.Background(), callRequest(map[string]any{"filter": "spam"}), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleGetMessageContent(t *testing.T) {
	f := &fakeFetcher{
		page: &gmail.Page{},
		contents: map[string]*gmail.MessageContent{
			"m1": {ID: "m1", HTML: "<p>hi</p>"},
			"m2": {ID: "m2", Snippet: "fallback"},
		},
		contentErr: map[string]error{"m3": &gmail.ProviderError{Status: 404}},
	}
	sc := newServerContext(t, f, true)

	t.Run("single id", func(t *testing.T) {
		result, err := handleGetMessageContent(context.Background(), callRequest(map[string]any{"messageIds": "m1"}), sc)
		require.NoError(t, err)
		assert.Equal(t, "<p>hi</p>", resultText(t, result))
	})

	t.Run("batch with a failure", func(t *testing.T) {
		result, err := handleGetMessageContent(context.Background(), callRequest(map[string]any{
			"messageIds": []any{"m1", "m2", "m3"},
		}), sc)
		require.NoError(t, err)
		require.False(t, result.IsError)

		var br batch.BatchResult
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &br))
		assert.Equal(t, 3, br.Total)
		assert.Equal(t, 2, br.Successful)
		assert.Equal(t, "fallback", br.Results[1].Result)
		assert.Equal(t, batch.StatusError, br.Results[2].Status)
	})

	t.Run("missing ids", func(t *testing.T) {
		result, err := handleGetMessageContent(context.Background(), callRequest(nil), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleGmailStatus(t *testing.T) {
	connected := newServerContext(t, &fakeFetcher{page: &gmail.Page{}}, true)
	result, err := handleGmailStatus(context.Background(), connected)
	require.NoError(t, err)
	assert.Equal(t, "Gmail is connected.", resultText(t, result))

	disconnected := newServerContext(t, &fakeFetcher{page: &gmail.Page{}}, false)
	result, err = handleGmailStatus(context.Background(), disconnected)
	require.NoError(t, err)
	assert.Equal(t, common.MsgNotConnected, resultText(t, result))
}
