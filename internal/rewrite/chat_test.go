package rewrite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, status int, content string, got *chatRequest, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "deepseek-chat",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRewriter(t *testing.T, baseURL string) *ChatRewriter {
	t.Helper()
	r, err := NewChatRewriter(ChatConfig{APIKey: "test-key", BaseURL: baseURL + "/v1"})
	require.NoError(t, err)
	return r
}

func TestChatRewriter_Polish(t *testing.T) {
	var req chatRequest
	srv := newChatServer(t, http.StatusOK, "  Hello, world.  \n", &req, nil)
	r := newTestRewriter(t, srv.URL)

	out, err := r.Polish(context.Background(), "helo world")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world.", out)

	assert.Equal(t, DefaultModel, req.Model)
	assert.InDelta(t, DefaultTemperature, req.Temperature, 0.001)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.True(t, strings.HasSuffix(req.Messages[0].Content, "Текст для исправления:\nhelo world"))
}

func TestChatRewriter_ChangeTone(t *testing.T) {
	tests := []struct {
		tone   Tone
		marker string
	}{
		{tone: ToneProfessional, marker: "официально-деловом"},
		{tone: ToneFriendly, marker: "дружелюбном"},
	}

	for _, tt := range tests {
		t.Run(string(tt.tone), func(t *testing.T) {
			var req chatRequest
			srv := newChatServer(t, http.StatusOK, "rewritten", &req, nil)
			r := newTestRewriter(t, srv.URL)

			out, err := r.ChangeTone(context.Background(), "hey", tt.tone)
			require.NoError(t, err)
			assert.Equal(t, "rewritten", out)
			assert.Contains(t, req.Messages[0].Content, tt.marker)
			assert.True(t, strings.HasSuffix(req.Messages[0].Content, "Текст:\nhey"))
		})
	}
}

func TestChatRewriter_Errors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		srv := newChatServer(t, http.StatusInternalServerError, "", nil, nil)
		_, err := newTestRewriter(t, srv.URL).Polish(context.Background(), "text")
		assert.ErrorIs(t, err, ErrRewriteFailed)
	})

	t.Run("empty content", func(t *testing.T) {
		srv := newChatServer(t, http.StatusOK, "   ", nil, nil)
		_, err := newTestRewriter(t, srv.URL).Polish(context.Background(), "text")
		assert.ErrorIs(t, err, ErrRewriteFailed)
	})

	t.Run("empty text never calls provider", func(t *testing.T) {
		var hits int32
		srv := newChatServer(t, http.StatusOK, "x", nil, &hits)
		_, err := newTestRewriter(t, srv.URL).Polish(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Zero(t, atomic.LoadInt32(&hits))
	})

	t.Run("unknown tone", func(t *testing.T) {
		srv := newChatServer(t, http.StatusOK, "x", nil, nil)
		_, err := newTestRewriter(t, srv.URL).ChangeTone(context.Background(), "hi", Tone("angry"))
		assert.ErrorIs(t, err, ErrUnknownTone)
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := NewChatRewriter(ChatConfig{})
		assert.Error(t, err)
	})
}

func TestChatRewriter_CircuitBreakerOpens(t *testing.T) {
	var hits int32
	srv := newChatServer(t, http.StatusServiceUnavailable, "", nil, &hits)
	r := newTestRewriter(t, srv.URL)

	for i := 0; i < 5; i++ {
		_, err := r.Polish(context.Background(), "text")
		require.ErrorIs(t, err, ErrRewriteFailed)
	}
	require.EqualValues(t, 5, atomic.LoadInt32(&hits))

	_, err := r.Polish(context.Background(), "text")
	assert.ErrorIs(t, err, ErrRewriteFailed)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.EqualValues(t, 5, atomic.LoadInt32(&hits), "open breaker must not reach the provider")
}

func TestMockRewriter(t *testing.T) {
	m := MockRewriter{}
	ctx := context.Background()

	out, err := m.Polish(ctx, " draft ")
	require.NoError(t, err)
	assert.Equal(t, "draft (исправлено грамматикой).", out)

	out, err = m.ChangeTone(ctx, "draft", ToneProfessional)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Уважаемый адресат"))
	assert.Contains(t, out, "draft")

	out, err = m.ChangeTone(ctx, "draft", ToneFriendly)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Привет!"))

	_, err = m.ChangeTone(ctx, "draft", Tone("sarcastic"))
	assert.ErrorIs(t, err, ErrUnknownTone)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = MockRewriter{Delay: 1e9}.Polish(cancelled, "draft")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseTone(t *testing.T) {
	tone, err := ParseTone(" Friendly ")
	require.NoError(t, err)
	assert.Equal(t, ToneFriendly, tone)

	_, err = ParseTone("casual")
	assert.ErrorIs(t, err, ErrUnknownTone)
}
