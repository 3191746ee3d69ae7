package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
)

const (
	DefaultBaseURL     = "https://api.deepseek.com/v1"
	DefaultModel       = "deepseek-chat"
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.7
	DefaultTimeout     = 60 * time.Second
)

// ChatConfig configures a ChatRewriter against an OpenAI-compatible API.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
}

// ChatRewriter sends rewrite prompts to a chat-completions endpoint behind a
// circuit breaker.
type ChatRewriter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	cb          *gobreaker.CircuitBreaker
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

func NewChatRewriter(cfg ChatConfig) (*ChatRewriter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("rewrite: api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := logging.OrDefault(cfg.Logger)

	cbSettings := gobreaker.Settings{
		Name:        "rewrite-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about the provider's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &ChatRewriter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
		timeout:     timeout,
		cb:          gobreaker.NewCircuitBreaker(cbSettings),
		logger:      logger,
		metrics:     cfg.Metrics,
	}, nil
}

func (c *ChatRewriter) Polish(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return c.complete(ctx, "polish", polishPrompt(text))
}

func (c *ChatRewriter) ChangeTone(ctx context.Context, text string, tone Tone) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	prompt, err := tonePrompt(text, tone)
	if err != nil {
		return "", err
	}
	return c.complete(ctx, "change_tone", prompt)
}

func (c *ChatRewriter) complete(ctx context.Context, op, prompt string) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("no choices in response")
		}
		result := strings.TrimSpace(resp.Choices[0].Message.Content)
		if result == "" {
			return nil, errors.New("empty response")
		}
		return result, nil
	})

	status := instrumentation.StatusOf(err)
	c.metrics.RecordRewrite(ctx, op, status, time.Since(start))
	if err != nil {
		c.logger.Error("rewrite request failed", logging.Operation("rewrite."+op), logging.Err(err))
		return "", fmt.Errorf("%w: %w", ErrRewriteFailed, err)
	}
	return out.(string), nil
}
