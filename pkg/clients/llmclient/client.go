package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/waterwatch/lifedrop/pkg/utils/metrics"
)

// ErrEmptyCompletion is returned when the model answers with no usable text
var ErrEmptyCompletion = errors.New("openai returned empty response or choices")

// Completion is a single-turn chat request
type Completion struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Client wraps the OpenAI chat completions API
type Client struct {
	api          *openai.Client
	defaultModel string
}

// NewClient creates a client for the public OpenAI API.
// baseURL may be empty to use the default endpoint.
func NewClient(apiKey, baseURL, defaultModel string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if defaultModel == "" {
		defaultModel = openai.GPT3Dot5Turbo
	}
	return &Client{
		api:          openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
	}
}

// Complete sends the prompt and returns the first choice's trimmed text
func (c *Client) Complete(ctx context.Context, req Completion) (text string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCollaborator("openai", start, err) }()

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	// An empty system prompt sends the user turn alone
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	resp, err := c.api.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			N:           1,
			Temperature: req.Temperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text = strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	return text, nil
}
