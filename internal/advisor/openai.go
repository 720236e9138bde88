package advisor

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/quixlabs/loginforge/internal/config"
)

// chatClient captures the subset of the go-openai client used here, so tests
// can substitute a fake.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// openAICompleter implements Completer via the OpenAI Chat Completions API
// with the JSON-object response format enforced.
type openAICompleter struct {
	client  chatClient
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// newOpenAICompleter builds the OpenAI-backed completer.
func newOpenAICompleter(cfg config.AdvisorConfig, logger *zap.Logger) (*openAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required (set LOGINFORGE_ADVISOR_API_KEY or OPENAI_API_KEY)")
	}
	return &openAICompleter{
		client:  openai.NewClient(cfg.APIKey),
		model:   cfg.Model,
		timeout: cfg.RequestTimeout,
		logger:  logger.Named("openai_completer"),
	}, nil
}

func (c *openAICompleter) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return CompletionResult{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResult{TokensUsed: resp.Usage.TotalTokens},
			fmt.Errorf("chat completion returned no choices")
	}

	return CompletionResult{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
