package advisor

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChatClient struct {
	resp    openai.ChatCompletionResponse
	err     error
	lastReq openai.ChatCompletionRequest
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func TestOpenAICompleter(t *testing.T) {
	t.Run("enforces json mode and low temperature", func(t *testing.T) {
		fake := &fakeChatClient{resp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: `{"selector": "#x"}`}},
			},
			Usage: openai.Usage{TotalTokens: 42},
		}}
		c := &openAICompleter{client: fake, model: "gpt-4o-mini", logger: zap.NewNop()}

		result, err := c.Complete(context.Background(), CompletionRequest{
			SystemPrompt: "system",
			UserPrompt:   "user",
			Temperature:  0.1,
		})
		require.NoError(t, err)
		assert.Equal(t, `{"selector": "#x"}`, result.Text)
		assert.Equal(t, 42, result.TokensUsed)

		require.NotNil(t, fake.lastReq.ResponseFormat)
		assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, fake.lastReq.ResponseFormat.Type)
		assert.InDelta(t, 0.1, fake.lastReq.Temperature, 0.001)
		require.Len(t, fake.lastReq.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, fake.lastReq.Messages[0].Role)
	})

	t.Run("empty choice list is an error but keeps token usage", func(t *testing.T) {
		fake := &fakeChatClient{resp: openai.ChatCompletionResponse{
			Usage: openai.Usage{TotalTokens: 7},
		}}
		c := &openAICompleter{client: fake, model: "gpt-4o-mini", logger: zap.NewNop()}

		result, err := c.Complete(context.Background(), CompletionRequest{UserPrompt: "user"})
		require.Error(t, err)
		assert.Equal(t, 7, result.TokensUsed)
	})
}
