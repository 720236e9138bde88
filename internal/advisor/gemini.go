package advisor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/quixlabs/loginforge/internal/config"
)

// geminiCompleter implements Completer via the Gemini API with JSON output
// enforced through the response MIME type.
type geminiCompleter struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// newGeminiCompleter builds the Gemini-backed completer.
func newGeminiCompleter(ctx context.Context, cfg config.AdvisorConfig, logger *zap.Logger) (*geminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required (set LOGINFORGE_ADVISOR_API_KEY or GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiCompleter{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.RequestTimeout,
		logger:  logger.Named("gemini_completer"),
	}, nil
}

func (c *geminiCompleter) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.UserPrompt),
		&genai.GenerateContentConfig{
			Temperature:       genai.Ptr(req.Temperature),
			ResponseMIMEType:  "application/json",
			SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		},
	)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("content generation failed: %w", err)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	text := resp.Text()
	if text == "" {
		return CompletionResult{TokensUsed: tokens}, fmt.Errorf("content generation returned no text")
	}

	return CompletionResult{Text: text, TokensUsed: tokens}, nil
}
