// File: internal/advisor/factory.go
package advisor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quixlabs/loginforge/internal/config"
)

// NewCompleter instantiates the completion client for the configured provider.
func NewCompleter(ctx context.Context, cfg config.AdvisorConfig, logger *zap.Logger) (Completer, error) {
	var (
		completer Completer
		err       error
	)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		completer, err = newOpenAICompleter(cfg, logger)
	case config.ProviderGemini:
		completer, err = newGeminiCompleter(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown advisor provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s completer: %w", cfg.Provider, err)
	}

	logger.Info("Advisor completer instantiated.",
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", cfg.Model),
	)
	return completer, nil
}
