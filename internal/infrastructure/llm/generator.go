package llm

import (
	"context"
	"fmt"
	"log/slog"

	"vibeapi/app/config"
	"vibeapi/internal/domain/repository"
)

const (
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
)

// New builds the generation client selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (repository.LLMGenerator, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is required for provider %q", ProviderOpenAI)
		}
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout, logger), nil
	case ProviderGenAI:
		return NewGenAIGenerator(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
