package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"vibeapi/internal/domain/entity"
	"vibeapi/internal/domain/repository"
	"vibeapi/internal/infrastructure/metrics"
)

// GenAIGenerator calls Gemini through the native Google GenAI SDK.
type GenAIGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGenAIGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (repository.LLMGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	g, err := newGenAIGenerator(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model, timeout)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func newGenAIGenerator(ctx context.Context, cc *genai.ClientConfig, model string, timeout time.Duration) (*GenAIGenerator, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

func (g *GenAIGenerator) Model() string {
	return g.model
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt entity.Prompt) (string, error) {
	metrics.IncLLMRequest(g.model)
	start := time.Now()
	defer func() { metrics.ObserveLLMDuration(g.model, time.Since(start)) }()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(prompt.User),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		},
	)
	if err != nil {
		metrics.IncError("llm", "genai_generate")
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	// No candidates or a blocked prompt yields "", reported as an empty result.
	return result.Text(), nil
}
