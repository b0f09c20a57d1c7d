package repository

import (
	"context"

	"vibeapi/internal/domain/entity"
)

// LLMGenerator runs one chat completion for a prompt.
type LLMGenerator interface {
	// Generate returns the completion text. An empty string with a nil error
	// means the upstream call succeeded but produced no content.
	Generate(ctx context.Context, prompt entity.Prompt) (string, error)
	Model() string
}
