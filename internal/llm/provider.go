package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deedscope/deedscope/internal/model"
)

// Provider defines the interface for structured-generation backends.
// A provider receives a prompt plus a JSON schema description and must
// answer with a single JSON object conforming to it.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate performs one structured completion
	Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest is the input for one structured generation call
type GenerateRequest struct {
	// System frames the extraction task
	System string

	// Prompt is the document context plus extraction instructions
	Prompt string

	// Schema is the JSON schema the response must conform to, as text.
	// It is embedded in the prompt; the response format is forced to JSON.
	Schema string

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// NewProvider builds the configured provider. An empty provider name is an
// explicit "disabled" and yields nil without error.
func NewProvider(cfg model.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
