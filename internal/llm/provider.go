// ABOUTME: Provider selection for embedding and title backends
// ABOUTME: lmstudio uses chat completions, openai uses the Responses API for titles
package llm

import (
	"context"
	"fmt"
)

// Provider names accepted by NewBackends
const (
	ProviderLMStudio = "lmstudio"
	ProviderOpenAI   = "openai"
)

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Backends bundles the capabilities one provider offers
type Backends struct {
	Embeddings *OpenAIClient
	Titles     Generator
}

// NewBackends builds the embedding client and title generator for provider.
// Embeddings always go through the OpenAI-compatible client.
func NewBackends(provider string, config *ClientConfig) (*Backends, error) {
	embeddings, err := NewOpenAIClientWithConfig(config)
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}

	switch provider {
	case "", ProviderLMStudio:
		return &Backends{Embeddings: embeddings, Titles: embeddings}, nil
	case ProviderOpenAI:
		titles, err := NewResponsesClient(config)
		if err != nil {
			return nil, fmt.Errorf("responses client: %w", err)
		}
		return &Backends{Embeddings: embeddings, Titles: titles}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want %s or %s)", provider, ProviderLMStudio, ProviderOpenAI)
	}
}
