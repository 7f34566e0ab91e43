// ABOUTME: OpenAI-compatible client for embeddings and chat-based titles
// ABOUTME: Points at LM Studio by default; any /v1 compatible endpoint works
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harper/chapterize/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is the local LM Studio server
	DefaultBaseURL = "http://127.0.0.1:1234/v1"
	// DefaultChatModel is the default model for title generation
	DefaultChatModel = "qwen/qwen3-4b-2507"
	// DefaultEmbeddingModel is the default model for paragraph embeddings
	DefaultEmbeddingModel = "Qwen/Qwen3-Embedding-0.6B-GGUF/Qwen3-Embedding-0.6B-Q8_0.gguf"
	// OpenAIBaseURL is the hosted OpenAI API used by the openai provider
	OpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultOpenAIEmbeddingModel replaces the local GGUF model for the openai provider
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	// DefaultSystemPrompt frames every title request
	DefaultSystemPrompt = "Return a short, descriptive section title. No emojis."
	// localAPIKey is sent when the endpoint does not check keys
	localAPIKey = "lm-studio"
)

// ClientConfig holds configuration for the OpenAI-compatible client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	SystemPrompt   string
	MaxTokens      int
	Temperature    float32
	MaxRetries     int
	RetryDelay     time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:         apiKey,
		BaseURL:        DefaultBaseURL,
		ChatModel:      DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		SystemPrompt:   DefaultSystemPrompt,
		MaxTokens:      64,
		Temperature:    0.2,
		MaxRetries:     2,
		RetryDelay:     time.Second,
	}
}

// OpenAIClient wraps the go-openai client
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	systemPrompt   string
	maxTokens      int
	temperature    float32
	maxRetries     int
	retryDelay     time.Duration
}

// NewOpenAIClientWithConfig creates a client with custom configuration.
// An API key is only required when talking to api.openai.com.
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config == nil {
		return nil, fmt.Errorf("client config is required")
	}
	apiKey := config.APIKey
	if apiKey == "" {
		if config.BaseURL == "" || strings.Contains(config.BaseURL, "api.openai.com") {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		apiKey = localAPIKey
	}

	oc := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oc),
		chatModel:      config.ChatModel,
		embeddingModel: openai.EmbeddingModel(config.EmbeddingModel),
		systemPrompt:   config.SystemPrompt,
		maxTokens:      config.MaxTokens,
		temperature:    config.Temperature,
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
	}, nil
}

// EmbeddingModel returns the model name, used to key caches
func (c *OpenAIClient) EmbeddingModel() string {
	return string(c.embeddingModel)
}

// EmbedTexts embeds texts in one request. Retries are left to the caller;
// rate limits, 5xx responses and timeouts come back marked transient.
func (c *OpenAIClient) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("create embeddings: %w", err))
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float64, len(texts))
	for pos, d := range resp.Data {
		idx := d.Index
		// Some servers leave index at zero for every item
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = pos
		}
		// Convert []float32 to []float64
		vec := make([]float64, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float64(v)
		}
		out[idx] = vec
	}
	return out, nil
}

// Generate sends prompt as a chat completion and returns the reply text
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if c.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, util.CalculateBackoff(c.retryDelay, attempt)); err != nil {
				return "", fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    messages,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
		})
		if err != nil {
			lastErr = classify(fmt.Errorf("attempt %d: %w", attempt+1, err))
			if ctx.Err() != nil || !util.IsTransient(lastErr) {
				return "", lastErr
			}
			continue
		}

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no response from model")
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("failed to generate after %d attempts: %w", c.maxRetries+1, lastErr)
}
