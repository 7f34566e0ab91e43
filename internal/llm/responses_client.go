// ABOUTME: Title capability backed by the OpenAI Responses API
// ABOUTME: Requests structured JSON output so the reply is exactly one title
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// DefaultResponsesModel is used when no chat model is configured
const DefaultResponsesModel = "gpt-4o-mini"

// chapterTitle is the structured reply the model must produce
type chapterTitle struct {
	Title string `json:"title" jsonschema:"required,description=A 3-6 word chapter title without trailing punctuation"`
}

// ResponsesClient generates titles through client.Responses
type ResponsesClient struct {
	client       openai.Client
	model        string
	instructions string
	maxTokens    int64
	schema       map[string]any
}

// NewResponsesClient creates a Responses API client from config
func NewResponsesClient(config *ClientConfig) (*ResponsesClient, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	schema, err := generateSchema[chapterTitle]()
	if err != nil {
		return nil, fmt.Errorf("build title schema: %w", err)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(max(config.MaxRetries, 0)),
	}
	if config.BaseURL != "" && config.BaseURL != DefaultBaseURL {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(config.BaseURL, "/")+"/"))
	}

	model := config.ChatModel
	if model == "" || model == DefaultChatModel {
		model = DefaultResponsesModel
	}
	maxTokens := int64(config.MaxTokens)
	if maxTokens < 16 {
		maxTokens = 16
	}

	return &ResponsesClient{
		client:       openai.NewClient(opts...),
		model:        model,
		instructions: config.SystemPrompt,
		maxTokens:    maxTokens,
		schema:       schema,
	}, nil
}

// Generate asks for a structured title and returns the title text
func (c *ResponsesClient) Generate(ctx context.Context, prompt string) (string, error) {
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "ChapterTitle",
			Schema:      c.schema,
			Strict:      openai.Bool(true),
			Description: openai.String("Chapter title JSON"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxTokens),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}
	if c.instructions != "" {
		params.Instructions = openai.String(c.instructions)
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", classify(fmt.Errorf("create response: %w", err))
	}

	var out chapterTitle
	if err := decodeModelJSON(resp.OutputText(), &out); err != nil {
		return "", fmt.Errorf("decode title: %w", err)
	}
	return strings.TrimSpace(out.Title), nil
}

// decodeModelJSON unmarshals the first JSON object in a model reply
func decodeModelJSON(outputText string, v any) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return fmt.Errorf("empty model output")
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON (len=%d): %w", end-start+1, err)
	}
	return nil
}
