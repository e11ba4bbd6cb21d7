package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/pep299/research-blog-pipeline/internal/llm"
)

var _ llm.Model = (*SDKClient)(nil)

// SDKClient implements llm.Model on top of the official genai SDK.
type SDKClient struct {
	client *genai.Client
	model  string
}

// NewSDKClient creates a genai-backed client. baseURL may be empty.
func NewSDKClient(ctx context.Context, apiKey, model, baseURL string) (*SDKClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &SDKClient{client: client, model: model}, nil
}

// Name returns the model identifier.
func (c *SDKClient) Name() string {
	return c.model
}

// Generate runs GenerateContent with the system prompt as system instruction.
func (c *SDKClient) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.3),
		TopP:            genai.Ptr[float32](0.8),
		MaxOutputTokens: 8000,
	}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt.User), config)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}
