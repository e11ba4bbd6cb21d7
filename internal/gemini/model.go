package gemini

import (
	"context"
	"fmt"

	"github.com/pep299/research-blog-pipeline/internal/config"
	"github.com/pep299/research-blog-pipeline/internal/llm"
)

// New builds the backend selected by cfg.LLMBackend.
func New(ctx context.Context, cfg *config.Config) (llm.Model, error) {
	switch cfg.LLMBackend {
	case config.BackendREST, "":
		return NewClient(cfg.GeminiAPIKey, cfg.GeminiModel).WithBaseURL(cfg.GeminiBaseURL), nil
	case config.BackendSDK:
		return NewSDKClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s", cfg.LLMBackend)
	}
}
