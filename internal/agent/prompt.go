package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/llm"
	"github.com/pep299/research-blog-pipeline/internal/logging"
	"github.com/pep299/research-blog-pipeline/internal/prompts"
)

// User message templates. The stage input replaces the placeholder.
const (
	SummaryUserTemplate    = "Generate a concise summary of the following paragraph produced by the Research Agent: " + prompts.Placeholder
	BlogWriterUserTemplate = "Write a blog based on this summary: " + prompts.Placeholder
	CriticUserTemplate     = "Critically evaluate the following content: " + prompts.Placeholder
)

// Templates supplies system prompts by role.
type Templates interface {
	Load(role prompts.Role) (string, error)
}

// PromptAgent sends its input to a language model, framed by the role's
// system prompt and a fixed user message template.
type PromptAgent struct {
	role         prompts.Role
	userTemplate string
	model        llm.Model
	templates    Templates
	logger       *zap.Logger
}

func newPromptAgent(role prompts.Role, userTemplate string, model llm.Model, templates Templates, logger *zap.Logger) *PromptAgent {
	return &PromptAgent{
		role:         role,
		userTemplate: userTemplate,
		model:        model,
		templates:    templates,
		logger:       logging.OrNop(logger),
	}
}

// NewSummaryAgent condenses research text.
func NewSummaryAgent(model llm.Model, templates Templates, logger *zap.Logger) *PromptAgent {
	return newPromptAgent(prompts.RoleSummary, SummaryUserTemplate, model, templates, logger)
}

// NewBlogWriterAgent expands a summary into a blog post.
func NewBlogWriterAgent(model llm.Model, templates Templates, logger *zap.Logger) *PromptAgent {
	return newPromptAgent(prompts.RoleBlogWriter, BlogWriterUserTemplate, model, templates, logger)
}

// NewCriticAgent reviews a blog post.
func NewCriticAgent(model llm.Model, templates Templates, logger *zap.Logger) *PromptAgent {
	return newPromptAgent(prompts.RoleCritic, CriticUserTemplate, model, templates, logger)
}

// Name returns the prompt role.
func (a *PromptAgent) Name() string {
	return string(a.role)
}

// Invoke loads the system prompt, calls the model and returns its text as is.
// Template and model errors are returned unchanged.
func (a *PromptAgent) Invoke(ctx context.Context, input string) (string, error) {
	system, err := a.templates.Load(a.role)
	if err != nil {
		return "", err
	}

	prompt := llm.Prompt{
		System: system,
		User:   prompts.Render(a.userTemplate, input),
	}

	a.logger.Debug("Calling model",
		zap.String("agent", a.Name()),
		zap.String("model", a.model.Name()),
		zap.Int("input_bytes", len(input)))

	output, err := a.model.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	a.logger.Debug("Model responded",
		zap.String("agent", a.Name()),
		zap.Int("output_bytes", len(output)))
	return output, nil
}
