package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/logging"
	"github.com/pep299/research-blog-pipeline/internal/wikipedia"
)

const (
	// NoResultsMessage is the research output when a search returns nothing.
	NoResultsMessage = "No research results found on Wikipedia."

	// ResearchErrorPrefix starts the research output when a lookup fails.
	ResearchErrorPrefix = "Error during Wikipedia research: "

	// DefaultSentences is the extract length used when none is configured.
	DefaultSentences = 5
)

// Researcher looks up encyclopedia pages.
type Researcher interface {
	Search(ctx context.Context, query string) ([]wikipedia.SearchHit, error)
	Summary(ctx context.Context, title string, sentences int) (string, error)
}

// ResearchAgent fetches the extract of the best matching Wikipedia page.
// It never calls a language model and never returns an error: lookup
// failures are reported in the output text.
type ResearchAgent struct {
	source    Researcher
	sentences int
	logger    *zap.Logger
}

// NewResearchAgent creates a research stage backed by source.
func NewResearchAgent(source Researcher, sentences int, logger *zap.Logger) *ResearchAgent {
	if sentences <= 0 {
		sentences = DefaultSentences
	}
	return &ResearchAgent{
		source:    source,
		sentences: sentences,
		logger:    logging.OrNop(logger),
	}
}

// Name returns "research".
func (a *ResearchAgent) Name() string {
	return "research"
}

// Invoke searches for topic and returns the first hit's extract.
func (a *ResearchAgent) Invoke(ctx context.Context, topic string) (string, error) {
	a.logger.Debug("Research started", zap.String("topic", topic))

	hits, err := a.source.Search(ctx, topic)
	if err != nil {
		return a.failed(topic, err), nil
	}
	if len(hits) == 0 {
		a.logger.Info("No research results", zap.String("topic", topic))
		return NoResultsMessage, nil
	}

	title := hits[0].Title
	extract, err := a.source.Summary(ctx, title, a.sentences)
	if err != nil {
		return a.failed(topic, err), nil
	}

	extract = strings.TrimSpace(extract)
	if extract == "" {
		a.logger.Info("Empty extract", zap.String("title", title))
		return NoResultsMessage, nil
	}

	a.logger.Debug("Research completed",
		zap.String("title", title),
		zap.Int("output_bytes", len(extract)))
	return extract, nil
}

func (a *ResearchAgent) failed(topic string, err error) string {
	a.logger.Warn("Wikipedia research failed", zap.String("topic", topic), zap.Error(err))
	return ResearchErrorPrefix + err.Error()
}
