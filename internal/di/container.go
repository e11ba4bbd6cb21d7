package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/agent"
	"github.com/pep299/research-blog-pipeline/internal/archive"
	"github.com/pep299/research-blog-pipeline/internal/cache"
	"github.com/pep299/research-blog-pipeline/internal/config"
	"github.com/pep299/research-blog-pipeline/internal/gemini"
	"github.com/pep299/research-blog-pipeline/internal/llm"
	"github.com/pep299/research-blog-pipeline/internal/logging"
	"github.com/pep299/research-blog-pipeline/internal/pipeline"
	"github.com/pep299/research-blog-pipeline/internal/prompts"
	"github.com/pep299/research-blog-pipeline/internal/service"
	"github.com/pep299/research-blog-pipeline/internal/slack"
	"github.com/pep299/research-blog-pipeline/internal/wikipedia"
)

// Container holds all dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Model     llm.Model
	Wikipedia *wikipedia.Client
	Lookup    *cache.Lookup // nil when caching is disabled
	Prompts   *prompts.Loader
	Research  *agent.ResearchAgent
	Pipeline  *pipeline.Orchestrator
	Archive   archive.Store
	Slack     *slack.Client // nil when no bot token is configured
	Runner    *service.Runner
}

// NewContainer creates a new dependency container. Extra pipeline options,
// such as progress observers, are applied after the logger.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...pipeline.Option) (*Container, error) {
	logger = logging.OrNop(logger)

	model, err := gemini.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating model: %w", err)
	}

	c := &Container{
		Config:    cfg,
		Logger:    logger,
		Model:     model,
		Wikipedia: wikipedia.NewClient(cfg.WikipediaAPIURL),
		Prompts:   prompts.NewLoader(cfg.PromptsDir),
	}

	var source agent.Researcher = c.Wikipedia
	if cfg.CacheType == config.CacheMemory {
		duration := time.Duration(cfg.CacheDuration) * time.Hour
		c.Lookup = cache.NewLookup(c.Wikipedia, cache.NewMemoryCache(duration), logger.Named("cache"))
		source = c.Lookup
	}

	c.Archive, err = newArchive(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Research = agent.NewResearchAgent(source, cfg.ResearchSentences, logger.Named("research"))
	stages := pipeline.Stages{
		Research:   c.Research,
		Summary:    agent.NewSummaryAgent(model, c.Prompts, logger.Named("summary")),
		BlogWriter: agent.NewBlogWriterAgent(model, c.Prompts, logger.Named("blog_writer")),
		Critic:     agent.NewCriticAgent(model, c.Prompts, logger.Named("critic")),
	}

	c.Pipeline, err = pipeline.New(stages, append([]pipeline.Option{pipeline.WithLogger(logger.Named("pipeline"))}, opts...)...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	var notifier service.Notifier
	if cfg.SlackEnabled() {
		c.Slack = slack.NewClient(cfg.SlackBotToken, cfg.SlackChannel)
		notifier = c.Slack
	}

	c.Runner = service.NewRunner(c.Pipeline, c.Research, c.Archive, notifier, model.Name(), logger.Named("runner"))

	return c, nil
}

func newArchive(ctx context.Context, cfg *config.Config) (archive.Store, error) {
	if cfg.ArchiveBucket == "" {
		return archive.NewMemoryStore(), nil
	}

	store, err := archive.NewGCSStore(ctx, cfg.ArchiveBucket)
	if err != nil {
		return nil, fmt.Errorf("creating archive store: %w", err)
	}
	return store, nil
}

// CacheStats returns lookup cache statistics, or empty statistics when
// caching is disabled.
func (c *Container) CacheStats(ctx context.Context) (*cache.Stats, error) {
	if c.Lookup == nil {
		return &cache.Stats{}, nil
	}
	return c.Lookup.GetStats(ctx)
}

// ClearCache drops every cached lookup.
func (c *Container) ClearCache(ctx context.Context) error {
	if c.Lookup == nil {
		return nil
	}
	return c.Lookup.Clear(ctx)
}

// Close cleans up resources
func (c *Container) Close() error {
	var errs []error
	if c.Lookup != nil {
		errs = append(errs, c.Lookup.Close())
	}
	if c.Archive != nil {
		errs = append(errs, c.Archive.Close())
	}
	return errors.Join(errs...)
}
