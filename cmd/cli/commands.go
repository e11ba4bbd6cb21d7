package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/config"
	"github.com/pep299/research-blog-pipeline/internal/di"
	"github.com/pep299/research-blog-pipeline/internal/logging"
	"github.com/pep299/research-blog-pipeline/internal/pipeline"
	"github.com/pep299/research-blog-pipeline/internal/service"
)

// loadConfig reads the configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	applyFlags(cfg)
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	if promptsDir != "" {
		cfg.PromptsDir = promptsDir
	}
	if model != "" {
		cfg.GeminiModel = model
	}
	if verbose {
		cfg.Verbose = true
	}
}

func newContainer(cmd *cobra.Command, opts ...pipeline.Option) (*di.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err = logging.New(cfg.LogLevel, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return di.NewContainer(cmd.Context(), cfg, logger, opts...)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	var opts []pipeline.Option
	if !jsonOutput {
		opts = append(opts, pipeline.WithObserver(progressPrinter(cmd.ErrOrStderr())))
	}

	container, err := newContainer(cmd, opts...)
	if err != nil {
		return err
	}
	defer container.Close()

	topic := topicFromArgs(args, container.Config.DefaultTopic)
	record, err := container.Runner.Run(cmd.Context(), topic, service.Options{
		Notify:  notify,
		Archive: archiveRun,
	})
	if err != nil {
		return err
	}

	if archiveRun {
		logger.Info("Run archived", zap.String("run_id", record.ID))
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), &record.Result)
	}
	printResult(cmd.OutOrStdout(), record.Topic, &record.Result)
	return nil
}

func runResearch(cmd *cobra.Command, args []string) error {
	container, err := newContainer(cmd)
	if err != nil {
		return err
	}
	defer container.Close()

	text, err := container.Runner.Research(cmd.Context(), topicFromArgs(args, ""))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func topicFromArgs(args []string, fallback string) string {
	topic := strings.TrimSpace(strings.Join(args, " "))
	if topic == "" {
		return fallback
	}
	return topic
}

func progressPrinter(w io.Writer) func(pipeline.Event) {
	total := int(pipeline.StageDone)
	return func(e pipeline.Event) {
		step := int(e.Stage) + 1
		switch e.Status {
		case pipeline.StatusStarted:
			fmt.Fprintf(w, "[%d/%d] %s...\n", step, total, e.Stage)
		case pipeline.StatusCompleted:
			fmt.Fprintf(w, "[%d/%d] %s done (%s)\n", step, total, e.Stage, e.Elapsed.Round(time.Millisecond))
		case pipeline.StatusFailed:
			fmt.Fprintf(w, "[%d/%d] %s failed: %v\n", step, total, e.Stage, e.Err)
		}
	}
}

func printJSON(w io.Writer, result *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func printResult(w io.Writer, topic string, result *pipeline.Result) {
	sections := []struct {
		title string
		body  string
	}{
		{"Research", result.Research},
		{"Summary", result.Summary},
		{"Blog", result.Blog},
		{"Review", result.Review},
	}

	fmt.Fprintf(w, "Topic: %s\n", topic)
	for _, s := range sections {
		fmt.Fprintf(w, "\n=== %s ===\n%s\n", s.title, strings.TrimSpace(s.body))
	}
}
