// Package service runs pipelines on behalf of the CLI, the HTTP API and the
// scheduler, recording and announcing the results.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/agent"
	"github.com/pep299/research-blog-pipeline/internal/archive"
	"github.com/pep299/research-blog-pipeline/internal/logging"
	"github.com/pep299/research-blog-pipeline/internal/pipeline"
)

// ErrEmptyTopic is returned when the topic is blank.
var ErrEmptyTopic = errors.New("topic is required")

// ArchiveError reports a run that completed but could not be stored.
type ArchiveError struct {
	RunID string
	Err   error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archiving run %s: %v", e.RunID, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// Pipeline runs every stage for a topic.
type Pipeline interface {
	Run(ctx context.Context, topic string) (*pipeline.Result, error)
}

// Notifier announces completed and failed runs.
type Notifier interface {
	NotifyRun(ctx context.Context, record *archive.Record) error
	NotifyFailure(ctx context.Context, topic string, runErr error) error
}

// Options selects the side effects of a run.
type Options struct {
	Notify  bool
	Archive bool
}

// Runner executes pipeline runs.
type Runner struct {
	pipeline Pipeline
	research agent.Agent
	store    archive.Store
	notifier Notifier
	model    string
	logger   *zap.Logger
}

// NewRunner creates a runner. A nil notifier disables notifications.
func NewRunner(p Pipeline, research agent.Agent, store archive.Store, notifier Notifier, model string, logger *zap.Logger) *Runner {
	return &Runner{
		pipeline: p,
		research: research,
		store:    store,
		notifier: notifier,
		model:    model,
		logger:   logging.OrNop(logger),
	}
}

// Run executes the pipeline for topic and returns the run record. Stage
// errors are returned unchanged and, with Notify set, announced as a
// failure. A failed notification is logged and does not fail the run; a
// failed archive write returns an *ArchiveError.
func (r *Runner) Run(ctx context.Context, topic string, opts Options) (*archive.Record, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	startedAt := time.Now()
	r.logger.Info("Pipeline run started", zap.String("topic", topic))

	result, err := r.pipeline.Run(ctx, topic)
	if err != nil {
		if opts.Notify {
			r.notifyFailure(ctx, topic, err)
		}
		return nil, err
	}

	record := archive.NewRecord(topic, r.model, *result, startedAt)
	r.logger.Info("Pipeline run finished",
		zap.String("run_id", record.ID),
		zap.Int64("duration_ms", record.DurationMS))

	if opts.Archive {
		if err := r.store.Save(ctx, record); err != nil {
			return record, &ArchiveError{RunID: record.ID, Err: err}
		}
	}

	if opts.Notify {
		r.notify(ctx, record)
	}

	return record, nil
}

// Research runs the research stage alone.
func (r *Runner) Research(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	return r.research.Invoke(ctx, topic)
}

// Runs returns archived records, newest first.
func (r *Runner) Runs(ctx context.Context, limit int) ([]*archive.Record, error) {
	return r.store.List(ctx, limit)
}

// GetRun returns the archived record with id.
func (r *Runner) GetRun(ctx context.Context, id string) (*archive.Record, error) {
	return r.store.Get(ctx, id)
}

// NotificationsEnabled reports whether runs can be announced.
func (r *Runner) NotificationsEnabled() bool {
	return r.notifier != nil
}

func (r *Runner) notify(ctx context.Context, record *archive.Record) {
	if r.notifier == nil {
		r.logger.Debug("Notifications disabled, skipping", zap.String("run_id", record.ID))
		return
	}
	if err := r.notifier.NotifyRun(ctx, record); err != nil {
		r.logger.Warn("Failed to send run notification",
			zap.String("run_id", record.ID),
			zap.Error(err))
		return
	}
	r.logger.Info("Run notification sent", zap.String("run_id", record.ID))
}

func (r *Runner) notifyFailure(ctx context.Context, topic string, runErr error) {
	if r.notifier == nil {
		return
	}
	// the run context may already be canceled
	if err := r.notifier.NotifyFailure(context.WithoutCancel(ctx), topic, runErr); err != nil {
		r.logger.Warn("Failed to send failure notification",
			zap.String("topic", topic),
			zap.Error(err))
	}
}
