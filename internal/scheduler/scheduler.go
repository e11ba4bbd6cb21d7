// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/logging"
)

// RunFunc runs the pipeline for one topic.
type RunFunc func(ctx context.Context, topic string) error

// Scheduler runs one cron job per topic. A job whose previous run is still
// in progress is skipped.
type Scheduler struct {
	cron   *cron.Cron
	chain  cron.Chain
	logger *zap.Logger
}

// New creates a stopped scheduler. Panics in jobs are recovered and logged.
func New(logger *zap.Logger) *Scheduler {
	logger = logging.OrNop(logger)
	cl := cronLogger{logger.Sugar()}
	wrappers := []cron.JobWrapper{cron.Recover(cl), cron.SkipIfStillRunning(cl)}

	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(wrappers...)),
		chain:  cron.NewChain(wrappers...),
		logger: logger,
	}
}

// Schedule registers run for every non-blank topic on spec. It returns the
// number of jobs added. Jobs run with ctx, so canceling it aborts them.
func (s *Scheduler) Schedule(ctx context.Context, spec string, topics []string, run RunFunc) (int, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return 0, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	added := 0
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}

		if _, err := s.cron.AddFunc(spec, s.job(ctx, topic, run)); err != nil {
			return added, fmt.Errorf("scheduling %q: %w", topic, err)
		}
		s.logger.Info("Scheduled topic", zap.String("topic", topic), zap.String("cron", spec))
		added++
	}
	return added, nil
}

func (s *Scheduler) job(ctx context.Context, topic string, run RunFunc) func() {
	return func() {
		s.logger.Info("Scheduled run starting", zap.String("topic", topic))
		if err := run(ctx, topic); err != nil {
			s.logger.Error("Scheduled run failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		s.logger.Info("Scheduled run completed", zap.String("topic", topic))
	}
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger routes cron's own messages to zap. Routine scheduler chatter
// goes to debug.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
