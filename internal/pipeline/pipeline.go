// Package pipeline runs the research, summary, blog and critique stages
// strictly in sequence, feeding each stage the previous stage's output.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/agent"
	"github.com/pep299/research-blog-pipeline/internal/logging"
)

// ErrMissingStage is returned by New when a stage agent is nil.
var ErrMissingStage = errors.New("pipeline stage agent is nil")

// Result aggregates the outputs of a completed run.
type Result struct {
	Research string `json:"research"`
	Summary  string `json:"summary"`
	Blog     string `json:"blog"`
	Review   string `json:"review"`
}

// Map returns the result keyed by output name.
func (r *Result) Map() map[string]string {
	return map[string]string{
		"research": r.Research,
		"summary":  r.Summary,
		"blog":     r.Blog,
		"review":   r.Review,
	}
}

// Stages holds one agent per pipeline step.
type Stages struct {
	Research   agent.Agent
	Summary    agent.Agent
	BlogWriter agent.Agent
	Critic     agent.Agent
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for stage transitions.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.OrNop(logger)
	}
}

// WithObserver registers fn to receive every stage event. Observers are
// called synchronously on the goroutine running the pipeline.
func WithObserver(fn func(Event)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// Orchestrator runs the four stages of a pipeline.
type Orchestrator struct {
	agents    [StageDone]agent.Agent
	logger    *zap.Logger
	observers []func(Event)
}

// New creates an orchestrator for stages.
func New(stages Stages, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		agents: [StageDone]agent.Agent{
			StageResearch:  stages.Research,
			StageSummarize: stages.Summary,
			StageWrite:     stages.BlogWriter,
			StageCritique:  stages.Critic,
		},
		logger: zap.NewNop(),
	}
	for stage, a := range o.agents {
		if a == nil {
			return nil, errors.Join(ErrMissingStage, errors.New(Stage(stage).String()))
		}
	}

	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes every stage for topic. If a stage fails the run stops, no
// partial result is returned and the stage's error is returned as is.
func (o *Orchestrator) Run(ctx context.Context, topic string) (*Result, error) {
	var outputs [StageDone]string
	input := topic
	runStart := time.Now()

	for stage := StageResearch; stage < StageDone; stage++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := o.runStage(ctx, stage, input)
		if err != nil {
			return nil, err
		}
		outputs[stage] = output
		input = output
	}

	o.logger.Info("Pipeline completed",
		zap.String("topic", topic),
		zap.Duration("elapsed", time.Since(runStart)))

	return &Result{
		Research: outputs[StageResearch],
		Summary:  outputs[StageSummarize],
		Blog:     outputs[StageWrite],
		Review:   outputs[StageCritique],
	}, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, input string) (string, error) {
	a := o.agents[stage]
	o.emit(Event{Stage: stage, Status: StatusStarted})
	o.logger.Info("Stage started", zap.Stringer("stage", stage), zap.String("agent", a.Name()))

	start := time.Now()
	output, err := a.Invoke(ctx, input)
	elapsed := time.Since(start)

	if err != nil {
		o.emit(Event{Stage: stage, Status: StatusFailed, Elapsed: elapsed, Err: err})
		o.logger.Error("Stage failed",
			zap.Stringer("stage", stage),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", err
	}

	o.emit(Event{Stage: stage, Status: StatusCompleted, Elapsed: elapsed})
	o.logger.Info("Stage completed",
		zap.Stringer("stage", stage),
		zap.Duration("elapsed", elapsed),
		zap.Int("output_bytes", len(output)))
	return output, nil
}

func (o *Orchestrator) emit(e Event) {
	for _, fn := range o.observers {
		fn(e)
	}
}
