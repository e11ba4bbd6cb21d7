package pipeline

import (
	"fmt"
	"time"
)

// Stage is a step of a pipeline run. Stages execute in declaration order.
type Stage int

const (
	StageResearch Stage = iota
	StageSummarize
	StageWrite
	StageCritique
	StageDone
)

// String returns the upper-case stage name.
func (s Stage) String() string {
	switch s {
	case StageResearch:
		return "RESEARCH"
	case StageSummarize:
		return "SUMMARIZE"
	case StageWrite:
		return "WRITE"
	case StageCritique:
		return "CRITIQUE"
	case StageDone:
		return "DONE"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Status is the state reported by an Event.
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event reports a stage transition. Elapsed and Err are set once the stage
// has finished.
type Event struct {
	Stage   Stage
	Status  Status
	Elapsed time.Duration
	Err     error
}
