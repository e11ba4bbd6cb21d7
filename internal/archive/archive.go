// Package archive stores the records of completed pipeline runs.
package archive

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pep299/research-blog-pipeline/internal/pipeline"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("run record not found")

// Record is an archived pipeline run.
type Record struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	Model      string          `json:"model"`
	Result     pipeline.Result `json:"result"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	DurationMS int64           `json:"duration_ms"`
}

// NewRecord builds a record with a fresh ID for a run that finished now.
func NewRecord(topic, model string, result pipeline.Result, startedAt time.Time) *Record {
	finishedAt := time.Now().UTC()
	return &Record{
		ID:         uuid.NewString(),
		Topic:      topic,
		Model:      model,
		Result:     result,
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt,
		DurationMS: finishedAt.Sub(startedAt).Milliseconds(),
	}
}

// Store persists run records.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns up to limit records, newest first. A limit of zero or
	// less returns every record.
	List(ctx context.Context, limit int) ([]*Record, error)
	Close() error
}

func newestFirst(records []*Record, limit int) []*Record {
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}
