package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pep299/research-blog-pipeline/internal/archive"
	"github.com/pep299/research-blog-pipeline/internal/pipeline"
)

type fakePipeline struct {
	err    error
	topics []string
}

func (f *fakePipeline) Run(ctx context.Context, topic string) (*pipeline.Result, error) {
	f.topics = append(f.topics, topic)
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{Research: "r", Summary: "s", Blog: "b", Review: "v"}, nil
}

type fakeAgent struct{}

func (fakeAgent) Name() string { return "research" }

func (fakeAgent) Invoke(ctx context.Context, input string) (string, error) {
	return "facts about " + input, nil
}

type fakeNotifier struct {
	err      error
	records  []*archive.Record
	failures []error
}

func (f *fakeNotifier) NotifyRun(ctx context.Context, record *archive.Record) error {
	f.records = append(f.records, record)
	return f.err
}

func (f *fakeNotifier) NotifyFailure(ctx context.Context, topic string, runErr error) error {
	f.failures = append(f.failures, runErr)
	return f.err
}

type failingStore struct {
	*archive.MemoryStore
}

func (failingStore) Save(ctx context.Context, record *archive.Record) error {
	return errors.New("bucket unavailable")
}

func TestRunArchivesAndNotifies(t *testing.T) {
	store := archive.NewMemoryStore()
	notifier := &fakeNotifier{}
	p := &fakePipeline{}
	runner := NewRunner(p, fakeAgent{}, store, notifier, "gemini-2.5-flash", nil)
	ctx := context.Background()

	record, err := runner.Run(ctx, "  Quantum Computer  ", Options{Notify: true, Archive: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"Quantum Computer"}, p.topics)
	assert.Equal(t, "Quantum Computer", record.Topic)
	assert.Equal(t, "gemini-2.5-flash", record.Model)
	assert.Equal(t, "b", record.Result.Blog)

	stored, err := runner.GetRun(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, stored.ID)

	require.Len(t, notifier.records, 1)
	assert.Equal(t, record.ID, notifier.records[0].ID)
}

func TestRunWithoutSideEffects(t *testing.T) {
	store := archive.NewMemoryStore()
	notifier := &fakeNotifier{}
	runner := NewRunner(&fakePipeline{}, fakeAgent{}, store, notifier, "m", nil)
	ctx := context.Background()

	_, err := runner.Run(ctx, "Go", Options{})
	require.NoError(t, err)

	runs, err := runner.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Empty(t, notifier.records)
}

func TestRunEmptyTopic(t *testing.T) {
	p := &fakePipeline{}
	runner := NewRunner(p, fakeAgent{}, archive.NewMemoryStore(), nil, "m", nil)

	_, err := runner.Run(context.Background(), "   ", Options{})
	assert.ErrorIs(t, err, ErrEmptyTopic)
	assert.Empty(t, p.topics)

	_, err = runner.Research(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestRunStageErrorUnchanged(t *testing.T) {
	stageErr := errors.New("model unavailable")
	notifier := &fakeNotifier{}
	runner := NewRunner(&fakePipeline{err: stageErr}, fakeAgent{}, archive.NewMemoryStore(), notifier, "m", nil)

	record, err := runner.Run(context.Background(), "Go", Options{Notify: true, Archive: true})
	assert.Nil(t, record)
	assert.Same(t, stageErr, err)
	assert.Empty(t, notifier.records)
	require.Len(t, notifier.failures, 1)
	assert.Same(t, stageErr, notifier.failures[0])
}

func TestRunStageErrorWithoutNotify(t *testing.T) {
	notifier := &fakeNotifier{}
	runner := NewRunner(&fakePipeline{err: errors.New("quota")}, fakeAgent{}, archive.NewMemoryStore(), notifier, "m", nil)

	_, err := runner.Run(context.Background(), "Go", Options{Archive: true})
	require.Error(t, err)
	assert.Empty(t, notifier.failures)
}

func TestRunFailureNotificationErrorKeepsStageError(t *testing.T) {
	stageErr := errors.New("model unavailable")
	notifier := &fakeNotifier{err: errors.New("slack down")}
	runner := NewRunner(&fakePipeline{err: stageErr}, fakeAgent{}, archive.NewMemoryStore(), notifier, "m", nil)

	_, err := runner.Run(context.Background(), "Go", Options{Notify: true})
	assert.Same(t, stageErr, err)
	assert.Len(t, notifier.failures, 1)
}

func TestRunNotificationFailureIsNotFatal(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("slack down")}
	runner := NewRunner(&fakePipeline{}, fakeAgent{}, archive.NewMemoryStore(), notifier, "m", nil)

	record, err := runner.Run(context.Background(), "Go", Options{Notify: true})
	require.NoError(t, err)
	assert.NotNil(t, record)
	assert.Len(t, notifier.records, 1)
}

func TestRunArchiveFailure(t *testing.T) {
	runner := NewRunner(&fakePipeline{}, fakeAgent{}, failingStore{archive.NewMemoryStore()}, nil, "m", nil)

	record, err := runner.Run(context.Background(), "Go", Options{Archive: true})
	require.Error(t, err)

	var archiveErr *ArchiveError
	require.ErrorAs(t, err, &archiveErr)
	assert.Equal(t, record.ID, archiveErr.RunID)
	assert.Contains(t, err.Error(), "bucket unavailable")
}

func TestRunNotifyWithoutNotifier(t *testing.T) {
	runner := NewRunner(&fakePipeline{}, fakeAgent{}, archive.NewMemoryStore(), nil, "m", nil)

	_, err := runner.Run(context.Background(), "Go", Options{Notify: true})
	require.NoError(t, err)
	assert.False(t, runner.NotificationsEnabled())
}

func TestResearch(t *testing.T) {
	runner := NewRunner(&fakePipeline{}, fakeAgent{}, archive.NewMemoryStore(), nil, "m", nil)

	text, err := runner.Research(context.Background(), "Go")
	require.NoError(t, err)
	assert.Equal(t, "facts about Go", text)
}
