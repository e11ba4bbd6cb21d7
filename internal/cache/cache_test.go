package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pep299/research-blog-pipeline/internal/wikipedia"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache(1 * time.Hour)
	defer cache.Close()
	ctx := context.Background()

	entry := &CacheEntry{Text: "Test summary"}

	require.NoError(t, cache.Set(ctx, "test-key", entry))

	retrieved, err := cache.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "Test summary", retrieved.Text)
	assert.Equal(t, "test-key", retrieved.Key)
	assert.Equal(t, 1, retrieved.AccessCount)

	exists, err := cache.Exists(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = cache.Exists(ctx, "non-existent")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = cache.Get(ctx, "non-existent")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Delete(ctx, "test-key"))
	_, err = cache.Get(ctx, "test-key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiration(t *testing.T) {
	cache := NewMemoryCache(50 * time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "test-key", &CacheEntry{Text: "Test summary"}))

	exists, err := cache.Exists(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, exists, "Expected key to exist immediately after setting")

	time.Sleep(100 * time.Millisecond)

	exists, err = cache.Exists(ctx, "test-key")
	require.NoError(t, err)
	assert.False(t, exists, "Expected key to not exist after expiration")

	_, err = cache.Get(ctx, "test-key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheStats(t *testing.T) {
	cache := NewMemoryCache(1 * time.Hour)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", &CacheEntry{Text: "alpha"}))
	require.NoError(t, cache.Set(ctx, "b", &CacheEntry{Text: "beta"}))

	_, _ = cache.Get(ctx, "a")
	_, _ = cache.Get(ctx, "missing")

	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.InDelta(t, 0.5, stats.HitRate, 0.0001)
	assert.Positive(t, stats.MemoryUsage)
	assert.False(t, stats.OldestEntry.IsZero())

	require.NoError(t, cache.Clear(ctx))
	stats, err = cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEntries)
	assert.Zero(t, stats.HitCount)
}

func TestMemoryCacheCleanupExpired(t *testing.T) {
	cache := NewMemoryCache(10 * time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", &CacheEntry{Text: "v"}))
	time.Sleep(20 * time.Millisecond)
	cache.cleanupExpired()

	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEntries)
}

func TestMemoryCacheCloseIdempotent(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	assert.NoError(t, cache.Close())
	assert.NoError(t, cache.Close())
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("summary", "Go", "5")
	b := GenerateKey("summary", "Go", "5")
	c := GenerateKey("summary", "Go5")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "parts are separated before hashing")
	assert.Contains(t, a, "summary:")
}

type fakeSource struct {
	searchCalls  atomic.Int32
	summaryCalls atomic.Int32
	release      chan struct{}
	err          error
}

func (f *fakeSource) Search(ctx context.Context, query string) ([]wikipedia.SearchHit, error) {
	f.searchCalls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return []wikipedia.SearchHit{{Title: query + " (topic)"}}, nil
}

func (f *fakeSource) Summary(ctx context.Context, title string, sentences int) (string, error) {
	f.summaryCalls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "About " + title, nil
}

func TestLookupCachesResults(t *testing.T) {
	source := &fakeSource{}
	mem := NewMemoryCache(time.Hour)
	lookup := NewLookup(source, mem, nil)
	defer lookup.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		hits, err := lookup.Search(ctx, "Go")
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Go (topic)", hits[0].Title)

		text, err := lookup.Summary(ctx, "Go (topic)", 5)
		require.NoError(t, err)
		assert.Equal(t, "About Go (topic)", text)
	}

	assert.Equal(t, int32(1), source.searchCalls.Load())
	assert.Equal(t, int32(1), source.summaryCalls.Load())

	// A different sentence count is a different key.
	_, err := lookup.Summary(ctx, "Go (topic)", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.summaryCalls.Load())

	stats, err := lookup.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEntries)
}

func TestLookupDoesNotCacheErrors(t *testing.T) {
	source := &fakeSource{err: errors.New("boom")}
	lookup := NewLookup(source, NewMemoryCache(time.Hour), nil)
	defer lookup.Close()
	ctx := context.Background()

	_, err := lookup.Search(ctx, "Go")
	require.Error(t, err)
	_, err = lookup.Search(ctx, "Go")
	require.Error(t, err)
	assert.Equal(t, int32(2), source.searchCalls.Load())

	_, err = lookup.Summary(ctx, "Go", 5)
	require.Error(t, err)
	assert.Equal(t, int32(1), source.summaryCalls.Load())
}

func TestLookupReturnsCopies(t *testing.T) {
	lookup := NewLookup(&fakeSource{}, NewMemoryCache(time.Hour), nil)
	defer lookup.Close()
	ctx := context.Background()

	hits, err := lookup.Search(ctx, "Go")
	require.NoError(t, err)
	hits[0].Title = "mutated"

	hits, err = lookup.Search(ctx, "Go")
	require.NoError(t, err)
	assert.Equal(t, "Go (topic)", hits[0].Title)
}

func TestLookupSharesConcurrentMisses(t *testing.T) {
	source := &fakeSource{release: make(chan struct{})}
	lookup := NewLookup(source, NewMemoryCache(time.Hour), nil)
	defer lookup.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := lookup.Search(ctx, "Go")
			assert.NoError(t, err)
			assert.Len(t, hits, 1)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(source.release)
	wg.Wait()

	assert.Equal(t, int32(1), source.searchCalls.Load())
}

type blockingSource struct {
	fakeSource
}

func (b *blockingSource) Search(ctx context.Context, query string) ([]wikipedia.SearchHit, error) {
	b.searchCalls.Add(1)
	select {
	case <-b.release:
		return []wikipedia.SearchHit{{Title: query + " (topic)"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestLookupCanceledCallerDoesNotFailOthers(t *testing.T) {
	source := &blockingSource{fakeSource{release: make(chan struct{})}}
	lookup := NewLookup(source, NewMemoryCache(time.Hour), nil)
	defer lookup.Close()

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	firstErr := make(chan error, 1)
	go func() {
		_, err := lookup.Search(firstCtx, "Go")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return source.searchCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		hits []wikipedia.SearchHit
		err  error
	}
	second := make(chan result, 1)
	go func() {
		hits, err := lookup.Search(context.Background(), "Go")
		second <- result{hits, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(source.release)
	got := <-second
	require.NoError(t, got.err)
	require.Len(t, got.hits, 1)
	assert.Equal(t, "Go (topic)", got.hits[0].Title)
	assert.Equal(t, int32(1), source.searchCalls.Load())
}
