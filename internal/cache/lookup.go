package cache

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pep299/research-blog-pipeline/internal/logging"
	"github.com/pep299/research-blog-pipeline/internal/wikipedia"
)

// Source is the uncached research lookup service.
type Source interface {
	Search(ctx context.Context, query string) ([]wikipedia.SearchHit, error)
	Summary(ctx context.Context, title string, sentences int) (string, error)
}

// Lookup wraps a Source with a Cache. Concurrent misses for the same key
// share one upstream call, which is bounded by the source client timeout
// rather than by any one caller. Errors are never cached.
type Lookup struct {
	source Source
	cache  Cache
	group  singleflight.Group
	logger *zap.Logger
}

// NewLookup creates a caching lookup in front of source.
func NewLookup(source Source, cache Cache, logger *zap.Logger) *Lookup {
	return &Lookup{
		source: source,
		cache:  cache,
		logger: logging.OrNop(logger),
	}
}

// Search returns cached hits for query, fetching them on a miss.
func (l *Lookup) Search(ctx context.Context, query string) ([]wikipedia.SearchHit, error) {
	key := GenerateKey("search", query)

	if entry, err := l.cache.Get(ctx, key); err == nil {
		l.logger.Debug("Search cache hit", zap.String("query", query))
		return append([]wikipedia.SearchHit(nil), entry.Hits...), nil
	} else if !errors.Is(err, ErrCacheMiss) {
		return nil, err
	}

	v, err := l.shared(ctx, key, func(ctx context.Context) (any, error) {
		hits, err := l.source.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		if err := l.cache.Set(ctx, key, &CacheEntry{Hits: hits}); err != nil {
			l.logger.Warn("Failed to cache search hits", zap.String("query", query), zap.Error(err))
		}
		return hits, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]wikipedia.SearchHit(nil), v.([]wikipedia.SearchHit)...), nil
}

// Summary returns the cached extract for title, fetching it on a miss.
func (l *Lookup) Summary(ctx context.Context, title string, sentences int) (string, error) {
	key := GenerateKey("summary", title, strconv.Itoa(sentences))

	if entry, err := l.cache.Get(ctx, key); err == nil {
		l.logger.Debug("Summary cache hit", zap.String("title", title))
		return entry.Text, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		return "", err
	}

	v, err := l.shared(ctx, key, func(ctx context.Context) (any, error) {
		text, err := l.source.Summary(ctx, title, sentences)
		if err != nil {
			return "", err
		}
		if err := l.cache.Set(ctx, key, &CacheEntry{Text: text}); err != nil {
			l.logger.Warn("Failed to cache summary", zap.String("title", title), zap.Error(err))
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// shared runs fetch once per key for all concurrent callers. The fetch is
// detached from the cancellation of whichever caller started it; each caller
// stops waiting when its own ctx is done.
func (l *Lookup) shared(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	ch := l.group.DoChan(key, func() (any, error) {
		return fetch(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetStats returns statistics of the underlying cache.
func (l *Lookup) GetStats(ctx context.Context) (*Stats, error) {
	return l.cache.GetStats(ctx)
}

// Clear drops every cached lookup.
func (l *Lookup) Clear(ctx context.Context) error {
	return l.cache.Clear(ctx)
}

// Close releases the underlying cache.
func (l *Lookup) Close() error {
	return l.cache.Close()
}
