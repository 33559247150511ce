// Package cache maps (dataset, scope) keys to dated CSV files on disk,
// fetching from upstream only on a miss.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/luqian/astock-screener/pkg/logger"
	"github.com/luqian/astock-screener/pkg/table"
)

// FetchFunc produces the dataset for one scope key on a cache miss.
type FetchFunc func(ctx context.Context, scope string) (*table.Table, error)

// Store is the dated file cache. File presence is the only cache-hit
// signal: staleness is managed entirely by key granularity (a new trading
// date is a new key). Within one run each key is fetched at most once,
// even when the fetch came back empty and was therefore not persisted.
type Store struct {
	dir    string
	logger *logger.Logger

	mu   sync.Mutex
	memo map[string]*table.Table // per-run fetch results, including empty ones
}

// New creates a Store over the given cache directory.
func New(dir string, log *logger.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: log,
		memo:   make(map[string]*table.Table),
	}
}

// Path derives the file location for a key. Purely a function of the key;
// keys are unique per logical dataset so no collision handling is needed.
func (s *Store) Path(dataset, scope string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", dataset, scope))
}

// LoadOrFetch returns the cached table for (dataset, scope), fetching and
// persisting it when the file is absent. An empty fetch result is returned
// as-is but not persisted, so a later run retries the fetch.
func (s *Store) LoadOrFetch(ctx context.Context, dataset, scope string, fetch FetchFunc) (*table.Table, error) {
	path := s.Path(dataset, scope)

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		t, err := table.ReadCSV(path)
		if err != nil {
			return nil, fmt.Errorf("cache read %s: %w", path, err)
		}
		s.logger.WithFields(map[string]interface{}{
			"path": path,
			"rows": t.Len(),
		}).Info("cache hit")
		return t, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := dataset + "|" + scope
	if t, ok := s.memo[key]; ok {
		s.logger.WithField("key", key).Debug("cache memo hit, skipping refetch")
		return t, nil
	}

	s.logger.WithFields(map[string]interface{}{
		"dataset": dataset,
		"scope":   scope,
	}).Info("cache miss, fetching upstream")

	t, err := fetch(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", dataset, scope, err)
	}
	s.memo[key] = t

	if t.Empty() {
		// Not yet available upstream. Leave nothing on disk so the next
		// run fetches again.
		s.logger.WithField("key", key).Warn("fetch returned no rows, not persisting")
		return t, nil
	}

	if err := t.WriteCSV(path); err != nil {
		return nil, fmt.Errorf("cache persist %s: %w", path, err)
	}
	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"rows": t.Len(),
	}).Info("dataset persisted")
	return t, nil
}
