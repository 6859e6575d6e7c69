package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// Catalog is the ordered, append-only set of articles available for serving.
// Insertion order is ingestion order; ids are unique.
type Catalog struct {
	ingester Ingester

	mu       sync.RWMutex
	articles []Article
	index    map[string]int

	group       singleflight.Group
	lastRefresh time.Time
}

func New(ingester Ingester) *Catalog {
	return &Catalog{
		ingester: ingester,
		index:    make(map[string]int),
	}
}

// Append adds the articles of batch whose id is not cataloged yet and
// returns how many were added. Duplicates inside the batch are dropped too.
func (c *Catalog) Append(batch []Article) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, article := range batch {
		if article.ID == "" {
			continue
		}
		if _, exists := c.index[article.ID]; exists {
			continue
		}
		c.index[article.ID] = len(c.articles)
		c.articles = append(c.articles, article)
		added++
	}

	return added
}

func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.articles)
}

// Slice returns the half-open window [start, end) clipped to the catalog bounds.
func (c *Catalog) Slice(start, end int) []Article {
	return Window(c.Snapshot(), start, end)
}

// Snapshot returns the catalog as of now. The returned slice is never
// mutated by later appends.
func (c *Catalog) Snapshot() []Article {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := len(c.articles)
	return c.articles[:n:n]
}

func (c *Catalog) Find(id string) (Article, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return Article{}, fmt.Errorf("%w: %s", ErrArticleNotFound, id)
	}
	return c.articles[i], nil
}

func (c *Catalog) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[id]
	return ok
}

func (c *Catalog) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// Refresh runs a full ingestion cycle and appends the result. Concurrent
// callers share a single in-flight cycle and all observe its outcome.
func (c *Catalog) Refresh(ctx context.Context) (int, error) {
	if c.ingester == nil {
		return 0, nil
	}

	// The shared cycle must not die with whichever caller started it.
	ctx = context.WithoutCancel(ctx)

	result, err, shared := c.group.Do(refreshKey, func() (interface{}, error) {
		started := time.Now()

		articles, err := c.ingester.Ingest(ctx, c.Contains)
		added := c.Append(articles)

		c.mu.Lock()
		c.lastRefresh = time.Now()
		c.mu.Unlock()

		slog.Info("Catalog refreshed",
			"fetched", len(articles),
			"added", added,
			"size", c.Size(),
			"duration", time.Since(started))

		return added, err
	})

	added, _ := result.(int)
	if shared {
		slog.Debug("Joined in-flight catalog refresh", "added", added)
	}

	return added, err
}

// RefreshIfNeeded refreshes when requestedEnd reaches past the known end.
// Ingestion failures are logged and never surfaced: the caller serves
// whatever the catalog holds afterwards.
func (c *Catalog) RefreshIfNeeded(ctx context.Context, requestedEnd int) {
	if requestedEnd < c.Size() {
		return
	}

	if _, err := c.Refresh(ctx); err != nil {
		slog.Warn("Catalog refresh failed, serving existing articles", "requested_end", requestedEnd, "size", c.Size(), "error", err)
	}
}

// Window clips [start, end) to the bounds of articles.
func Window(articles []Article, start, end int) []Article {
	if start < 0 {
		start = 0
	}
	if end > len(articles) {
		end = len(articles)
	}
	if start >= end {
		return []Article{}
	}
	return articles[start:end]
}
