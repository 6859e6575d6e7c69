package ranking

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/lysyi3m/news-comb/app/catalog"
)

// PreferenceReader reads a user's category scores.
type PreferenceReader interface {
	GetPreferences(ctx context.Context, userID string) (map[string]int, error)
}

// Ranker orders the whole catalog for one user. Nothing is cached between
// calls; every call sorts the current snapshot from scratch.
type Ranker struct {
	catalog     *catalog.Catalog
	preferences PreferenceReader
}

func NewRanker(c *catalog.Catalog, preferences PreferenceReader) *Ranker {
	return &Ranker{
		catalog:     c,
		preferences: preferences,
	}
}

// Rank returns a permutation of the current catalog indices for userID.
func (r *Ranker) Rank(ctx context.Context, userID string) ([]int, error) {
	return r.RankSnapshot(ctx, userID, r.catalog.Snapshot())
}

// RankSnapshot ranks a snapshot the caller already holds, so the page it
// slices afterwards is cut from the same articles that were ranked.
func (r *Ranker) RankSnapshot(ctx context.Context, userID string, articles []catalog.Article) ([]int, error) {
	if userID == "" {
		return Order(articles, nil), nil
	}

	preferences, err := r.preferences.GetPreferences(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences for %s: %w", userID, err)
	}

	return Order(articles, preferences), nil
}

// Order scores every article by the preference of its category (0 when
// absent) and returns indices by descending score. Equal scores keep
// catalog order. Without preferences the result is the identity permutation.
func Order(articles []catalog.Article, preferences map[string]int) []int {
	indices := make([]int, len(articles))
	for i := range indices {
		indices[i] = i
	}

	if len(preferences) == 0 {
		return indices
	}

	scores := make([]int, len(articles))
	for i, article := range articles {
		scores[i] = preferences[article.Category]
	}

	slices.SortStableFunc(indices, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	return indices
}
