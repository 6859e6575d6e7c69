package serving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/news-comb/app/catalog"
	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/ranking"
)

var ErrInvalidPagination = errors.New("invalid pagination")

// Service answers page requests and records interactions against one catalog.
type Service struct {
	catalog     *catalog.Catalog
	ranker      *ranking.Ranker
	store       database.InteractionStore
	maxPageSize int
	now         func() time.Time
}

func NewService(c *catalog.Catalog, ranker *ranking.Ranker, store database.InteractionStore, maxPageSize int) *Service {
	return &Service{
		catalog:     c,
		ranker:      ranker,
		store:       store,
		maxPageSize: maxPageSize,
		now:         time.Now,
	}
}

// GetPage returns page (1-based) of pageSize articles. With a userID the
// catalog is ranked for that user first; without one it is served in
// catalog order. A short or empty page means the catalog is exhausted.
func (s *Service) GetPage(ctx context.Context, userID string, page, pageSize int) ([]catalog.Article, error) {
	start, end, err := s.window(page, pageSize)
	if err != nil {
		return nil, err
	}

	s.catalog.RefreshIfNeeded(ctx, end)

	articles := s.catalog.Snapshot()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return catalog.Window(articles, start, end), nil
	}

	indices, err := s.ranker.RankSnapshot(ctx, userID, articles)
	if err != nil {
		slog.Warn("Ranking failed, serving catalog order", "user_id", userID, "error", err)
		return catalog.Window(articles, start, end), nil
	}

	if start >= len(indices) {
		return []catalog.Article{}, nil
	}
	if end > len(indices) {
		end = len(indices)
	}

	result := make([]catalog.Article, 0, end-start)
	for _, i := range indices[start:end] {
		result = append(result, articles[i])
	}

	return result, nil
}

// RecordInteraction resolves articleID in the catalog and stores the
// like/dislike under the article's category.
func (s *Service) RecordInteraction(ctx context.Context, userID, articleID string, kind database.InteractionKind) (database.InteractionEvent, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return database.InteractionEvent{}, fmt.Errorf("%w: user_id is required", database.ErrInvalidInteraction)
	}

	article, err := s.catalog.Find(articleID)
	if err != nil {
		return database.InteractionEvent{}, err
	}

	event := database.InteractionEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		ArticleID: article.ID,
		Kind:      kind,
		Category:  article.Category,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.RecordInteraction(ctx, event); err != nil {
		return database.InteractionEvent{}, fmt.Errorf("failed to record %s for %s: %w", kind, articleID, err)
	}

	slog.Debug("Interaction recorded", "user_id", userID, "article_id", article.ID, "interaction", string(kind), "category", article.Category)

	return event, nil
}

func (s *Service) Preferences(ctx context.Context, userID string) (map[string]int, error) {
	return s.store.GetPreferences(ctx, userID)
}

func (s *Service) window(page, pageSize int) (int, int, error) {
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidPagination, page)
	}
	if pageSize < 1 {
		return 0, 0, fmt.Errorf("%w: page_size must be >= 1, got %d", ErrInvalidPagination, pageSize)
	}
	if s.maxPageSize > 0 && pageSize > s.maxPageSize {
		return 0, 0, fmt.Errorf("%w: page_size must be <= %d, got %d", ErrInvalidPagination, s.maxPageSize, pageSize)
	}
	if page > math.MaxInt/pageSize {
		return 0, 0, fmt.Errorf("%w: page %d is out of range", ErrInvalidPagination, page)
	}

	end := page * pageSize
	return end - pageSize, end, nil
}
