package catalog

import (
	"context"
	"errors"
)

var ErrArticleNotFound = errors.New("article not found")

// Article is the normalized shape every provider adapter produces.
// Articles are never modified after they enter the catalog.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	ImageURL    string `json:"image"`
	PublishedAt string `json:"published"` // raw provider timestamp
	Category    string `json:"category"`
	Source      string `json:"source"`
}

// Ingester runs one full ingestion cycle across all providers.
// known reports whether an article id is already cataloged so the
// ingester can skip work (image probes) for articles that will be dropped.
type Ingester interface {
	Ingest(ctx context.Context, known func(id string) bool) ([]Article, error)
}
