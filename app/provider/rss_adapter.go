package provider

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/news-comb/app/catalog"
)

// RSSAdapter handles RSS and Atom feeds. Feed GUIDs are frequently reused
// permalinks, so ids are always derived from title and link.
type RSSAdapter struct{}

func NewRSSAdapter() *RSSAdapter {
	return &RSSAdapter{}
}

func (a *RSSAdapter) Type() string {
	return "rss"
}

func (a *RSSAdapter) BuildRequest(ctx context.Context, config *Config) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	return req, nil
}

func (a *RSSAdapter) Parse(data []byte, config *Config) ([]catalog.Article, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, config.Name, err)
	}

	articles := make([]catalog.Article, 0, len(feed.Items))
	for i, item := range feed.Items {
		article, err := a.normalizeItem(item, config)
		if err != nil {
			slog.Debug("Skipping feed item", "provider", config.Name, "index", i, "error", err)
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func (a *RSSAdapter) normalizeItem(item *gofeed.Item, config *Config) (catalog.Article, error) {
	if item == nil {
		return catalog.Article{}, fmt.Errorf("%w: empty item", ErrMalformedArticle)
	}

	title := CleanText(item.Title)
	link := strings.TrimSpace(item.Link)

	if title == "" {
		return catalog.Article{}, fmt.Errorf("%w: missing title", ErrMalformedArticle)
	}
	if link == "" {
		return catalog.Article{}, fmt.Errorf("%w: missing link", ErrMalformedArticle)
	}

	category := ""
	if len(item.Categories) > 0 {
		category = NormalizeCategory(item.Categories[0])
	}

	return catalog.Article{
		ID:          ArticleID(title, link),
		Title:       title,
		Description: CleanText(cmp.Or(item.Description, item.Content)),
		URL:         link,
		Author:      cmp.Or(a.extractAuthor(item), DefaultAuthor),
		ImageURL:    a.extractImage(item),
		PublishedAt: strings.TrimSpace(cmp.Or(item.Published, item.Updated)),
		Category:    cmp.Or(category, NormalizeCategory(config.Settings.Category), DefaultCategory),
		Source:      config.Name,
	}, nil
}

func (a *RSSAdapter) extractAuthor(item *gofeed.Item) string {
	if item.Author != nil {
		if name := collapseSpaces(cmp.Or(item.Author.Name, item.Author.Email)); name != "" {
			return name
		}
	}
	for _, author := range item.Authors {
		if author != nil {
			if name := collapseSpaces(cmp.Or(author.Name, author.Email)); name != "" {
				return name
			}
		}
	}
	return ""
}

func (a *RSSAdapter) extractImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return strings.TrimSpace(item.Image.URL)
	}
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") {
			return strings.TrimSpace(enclosure.URL)
		}
	}
	return ""
}
