package provider

import (
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/news-comb/app/catalog"
)

func filterTestArticles() []catalog.Article {
	return []catalog.Article{
		{ID: "1", Title: "Breaking News: Important Update", Category: "World", Source: "Wire"},
		{ID: "2", Title: "Sports Update", Category: "Sports", Source: "Wire"},
		{ID: "3", Title: "Weather Report", Category: "Weather", Source: "Sponsored Content"},
	}
}

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	result := filterer.Run(filterTestArticles(), &Config{})

	if len(result) != 3 {
		t.Errorf("Expected 3 articles, got %d", len(result))
	}
}

func TestFilterer_TitleInclude(t *testing.T) {
	filterer := NewFilterer()

	result := filterer.Run(filterTestArticles(), &Config{
		Filters: []ConfigFilter{{Field: "title", Includes: []string{"NEWS", "update"}}},
	})

	if len(result) != 2 || result[0].ID != "1" || result[1].ID != "2" {
		t.Errorf("Expected articles 1 and 2, got %v", result)
	}
}

func TestFilterer_ExcludeWinsOverInclude(t *testing.T) {
	filterer := NewFilterer()

	result := filterer.Run(filterTestArticles(), &Config{
		Filters: []ConfigFilter{
			{Field: "title", Includes: []string{"update", "report"}},
			{Field: "category", Excludes: []string{"sports"}},
			{Field: "source", Excludes: []string{"sponsored"}},
		},
	})

	if len(result) != 1 || result[0].ID != "1" {
		t.Errorf("Expected only article 1, got %v", result)
	}
}

func TestValidateFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters []ConfigFilter
		wantErr string
	}{
		{"valid", []ConfigFilter{{Field: "title", Excludes: []string{"ad"}}}, ""},
		{"unknown field", []ConfigFilter{{Field: "content", Excludes: []string{"ad"}}}, "unknown field"},
		{"empty rule", []ConfigFilter{{Field: "title"}}, "includes or excludes required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFilters(tt.filters)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigCacheRejectsInvalidFilters(t *testing.T) {
	tempDir := t.TempDir()

	writeProviderConfig(t, tempDir, "filtered.yml", `
type: "rss"
url: "https://example.com/feed.xml"
filters:
  - field: "body"
    excludes: ["ad"]
`)

	configCache := NewConfigCache(tempDir, DefaultRegistry(), 10*time.Second)
	if err := configCache.Run(); err == nil {
		t.Error("Expected error for unknown filter field")
	}
}
