package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/news-comb/app/catalog"
)

var filterFields = map[string]func(catalog.Article) string{
	"title":       func(a catalog.Article) string { return a.Title },
	"description": func(a catalog.Article) string { return a.Description },
	"author":      func(a catalog.Article) string { return a.Author },
	"url":         func(a catalog.Article) string { return a.URL },
	"category":    func(a catalog.Article) string { return a.Category },
	"source":      func(a catalog.Article) string { return a.Source },
}

// Filterer drops articles rejected by a provider's include/exclude rules.
// Matching is a case-insensitive substring test.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

func (f *Filterer) Run(articles []catalog.Article, providerConfig *Config) []catalog.Article {
	if len(providerConfig.Filters) == 0 {
		return articles
	}

	kept := make([]catalog.Article, 0, len(articles))
	for _, article := range articles {
		if rejected, reason := f.applyFilters(article, providerConfig.Filters); rejected {
			slog.Debug("Article filtered", "provider", providerConfig.Name, "title", article.Title, "reason", reason)
			continue
		}
		kept = append(kept, article)
	}

	return kept
}

func (f *Filterer) applyFilters(article catalog.Article, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := strings.ToLower(filterFields[filter.Field](article))

		for _, exclude := range filter.Excludes {
			if strings.Contains(value, strings.ToLower(exclude)) {
				return true, fmt.Sprintf("excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) == 0 {
			continue
		}

		matched := false
		for _, include := range filter.Includes {
			if strings.Contains(value, strings.ToLower(include)) {
				matched = true
				break
			}
		}
		if !matched {
			return true, fmt.Sprintf("excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
		}
	}

	return false, ""
}

func validateFilters(filters []ConfigFilter) error {
	for i, filter := range filters {
		if _, ok := filterFields[filter.Field]; !ok {
			return fmt.Errorf("filter %d: unknown field %q", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter %d: includes or excludes required", i)
		}
	}
	return nil
}
