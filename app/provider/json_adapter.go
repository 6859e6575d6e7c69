package provider

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lysyi3m/news-comb/app/catalog"
)

// JSONAdapter handles providers that answer with a JSON document holding
// an array of article objects. Field names come from a FieldMapping that
// provider configs may override.
type JSONAdapter struct {
	providerType string
	fields       FieldMapping
	authorize    func(req *http.Request, apiKey string)
}

// NewCurrentsAdapter handles the Currents API latest-news envelope:
// {"news": [{"id", "title", "description", "url", "author", "image", "category": [...], "published"}]}.
func NewCurrentsAdapter() *JSONAdapter {
	return &JSONAdapter{
		providerType: "currents",
		fields: FieldMapping{
			Items:       "news",
			ID:          "id",
			Title:       "title",
			Description: "description",
			URL:         "url",
			Author:      "author",
			Image:       "image",
			PublishedAt: "published",
			Category:    "category",
		},
		authorize: queryParamAuth("apiKey"),
	}
}

// NewNewsAPIAdapter handles the NewsAPI envelope:
// {"articles": [{"source": {...}, "author", "title", "description", "url", "urlToImage", "publishedAt"}]}.
// NewsAPI articles carry no id, so ids are always derived.
func NewNewsAPIAdapter() *JSONAdapter {
	return &JSONAdapter{
		providerType: "newsapi",
		fields: FieldMapping{
			Items:       "articles",
			Title:       "title",
			Description: "description",
			URL:         "url",
			Author:      "author",
			Image:       "urlToImage",
			PublishedAt: "publishedAt",
			Category:    "category",
		},
		authorize: headerAuth("X-Api-Key"),
	}
}

func (a *JSONAdapter) Type() string {
	return a.providerType
}

func (a *JSONAdapter) BuildRequest(ctx context.Context, config *Config) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if config.APIKey != "" && a.authorize != nil {
		a.authorize(req, config.APIKey)
	}

	return req, nil
}

func (a *JSONAdapter) Parse(data []byte, config *Config) ([]catalog.Article, error) {
	fields := a.mergedFields(config.Fields)

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var payload interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, config.Name, err)
	}

	rawItems := payload
	if fields.Items != "" {
		rawItems = lookup(payload, fields.Items)
	}

	items, ok := rawItems.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s: no article array at %q", ErrMalformedPayload, config.Name, fields.Items)
	}

	articles := make([]catalog.Article, 0, len(items))
	for i, item := range items {
		article, err := a.normalizeItem(item, fields, config)
		if err != nil {
			slog.Debug("Skipping provider item", "provider", config.Name, "index", i, "error", err)
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func (a *JSONAdapter) normalizeItem(item interface{}, fields FieldMapping, config *Config) (catalog.Article, error) {
	if _, ok := item.(map[string]interface{}); !ok {
		return catalog.Article{}, fmt.Errorf("%w: item is not an object", ErrMalformedArticle)
	}

	title := CleanText(stringAt(item, fields.Title))
	link := strings.TrimSpace(stringAt(item, fields.URL))

	if title == "" {
		return catalog.Article{}, fmt.Errorf("%w: missing title", ErrMalformedArticle)
	}
	if link == "" {
		return catalog.Article{}, fmt.Errorf("%w: missing url", ErrMalformedArticle)
	}

	id := ""
	if fields.ID != "" {
		id = strings.TrimSpace(stringAt(item, fields.ID))
	}

	return catalog.Article{
		ID:          cmp.Or(id, ArticleID(title, link)),
		Title:       title,
		Description: CleanText(stringAt(item, fields.Description)),
		URL:         link,
		Author:      cmp.Or(collapseSpaces(stringAt(item, fields.Author)), DefaultAuthor),
		ImageURL:    strings.TrimSpace(stringAt(item, fields.Image)),
		PublishedAt: strings.TrimSpace(stringAt(item, fields.PublishedAt)),
		Category:    cmp.Or(NormalizeCategory(stringAt(item, fields.Category)), NormalizeCategory(config.Settings.Category), DefaultCategory),
		Source:      config.Name,
	}, nil
}

func (a *JSONAdapter) mergedFields(overrides FieldMapping) FieldMapping {
	return FieldMapping{
		Items:       cmp.Or(overrides.Items, a.fields.Items),
		ID:          cmp.Or(overrides.ID, a.fields.ID),
		Title:       cmp.Or(overrides.Title, a.fields.Title),
		Description: cmp.Or(overrides.Description, a.fields.Description),
		URL:         cmp.Or(overrides.URL, a.fields.URL),
		Author:      cmp.Or(overrides.Author, a.fields.Author),
		Image:       cmp.Or(overrides.Image, a.fields.Image),
		PublishedAt: cmp.Or(overrides.PublishedAt, a.fields.PublishedAt),
		Category:    cmp.Or(overrides.Category, a.fields.Category),
	}
}

func queryParamAuth(param string) func(req *http.Request, apiKey string) {
	return func(req *http.Request, apiKey string) {
		query := req.URL.Query()
		query.Set(param, apiKey)
		req.URL.RawQuery = query.Encode()
	}
}

func headerAuth(header string) func(req *http.Request, apiKey string) {
	return func(req *http.Request, apiKey string) {
		req.Header.Set(header, apiKey)
	}
}

// lookup follows a dotted path through nested JSON objects.
func lookup(value interface{}, path string) interface{} {
	if path == "" {
		return nil
	}
	for _, key := range strings.Split(path, ".") {
		object, ok := value.(map[string]interface{})
		if !ok {
			return nil
		}
		value = object[key]
	}
	return value
}

// stringAt renders the value at path as a string. Lists yield their first
// element, which is how providers that send several categories are handled.
func stringAt(item interface{}, path string) string {
	return stringValue(lookup(item, path))
}

func stringValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case []interface{}:
		if len(v) == 0 {
			return ""
		}
		return stringValue(v[0])
	default:
		return ""
	}
}

// redactedURL drops the query string, which may carry credentials.
func redactedURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
