package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lysyi3m/news-comb/app/catalog"
)

const (
	DefaultAuthor   = "Unknown"
	DefaultCategory = "General"
)

var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrMalformedArticle    = errors.New("malformed article")
	ErrMalformedPayload    = errors.New("malformed provider payload")
)

// HTTPError reports a non-2xx provider response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d from %s", e.StatusCode, e.URL)
}

func (e *HTTPError) Unwrap() error {
	return ErrProviderUnavailable
}

// Adapter knows one provider's request shape and response envelope.
type Adapter interface {
	Type() string
	BuildRequest(ctx context.Context, config *Config) (*http.Request, error)
	// Parse maps a raw payload onto articles. Items missing required
	// fields are skipped; an error means the whole payload is unusable.
	Parse(data []byte, config *Config) ([]catalog.Article, error)
}

type Config struct {
	Name      string         // Derived from filename (without .yml extension)
	Type      string         `yaml:"type"`
	URL       string         `yaml:"url"`
	APIKey    string         `yaml:"api_key"`
	APIKeyEnv string         `yaml:"api_key_env"`
	Settings  ConfigSettings `yaml:"settings"`
	Fields    FieldMapping   `yaml:"fields"`
	Filters   []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Timeout     int    `yaml:"timeout"`      // seconds
	MaxItems    int    `yaml:"max_items"`
	ProbeImages *bool  `yaml:"probe_images"` // defaults to true
	Category    string `yaml:"category"`     // used when items carry no category
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// FieldMapping names where each canonical field lives in a JSON item.
// Nested fields use dotted paths, e.g. "source.name".
type FieldMapping struct {
	Items       string `yaml:"items"`
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	Author      string `yaml:"author"`
	Image       string `yaml:"image"`
	PublishedAt string `yaml:"published_at"`
	Category    string `yaml:"category"`
}

func (s *ConfigSettings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

func (s *ConfigSettings) ShouldProbeImages() bool {
	return s.ProbeImages == nil || *s.ProbeImages
}
