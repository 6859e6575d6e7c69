package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/news-comb/app/catalog"
)

const maxPayloadSize = 10 << 20

var _ catalog.Ingester = (*Pipeline)(nil)

// Pipeline runs ingestion cycles across every enabled provider.
type Pipeline struct {
	configCache *ConfigCache
	registry    *Registry
	httpClient  *http.Client
	prober      *ImageProber
	filterer    *Filterer
	userAgent   string
}

func NewPipeline(configCache *ConfigCache, registry *Registry, httpClient *http.Client, prober *ImageProber, userAgent string) *Pipeline {
	return &Pipeline{
		configCache: configCache,
		registry:    registry,
		httpClient:  httpClient,
		prober:      prober,
		filterer:    NewFilterer(),
		userAgent:   userAgent,
	}
}

// Ingest fetches all enabled providers concurrently and returns their
// articles in provider-name order. A failing provider is logged and
// skipped; an error is returned only when every provider failed.
func (p *Pipeline) Ingest(ctx context.Context, known func(id string) bool) ([]catalog.Article, error) {
	configs := p.configCache.GetEnabledConfigs()
	if len(configs) == 0 {
		slog.Debug("No enabled provider configurations found")
		return nil, nil
	}

	results := make([][]catalog.Article, len(configs))
	errs := make([]error, len(configs))

	var g errgroup.Group
	for i, config := range configs {
		g.Go(func() error {
			started := time.Now()
			articles, err := p.FetchProvider(ctx, config, known)
			if err != nil {
				slog.Warn("Provider skipped", "provider", config.Name, "type", config.Type, "error", err)
				errs[i] = err
				return nil
			}

			slog.Info("Provider fetched",
				"provider", config.Name,
				"articles", len(articles),
				"duration", time.Since(started))
			results[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	var articles []catalog.Article
	failed := 0
	for i := range configs {
		if errs[i] != nil {
			failed++
			continue
		}
		articles = append(articles, results[i]...)
	}

	if failed == len(configs) {
		return nil, fmt.Errorf("all %d providers failed: %w", failed, errors.Join(errs...))
	}

	return articles, nil
}

// FetchProvider fetches and normalizes a single provider's articles.
func (p *Pipeline) FetchProvider(ctx context.Context, config *Config, known func(id string) bool) ([]catalog.Article, error) {
	adapter, err := p.registry.Resolve(config.Type)
	if err != nil {
		return nil, err
	}

	data, err := p.fetch(ctx, adapter, config)
	if err != nil {
		return nil, err
	}

	articles, err := adapter.Parse(data, config)
	if err != nil {
		return nil, err
	}

	articles = p.filterer.Run(articles, config)

	if config.Settings.MaxItems > 0 && len(articles) > config.Settings.MaxItems {
		articles = articles[:config.Settings.MaxItems]
	}

	if p.prober != nil && config.Settings.ShouldProbeImages() {
		p.prober.Verify(ctx, articles, known)
	}

	return articles, nil
}

func (p *Pipeline) fetch(ctx context.Context, adapter Adapter, config *Config) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, config.Settings.GetTimeout())
	defer cancel()

	req, err := adapter.BuildRequest(timeoutCtx, config)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// url.Error repeats the request url, which may carry an api key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, redactedURL(config.URL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: redactedURL(config.URL)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrProviderUnavailable, err)
	}

	return data, nil
}
