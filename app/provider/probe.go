package provider

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/news-comb/app/catalog"
)

const probeConcurrency = 8

// ImageProber checks that image urls answer a HEAD request with a 2xx status.
type ImageProber struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

func NewImageProber(client *http.Client, timeout time.Duration, userAgent string) *ImageProber {
	return &ImageProber{
		client:    client,
		timeout:   timeout,
		userAgent: userAgent,
	}
}

func (p *ImageProber) Reachable(ctx context.Context, imageURL string) bool {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodHead, imageURL, nil)
	if err != nil {
		return false
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Debug("Image probe failed", "url", imageURL, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Verify blanks the image of every article whose image is unreachable.
// Articles for which skip returns true are left untouched.
func (p *ImageProber) Verify(ctx context.Context, articles []catalog.Article, skip func(id string) bool) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)

	for i := range articles {
		if articles[i].ImageURL == "" || (skip != nil && skip(articles[i].ID)) {
			continue
		}
		g.Go(func() error {
			if !p.Reachable(gctx, articles[i].ImageURL) {
				articles[i].ImageURL = ""
			}
			return nil
		})
	}

	_ = g.Wait()
}
