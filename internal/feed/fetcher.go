package feed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/nitesh/news_service/pkg/models"
)

const userAgent = "news_service/1.0 (+feed ingestion)"

var ErrInvalidURL = errors.New("invalid feed URL")

// Fetcher retrieves and parses RSS/Atom/JSON feeds.
// It performs no retries.
type Fetcher struct {
	parser  *gofeed.Parser
	limiter *HostRateLimiter
}

// NewFetcher builds a fetcher. A zero timeout leaves the request unbounded;
// limiter may be nil.
func NewFetcher(timeout time.Duration, limiter *HostRateLimiter) *Fetcher {
	fp := gofeed.NewParser()
	fp.Client = newHTTPClient(timeout)
	fp.UserAgent = userAgent
	return &Fetcher{parser: fp, limiter: limiter}
}

func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]models.RawItem, error) {
	if err := validateFeedURL(feedURL); err != nil {
		return nil, err
	}

	if f.limiter != nil {
		if err := f.limiter.WaitForHost(ctx, feedURL); err != nil {
			return nil, fmt.Errorf("rate limiting failed: %w", err)
		}
	}

	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	return ConvertItems(parsed.Items), nil
}

// ConvertItems maps parsed feed entries to RawItems, keeping the feed order.
func ConvertItems(items []*gofeed.Item) []models.RawItem {
	out := make([]models.RawItem, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		content := it.Content
		if content == "" {
			content = it.Description
		}
		out = append(out, models.RawItem{
			Title:          it.Title,
			Link:           it.Link,
			IsoDate:        isoDate(it),
			Content:        content,
			ContentSnippet: Snippet(content),
		})
	}
	return out
}

func isoDate(it *gofeed.Item) string {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed.UTC().Format(time.RFC3339)
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

func validateFeedURL(feedURL string) error {
	u, err := url.ParseRequestURI(feedURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 30 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
