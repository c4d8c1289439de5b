package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"

	"github.com/statutelab/lexgraph/pkg/canon"
	"github.com/statutelab/lexgraph/pkg/fetch"
	"github.com/statutelab/lexgraph/pkg/fetch/pdf"
)

// WebFetcher fetches URLs and extracts readable canonical text. HTML pages go
// through readability to strip navigation and boilerplate; PDF responses go
// through pdftotext. Identical URLs fetched concurrently are coalesced with
// singleflight and served from an in-process cache afterwards.
type WebFetcher struct {
	client *http.Client

	cache   map[string]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

var _ fetch.Fetcher = (*WebFetcher)(nil)

// NewWebFetcher creates a WebFetcher using the default HTTP client.
func NewWebFetcher() *WebFetcher {
	return &WebFetcher{
		client: http.DefaultClient,
		cache:  make(map[string]string),
	}
}

// Fetch retrieves the locator and returns its canonical text.
func (f *WebFetcher) Fetch(ctx context.Context, locator string) (string, error) {
	f.cacheMu.RLock()
	if cached, ok := f.cache[locator]; ok {
		f.cacheMu.RUnlock()
		return cached, nil
	}
	f.cacheMu.RUnlock()

	result, err, _ := f.group.Do(locator, func() (any, error) {
		f.cacheMu.RLock()
		if cached, ok := f.cache[locator]; ok {
			f.cacheMu.RUnlock()
			return cached, nil
		}
		f.cacheMu.RUnlock()

		text, err := f.fetch(ctx, locator)
		if err != nil {
			return "", err
		}

		f.cacheMu.Lock()
		f.cache[locator] = text
		f.cacheMu.Unlock()

		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (f *WebFetcher) fetch(ctx context.Context, locator string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, locator)
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "text/html"):
		u, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("failed to parse url: %w", err)
		}
		article, err := readability.FromReader(resp.Body, u)
		if err != nil {
			return "", fmt.Errorf("failed to parse html: %w", err)
		}
		var builder strings.Builder
		if err := article.RenderText(&builder); err != nil {
			return "", fmt.Errorf("failed to render article text: %w", err)
		}
		return canon.Canonicalize(builder.String()), nil

	case strings.Contains(contentType, "application/pdf") || strings.HasSuffix(strings.ToLower(locator), ".pdf"):
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf body: %w", err)
		}
		text, err := pdf.Parse(ctx, data)
		if err != nil {
			return "", err
		}
		return canon.Canonicalize(text), nil

	default:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read body: %w", err)
		}
		return canon.Canonicalize(string(data)), nil
	}
}
