package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/statutelab/lexgraph/pkg/common"
)

// Fetcher retrieves the canonical text behind one locator. Implementations
// own their transport details; the caller only sees text or failure.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (string, error)
}

// Classify derives the source kind from the locator's shape. Declared
// metadata always wins over this; it only fills the gap when the manifest
// says nothing.
func Classify(locator string) common.SourceKind {
	lower := strings.ToLower(locator)
	if strings.HasSuffix(lower, ".pdf") {
		return common.SourceKindPDF
	}
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return common.SourceKindWeb
	}
	return common.SourceKindText
}

// Router dispatches a locator to the web or file fetcher by scheme.
type Router struct {
	web  Fetcher
	file Fetcher
}

// NewRouter creates a Router over the given fetchers.
func NewRouter(web, file Fetcher) *Router {
	return &Router{
		web:  web,
		file: file,
	}
}

// Fetch routes http/https locators to the web fetcher and everything else to
// the file fetcher.
func (r *Router) Fetch(ctx context.Context, locator string) (string, error) {
	lower := strings.ToLower(locator)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if r.web == nil {
			return "", fmt.Errorf("no web fetcher configured for %s", locator)
		}
		return r.web.Fetch(ctx, locator)
	}
	if r.file == nil {
		return "", fmt.Errorf("no file fetcher configured for %s", locator)
	}
	return r.file.Fetch(ctx, locator)
}
