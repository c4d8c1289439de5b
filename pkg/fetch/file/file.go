package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/statutelab/lexgraph/pkg/canon"
	"github.com/statutelab/lexgraph/pkg/fetch"
	"github.com/statutelab/lexgraph/pkg/fetch/pdf"
)

// FileFetcher reads local documents. PDF files are run through pdftotext;
// everything else is treated as plain text.
type FileFetcher struct{}

var _ fetch.Fetcher = (*FileFetcher)(nil)

// NewFileFetcher creates a FileFetcher.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Fetch reads the file at the locator path and returns its canonical text.
func (f *FileFetcher) Fetch(ctx context.Context, locator string) (string, error) {
	data, err := os.ReadFile(locator)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if strings.HasSuffix(strings.ToLower(locator), ".pdf") {
		text, err := pdf.Parse(ctx, data)
		if err != nil {
			return "", err
		}
		return canon.Canonicalize(text), nil
	}

	return canon.Canonicalize(string(data)), nil
}
