package manifest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/statutelab/lexgraph/pkg/logger"

	"github.com/go-playground/validator"
)

// Entry is one unit of ingestion work: a locator plus optional pre-known
// metadata. Entries are read-only once parsed.
type Entry struct {
	Locator      string       `json:"locator"`
	Title        string       `json:"title,omitempty"`
	Jurisdiction string       `json:"jurisdiction,omitempty"`
	Authority    Authority    `json:"authority,omitempty"`
	DocumentType DocumentType `json:"document_type,omitempty"`
	Organization string       `json:"organization,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

// rawEntry mirrors the NDJSON wire format, where classification fields are
// free-form strings and tags may be a list or a comma-separated string.
type rawEntry struct {
	Locator      string  `json:"locator" validate:"required"`
	Title        string  `json:"title"`
	Jurisdiction string  `json:"jurisdiction"`
	Authority    string  `json:"authority"`
	DocumentType string  `json:"document_type"`
	Organization string  `json:"organization"`
	Tags         tagList `json:"tags"`
	Notes        string  `json:"notes"`
}

type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = normalizeTags(list)
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err == nil {
		*t = normalizeTags(strings.Split(joined, ","))
		return nil
	}
	return fmt.Errorf("tags must be a list or a comma-separated string")
}

func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

var validate = validator.New()

// Read parses newline-delimited JSON manifest entries. Malformed or invalid
// lines are skipped with a warning; they never fail the whole manifest.
func Read(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []Entry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var raw rawEntry
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			logger.Warn("Skipping malformed manifest line", "line", lineNo, "err", err)
			continue
		}
		if err := validate.Struct(raw); err != nil {
			logger.Warn("Skipping invalid manifest entry", "line", lineNo, "err", err)
			continue
		}

		entries = append(entries, Entry{
			Locator:      raw.Locator,
			Title:        raw.Title,
			Jurisdiction: raw.Jurisdiction,
			Authority:    ParseAuthority(raw.Authority),
			DocumentType: ParseDocumentType(raw.DocumentType),
			Organization: raw.Organization,
			Tags:         raw.Tags,
			Notes:        raw.Notes,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return entries, nil
}

// ReadFile opens and parses a manifest file. A missing or unreadable file is
// a fatal setup error, unlike malformed individual lines.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return Read(f)
}
