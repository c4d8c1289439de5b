package ingest

import (
	"net/url"
	"path"
	"strings"

	"github.com/statutelab/lexgraph/pkg/common"
	"github.com/statutelab/lexgraph/pkg/fetch"
	"github.com/statutelab/lexgraph/pkg/manifest"
)

// resolveSource builds the Source record for an entry, merging declared
// metadata with pattern-derived defaults. Declared fields always win; the
// defaults only fill what the manifest left empty.
func resolveSource(entry manifest.Entry) common.Source {
	src := common.Source{
		Locator:      entry.Locator,
		Title:        entry.Title,
		Jurisdiction: entry.Jurisdiction,
		Kind:         fetch.Classify(entry.Locator),
	}
	if entry.Authority != manifest.AuthorityUnknown {
		src.Authority = entry.Authority.String()
	}
	if src.Title == "" {
		src.Title = titleFromLocator(entry.Locator)
	}
	return src
}

// titleFromLocator derives a human-readable fallback title from the last path
// segment of the locator.
func titleFromLocator(locator string) string {
	p := locator
	if u, err := url.Parse(locator); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(base))
}
