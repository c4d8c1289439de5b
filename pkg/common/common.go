package common

import (
	"fmt"
	"time"

	"github.com/statutelab/lexgraph/pkg/canon"
)

// SourceKind classifies the physical origin of a source document.
type SourceKind string

const (
	SourceKindWeb  SourceKind = "web"
	SourceKindPDF  SourceKind = "pdf"
	SourceKindText SourceKind = "text"
)

// Source represents one physical origin of text: a fetched web page, PDF, or
// pasted document. Sources are keyed by the content digest of their canonical
// text, so the same content fetched from two locators maps to one record.
//
// A source is created once per unique digest and only ever updated to fill
// optional fields (title, jurisdiction) that were previously missing.
type Source struct {
	Key          string     `json:"key"`
	Locator      string     `json:"locator"`
	Kind         SourceKind `json:"kind"`
	Title        string     `json:"title"`
	Jurisdiction string     `json:"jurisdiction"`
	Authority    string     `json:"authority"`
	Digest       string     `json:"digest"`
	FetchedAt    time.Time  `json:"fetched_at"`
}

// Quote is a delimited span of a source's canonical text that backs one or
// more extracted facts. Its key is derived from (source key, start, end), so
// re-processing the same source never creates duplicate quotes.
type Quote struct {
	Key       string `json:"key"`
	SourceKey string `json:"source_key"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Text      string `json:"text"`
}

// Entity is a domain fact node: a law, remedy, outcome, damages figure,
// organization, or similar. Entities carry a stable identifier assigned at
// extraction time; upserting an entity merges new attributes into the
// existing record rather than overwriting it.
type Entity struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Jurisdiction string            `json:"jurisdiction"`
	Attrs        map[string]string `json:"attrs,omitempty"`
}

// Edge is a directed, typed relationship between two entities. Edges are not
// deduplicated by (from, to, type): two edges of the same type between the
// same pair may coexist with different provenance.
type Edge struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	Weight     float64           `json:"weight"`
	Conditions map[string]string `json:"conditions,omitempty"`
}

// Provenance links one subject (an entity or an edge) to the source and,
// optionally, the quote that justifies it. Its derived key makes the same
// claim-to-source link impossible to record twice.
type Provenance struct {
	Key       string `json:"key"`
	SubjectID string `json:"subject_id"`
	SourceKey string `json:"source_key"`
	QuoteKey  string `json:"quote_key,omitempty"`
}

// Fact is one extracted claim: either an entity or an edge, optionally backed
// by a verbatim quote with its character offsets in the source's canonical
// text. Start and End are -1 when no span is known.
type Fact struct {
	Entity *Entity `json:"entity,omitempty"`
	Edge   *Edge   `json:"edge,omitempty"`
	Quote  string  `json:"quote,omitempty"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

// Extraction is the structured result of running the language model over one
// source's canonical text. An extraction with zero facts is a valid result,
// distinct from an extraction failure.
type Extraction struct {
	Facts []Fact `json:"facts"`
}

// SubjectID returns the stable identifier of the fact's subject, or "" when
// the fact carries neither an entity nor an edge.
func (f Fact) SubjectID() string {
	if f.Entity != nil {
		return f.Entity.ID
	}
	if f.Edge != nil {
		return f.Edge.ID
	}
	return ""
}

// QuoteKey derives the deterministic key for a quote span within a source.
func QuoteKey(sourceKey string, start, end int) string {
	return canon.Digest(fmt.Sprintf("quote:%s:%d:%d", sourceKey, start, end))
}

// ProvenanceKey derives the deterministic key linking a subject to a source
// and optional quote. An empty quoteKey means the link is source-level only.
func ProvenanceKey(subjectID, sourceKey, quoteKey string) string {
	return canon.Digest(fmt.Sprintf("prov:%s:%s:%s", subjectID, sourceKey, quoteKey))
}
