package graph

import (
	"context"
	"fmt"

	"github.com/statutelab/lexgraph/pkg/common"
	"github.com/statutelab/lexgraph/pkg/logger"
	"github.com/statutelab/lexgraph/pkg/store"
)

// Normalizer maps one extraction result into the five normalized collections.
// Every write is an upsert keyed by a deterministic identifier, so applying
// the same extraction twice against the same graph adds zero rows.
type Normalizer struct {
	store store.GraphStore
}

// NewNormalizer creates a Normalizer writing to the given graph store.
func NewNormalizer(graphStore store.GraphStore) *Normalizer {
	return &Normalizer{
		store: graphStore,
	}
}

// FactError records the failure of a single fact within a batch. One fact
// failing never aborts the remaining facts of the same extraction.
type FactError struct {
	Index int
	Err   error
}

func (e FactError) Error() string {
	return fmt.Sprintf("fact %d: %v", e.Index, e.Err)
}

func (e FactError) Unwrap() error {
	return e.Err
}

// Result summarizes what one Apply call wrote.
type Result struct {
	SourceOutcome   store.Outcome
	EntitiesAdded   int
	EdgesAdded      int
	QuotesAdded     int
	ProvenanceAdded int
	Errors          []FactError
}

// Apply upserts the source record, then normalizes each fact into entity or
// edge, optional quote, and provenance rows. A source upsert failure aborts
// the batch; per-fact failures are collected in Result.Errors. Apply returns
// an error alongside the result only when facts were present but not a single
// provenance row could be recorded.
func (n *Normalizer) Apply(ctx context.Context, src common.Source, extraction common.Extraction) (*Result, error) {
	if src.Key == "" {
		src.Key = src.Digest
	}
	if src.Key == "" {
		return nil, fmt.Errorf("source has neither key nor digest")
	}

	res := &Result{}

	outcome, err := n.store.UpsertSource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert source %s: %w", src.Key, err)
	}
	res.SourceOutcome = outcome

	linked := 0
	for i, fact := range extraction.Facts {
		if err := n.applyFact(ctx, src, fact, res); err != nil {
			res.Errors = append(res.Errors, FactError{Index: i, Err: err})
			logger.Warn("Fact failed to normalize", "source", src.Key, "fact", i, "err", err)
			continue
		}
		linked++
	}

	if len(extraction.Facts) > 0 && linked == 0 {
		return res, fmt.Errorf("no fact of %d could be recorded for source %s", len(extraction.Facts), src.Key)
	}
	return res, nil
}

func (n *Normalizer) applyFact(ctx context.Context, src common.Source, fact common.Fact, res *Result) error {
	subjectID := fact.SubjectID()
	if subjectID == "" {
		return fmt.Errorf("fact carries neither entity nor edge")
	}

	quoteKey := ""
	if fact.Quote != "" && (fact.Start != -1 || fact.End != -1) {
		if fact.Start < 0 || fact.End < fact.Start {
			return fmt.Errorf("malformed quote span [%d, %d)", fact.Start, fact.End)
		}
		quote := common.Quote{
			Key:       common.QuoteKey(src.Key, fact.Start, fact.End),
			SourceKey: src.Key,
			Start:     fact.Start,
			End:       fact.End,
			Text:      fact.Quote,
		}
		outcome, err := n.store.UpsertQuote(ctx, quote)
		if err != nil {
			return fmt.Errorf("failed to upsert quote: %w", err)
		}
		if outcome == store.OutcomeInserted {
			res.QuotesAdded++
		}
		quoteKey = quote.Key
	}

	switch {
	case fact.Entity != nil:
		outcome, err := n.store.UpsertEntity(ctx, *fact.Entity)
		if err != nil {
			return fmt.Errorf("failed to upsert entity %s: %w", fact.Entity.ID, err)
		}
		if outcome == store.OutcomeInserted {
			res.EntitiesAdded++
		}
	case fact.Edge != nil:
		if fact.Edge.From == "" || fact.Edge.To == "" {
			return fmt.Errorf("edge %s is missing an endpoint", fact.Edge.ID)
		}
		outcome, err := n.store.UpsertEdge(ctx, *fact.Edge)
		if err != nil {
			return fmt.Errorf("failed to upsert edge %s: %w", fact.Edge.ID, err)
		}
		if outcome == store.OutcomeInserted {
			res.EdgesAdded++
		}
	}

	prov := common.Provenance{
		Key:       common.ProvenanceKey(subjectID, src.Key, quoteKey),
		SubjectID: subjectID,
		SourceKey: src.Key,
		QuoteKey:  quoteKey,
	}
	outcome, err := n.store.UpsertProvenance(ctx, prov)
	if err != nil {
		return fmt.Errorf("failed to upsert provenance: %w", err)
	}
	if outcome == store.OutcomeInserted {
		res.ProvenanceAdded++
	}
	return nil
}
