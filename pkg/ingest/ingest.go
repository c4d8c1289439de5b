package ingest

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/statutelab/lexgraph/pkg/ai"
	"github.com/statutelab/lexgraph/pkg/archive"
	"github.com/statutelab/lexgraph/pkg/canon"
	"github.com/statutelab/lexgraph/pkg/checkpoint"
	"github.com/statutelab/lexgraph/pkg/fetch"
	"github.com/statutelab/lexgraph/pkg/graph"
	"github.com/statutelab/lexgraph/pkg/logger"
	"github.com/statutelab/lexgraph/pkg/manifest"
	"github.com/statutelab/lexgraph/pkg/store"
)

// NewIngestorParams configures an Ingestor. Fetcher, Extractor, Store and
// Checkpoint are required; Archive is optional.
type NewIngestorParams struct {
	Fetcher    fetch.Fetcher
	Extractor  ai.FactExtractor
	Store      store.GraphStore
	Checkpoint *checkpoint.Store
	Archive    archive.Store

	// Concurrency caps how many entries run the fetch-to-store pipeline at
	// once. Defaults to 2.
	Concurrency int
	// SkipExisting short-circuits entries the checkpoint reports processed.
	SkipExisting bool
	// MinContentLen is the minimum rune count of fetched canonical text below
	// which an entry fails as insufficient content. Defaults to 64.
	MinContentLen int
}

// Ingestor drives manifest entries through fetch, extraction, archival and
// graph normalization under a bounded concurrency cap. Entries are
// independent: one entry's failure is recorded and never cancels siblings.
type Ingestor struct {
	fetcher    fetch.Fetcher
	extractor  ai.FactExtractor
	normalizer *graph.Normalizer
	checkpoint *checkpoint.Store
	archive    archive.Store

	concurrency   int
	skipExisting  bool
	minContentLen int
}

// NewIngestor creates an Ingestor from params.
func NewIngestor(params NewIngestorParams) (*Ingestor, error) {
	if params.Fetcher == nil {
		return nil, fmt.Errorf("ingestor requires a fetcher")
	}
	if params.Extractor == nil {
		return nil, fmt.Errorf("ingestor requires an extractor")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("ingestor requires a graph store")
	}
	if params.Checkpoint == nil {
		return nil, fmt.Errorf("ingestor requires a checkpoint store")
	}

	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	minContentLen := params.MinContentLen
	if minContentLen <= 0 {
		minContentLen = 64
	}

	return &Ingestor{
		fetcher:       params.Fetcher,
		extractor:     params.Extractor,
		normalizer:    graph.NewNormalizer(params.Store),
		checkpoint:    params.Checkpoint,
		archive:       params.Archive,
		concurrency:   concurrency,
		skipExisting:  params.SkipExisting,
		minContentLen: minContentLen,
	}, nil
}

// Run processes all entries and returns the run summary. Cancelling ctx stops
// dispatching new entries; in-flight entries finish or fail cleanly. Run only
// reports failures through the summary, never as an error.
func (ing *Ingestor) Run(ctx context.Context, entries []manifest.Entry) Summary {
	report := NewReport(len(entries))

	var g errgroup.Group
	g.SetLimit(ing.concurrency)

	for i, entry := range entries {
		if ctx.Err() != nil {
			logger.Warn("Run interrupted, waiting for in-flight entries", "remaining", len(entries)-i)
			break
		}
		g.Go(func() error {
			ing.processEntry(ctx, entry, report)
			return nil
		})
	}
	_ = g.Wait()

	return report.Snapshot()
}

func (ing *Ingestor) processEntry(ctx context.Context, entry manifest.Entry, report *Report) {
	locator := entry.Locator

	if ing.skipExisting && ing.checkpoint.ShouldSkip(locator) {
		logger.Debug("Skipping already-processed entry", "locator", locator)
		report.RecordSkipped()
		return
	}

	fail := func(err error) {
		logger.Error("Entry failed", "locator", locator, "err", err)
		ing.checkpoint.MarkFailed(locator)
		report.RecordFailed(locator, err)
	}

	src := resolveSource(entry)

	text, err := ing.fetcher.Fetch(ctx, locator)
	if err != nil {
		fail(fmt.Errorf("fetch: %w", err))
		return
	}
	text = canon.Canonicalize(text)

	if utf8.RuneCountInString(text) < ing.minContentLen {
		fail(fmt.Errorf("insufficient content: %d runes, need %d", utf8.RuneCountInString(text), ing.minContentLen))
		return
	}

	src.Digest = canon.Digest(text)
	src.Key = src.Digest
	src.FetchedAt = time.Now().UTC()

	extraction, err := ing.extractor.Extract(ctx, text, src)
	if err != nil {
		fail(fmt.Errorf("extract: %w", err))
		return
	}

	if ing.archive != nil {
		if err := ing.archive.Put(ctx, src.Digest, text); err != nil {
			fail(fmt.Errorf("archive: %w", err))
			return
		}
	}

	res, err := ing.normalizer.Apply(ctx, src, extraction)
	if err != nil {
		fail(fmt.Errorf("normalize: %w", err))
		return
	}
	if len(res.Errors) > 0 {
		logger.Warn("Some facts failed to normalize",
			"locator", locator, "failed_facts", len(res.Errors), "total_facts", len(extraction.Facts))
	}

	ing.checkpoint.MarkProcessed(locator)
	report.RecordProcessed(res.EntitiesAdded, res.EdgesAdded)
	logger.Info("Entry processed",
		"locator", locator,
		"facts", len(extraction.Facts),
		"entities_added", res.EntitiesAdded,
		"edges_added", res.EdgesAdded)
}
