package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/statutelab/lexgraph/pkg/archive"
	"github.com/statutelab/lexgraph/pkg/canon"
	"github.com/statutelab/lexgraph/pkg/checkpoint"
	"github.com/statutelab/lexgraph/pkg/common"
	"github.com/statutelab/lexgraph/pkg/manifest"
	"github.com/statutelab/lexgraph/pkg/store/memory"
)

const testText = "The Product Liability Act imposes strict liability on producers of defective goods."

type fakeFetcher struct {
	failOn   map[string]bool
	delay    time.Duration
	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func (f *fakeFetcher) Fetch(ctx context.Context, locator string) (string, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failOn[locator] {
		return "", fmt.Errorf("connection refused")
	}
	return testText + " Fetched from " + locator, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, text string, src common.Source) (common.Extraction, error) {
	quote := "strict liability"
	start := strings.Index(text, quote)
	return common.Extraction{
		Facts: []common.Fact{
			{
				Entity: &common.Entity{
					ID:   canon.ContentUUID(text),
					Type: "LAW",
					Name: "PRODUCT LIABILITY ACT",
				},
				Quote: quote,
				Start: start,
				End:   start + len(quote),
			},
		},
	}, nil
}

func entriesFor(locators ...string) []manifest.Entry {
	out := make([]manifest.Entry, 0, len(locators))
	for _, loc := range locators {
		out = append(out, manifest.Entry{Locator: loc})
	}
	return out
}

func newTestIngestor(t *testing.T, params NewIngestorParams) *Ingestor {
	t.Helper()
	if params.Fetcher == nil {
		params.Fetcher = &fakeFetcher{}
	}
	if params.Extractor == nil {
		params.Extractor = fakeExtractor{}
	}
	if params.Store == nil {
		params.Store = memory.NewGraphMemoryStore()
	}
	if params.Checkpoint == nil {
		params.Checkpoint = checkpoint.New("")
	}
	if params.MinContentLen == 0 {
		params.MinContentLen = 10
	}
	ing, err := NewIngestor(params)
	if err != nil {
		t.Fatalf("NewIngestor() error = %v", err)
	}
	return ing
}

func TestRunReportsFailedEntry(t *testing.T) {
	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")
	cp := checkpoint.New(cpPath)

	fetcher := &fakeFetcher{failOn: map[string]bool{"https://example.org/3": true}}
	ing := newTestIngestor(t, NewIngestorParams{
		Fetcher:    fetcher,
		Checkpoint: cp,
	})

	summary := ing.Run(context.Background(), entriesFor(
		"https://example.org/1",
		"https://example.org/2",
		"https://example.org/3",
		"https://example.org/4",
		"https://example.org/5",
	))

	if summary.Processed != 4 || summary.Failed != 1 {
		t.Errorf("processed=%d failed=%d, want 4 and 1", summary.Processed, summary.Failed)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].Locator != "https://example.org/3" {
		t.Errorf("error records = %+v, want exactly the failed locator", summary.Errors)
	}

	reloaded := checkpoint.New(cpPath)
	reloaded.Load()
	if failed := reloaded.Failed(); len(failed) != 1 || failed[0] != "https://example.org/3" {
		t.Errorf("checkpoint failed list = %v, want [https://example.org/3]", failed)
	}
	if got := len(reloaded.Processed()); got != 4 {
		t.Errorf("checkpoint processed count = %d, want 4", got)
	}
}

func TestRunConcurrencyCap(t *testing.T) {
	fetcher := &fakeFetcher{delay: 20 * time.Millisecond}
	ing := newTestIngestor(t, NewIngestorParams{
		Fetcher:     fetcher,
		Concurrency: 2,
	})

	locators := make([]string, 10)
	for i := range locators {
		locators[i] = fmt.Sprintf("https://example.org/doc-%d", i)
	}
	summary := ing.Run(context.Background(), entriesFor(locators...))

	if summary.Processed != 10 {
		t.Errorf("processed = %d, want 10", summary.Processed)
	}
	if max := fetcher.maxSeen.Load(); max > 2 {
		t.Errorf("observed %d concurrent fetches, cap is 2", max)
	}
}

func TestRunSkipsProcessedEntries(t *testing.T) {
	cp := checkpoint.New("")
	cp.MarkProcessed("https://example.org/done")

	fetcher := &fakeFetcher{}
	mem := memory.NewGraphMemoryStore()
	ing := newTestIngestor(t, NewIngestorParams{
		Fetcher:      fetcher,
		Store:        mem,
		Checkpoint:   cp,
		SkipExisting: true,
	})

	summary := ing.Run(context.Background(), entriesFor("https://example.org/done"))

	if summary.Skipped != 1 || summary.Processed != 0 {
		t.Errorf("skipped=%d processed=%d, want 1 and 0", summary.Skipped, summary.Processed)
	}
	if fetcher.calls.Load() != 0 {
		t.Errorf("fetcher called %d times for a skipped entry", fetcher.calls.Load())
	}
	for coll, n := range mem.Counts() {
		if n != 0 {
			t.Errorf("collection %s has %d rows after a skipped-only run", coll, n)
		}
	}
}

func TestRunInsufficientContentFails(t *testing.T) {
	ing := newTestIngestor(t, NewIngestorParams{
		MinContentLen: 10_000,
	})

	summary := ing.Run(context.Background(), entriesFor("https://example.org/tiny"))
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1 for insufficient content", summary.Failed)
	}
	if !strings.Contains(summary.Errors[0].Error, "insufficient content") {
		t.Errorf("error = %q, want an insufficient content failure", summary.Errors[0].Error)
	}
}

func TestRunArchivesCanonicalText(t *testing.T) {
	dir := t.TempDir()
	arch, err := archive.NewFSStore(dir)
	if err != nil {
		t.Fatalf("archive setup: %v", err)
	}
	ing := newTestIngestor(t, NewIngestorParams{Archive: arch})

	summary := ing.Run(context.Background(), entriesFor("https://example.org/act"))
	if summary.Processed != 1 {
		t.Fatalf("processed = %d, want 1", summary.Processed)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading archive dir: %v", err)
	}
	if len(files) != 1 || !strings.HasSuffix(files[0].Name(), ".txt") {
		t.Fatalf("archive dir contents = %v, want one <digest>.txt file", files)
	}

	data, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	if err != nil {
		t.Fatalf("reading archived text: %v", err)
	}
	digest := strings.TrimSuffix(files[0].Name(), ".txt")
	if canon.Digest(string(data)) != digest {
		t.Errorf("archived file name does not match its content digest")
	}
}

func TestRunStopsDispatchOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{delay: 30 * time.Millisecond}
	ing := newTestIngestor(t, NewIngestorParams{
		Fetcher:     fetcher,
		Concurrency: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	locators := make([]string, 20)
	for i := range locators {
		locators[i] = fmt.Sprintf("https://example.org/doc-%d", i)
	}
	summary := ing.Run(ctx, entriesFor(locators...))

	done := summary.Processed + summary.Failed
	if done == 0 {
		t.Error("cancellation aborted the in-flight entry instead of letting it finish")
	}
	if done >= 20 {
		t.Errorf("all %d entries ran despite early cancellation", done)
	}
}
