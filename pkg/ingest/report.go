package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// maxErrorRecords bounds the per-entry error list so a pathological run does
// not grow the report without limit. The failed counter stays exact.
const maxErrorRecords = 100

// EntryError is one failed entry in the final report.
type EntryError struct {
	Locator string    `json:"locator"`
	Error   string    `json:"error"`
	At      time.Time `json:"at"`
}

// Report accumulates run statistics. Counter updates are atomic and the error
// list is mutex-guarded, so workers update it concurrently and Snapshot can be
// read at any time.
type Report struct {
	total     atomic.Int64
	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64

	entitiesAdded atomic.Int64
	edgesAdded    atomic.Int64

	start time.Time

	mu     sync.Mutex
	errors []EntryError
}

// NewReport creates a Report for a run over total entries.
func NewReport(total int) *Report {
	r := &Report{
		start: time.Now(),
	}
	r.total.Store(int64(total))
	return r
}

// RecordProcessed counts one successful entry and the rows it added.
func (r *Report) RecordProcessed(entitiesAdded, edgesAdded int) {
	r.processed.Add(1)
	r.entitiesAdded.Add(int64(entitiesAdded))
	r.edgesAdded.Add(int64(edgesAdded))
}

// RecordSkipped counts one entry skipped via the checkpoint.
func (r *Report) RecordSkipped() {
	r.skipped.Add(1)
}

// RecordFailed counts one failed entry and appends a timestamped error record.
func (r *Report) RecordFailed(locator string, err error) {
	r.failed.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errors) >= maxErrorRecords {
		return
	}
	r.errors = append(r.errors, EntryError{
		Locator: locator,
		Error:   err.Error(),
		At:      time.Now().UTC(),
	})
}

// Summary is a serializable snapshot of a run.
type Summary struct {
	Total         int          `json:"total"`
	Processed     int          `json:"processed"`
	Skipped       int          `json:"skipped"`
	Failed        int          `json:"failed"`
	EntitiesAdded int          `json:"entities_added"`
	EdgesAdded    int          `json:"edges_added"`
	ElapsedMs     int64        `json:"elapsed_ms"`
	Errors        []EntryError `json:"errors,omitempty"`
}

// Snapshot produces the current summary. It is safe to call while workers are
// still updating the report.
func (r *Report) Snapshot() Summary {
	r.mu.Lock()
	errs := make([]EntryError, len(r.errors))
	copy(errs, r.errors)
	r.mu.Unlock()

	return Summary{
		Total:         int(r.total.Load()),
		Processed:     int(r.processed.Load()),
		Skipped:       int(r.skipped.Load()),
		Failed:        int(r.failed.Load()),
		EntitiesAdded: int(r.entitiesAdded.Load()),
		EdgesAdded:    int(r.edgesAdded.Load()),
		ElapsedMs:     time.Since(r.start).Milliseconds(),
		Errors:        errs,
	}
}

// WriteFile writes the summary as indented JSON to path.
func (s Summary) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
