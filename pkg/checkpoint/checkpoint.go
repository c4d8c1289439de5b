package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/statutelab/lexgraph/pkg/logger"
)

// PersistStatus classifies the outcome of a checkpoint write. Persistence is
// best-effort: a failed write degrades the run to "no resume" instead of
// aborting it.
type PersistStatus int

const (
	// PersistOK means the state was written to durable storage.
	PersistOK PersistStatus = iota
	// PersistSkipped means no storage path is configured (in-memory only).
	PersistSkipped
	// PersistFailed means the write failed; the failure is logged, not raised.
	PersistFailed
)

type fileState struct {
	Processed   []string  `json:"processed"`
	Failed      []string  `json:"failed"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store tracks which locators have been processed or failed, optionally
// persisting the full state to a JSON file on every update so a crash loses
// at most the in-flight entry. All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	processed map[string]struct{}
	failed    map[string]struct{}
	path      string
}

// New creates a checkpoint store. An empty path disables persistence.
func New(path string) *Store {
	return &Store{
		processed: make(map[string]struct{}),
		failed:    make(map[string]struct{}),
		path:      path,
	}
}

// Load populates the store from its file if one exists. A missing or corrupt
// file yields empty sets; ingestion proceeds without resume capability rather
// than aborting.
func (s *Store) Load() {
	if s.path == "" {
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not read checkpoint file, starting fresh", "path", s.path, "err", err)
		}
		return
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn("Corrupt checkpoint file, starting fresh", "path", s.path, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loc := range state.Processed {
		s.processed[loc] = struct{}{}
	}
	for _, loc := range state.Failed {
		s.failed[loc] = struct{}{}
	}
}

// MarkProcessed records a successful locator and persists the state. A
// locator previously marked failed moves to processed; the reverse never
// happens within one run.
func (s *Store) MarkProcessed(locator string) PersistStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[locator] = struct{}{}
	delete(s.failed, locator)
	return s.persistLocked()
}

// MarkFailed records a failed locator and persists the state. Locators
// already marked processed are left untouched.
func (s *Store) MarkFailed(locator string) PersistStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[locator]; ok {
		return PersistSkipped
	}
	s.failed[locator] = struct{}{}
	return s.persistLocked()
}

// ShouldSkip reports whether the locator has already been processed.
func (s *Store) ShouldSkip(locator string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[locator]
	return ok
}

// Failed returns the failed locators, sorted.
func (s *Store) Failed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.failed)
}

// Processed returns the processed locators, sorted.
func (s *Store) Processed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.processed)
}

func (s *Store) persistLocked() PersistStatus {
	if s.path == "" {
		return PersistSkipped
	}

	state := fileState{
		Processed:   sortedKeys(s.processed),
		Failed:      sortedKeys(s.failed),
		LastUpdated: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logger.Warn("Could not encode checkpoint state", "err", err)
		return PersistFailed
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		logger.Warn("Could not create checkpoint directory", "path", s.path, "err", err)
		return PersistFailed
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logger.Warn("Could not write checkpoint file", "path", tmp, "err", err)
		return PersistFailed
	}
	if err := os.Rename(tmp, s.path); err != nil {
		logger.Warn("Could not replace checkpoint file", "path", s.path, "err", err)
		return PersistFailed
	}
	return PersistOK
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
