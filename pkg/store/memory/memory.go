package memory

import (
	"context"
	"sync"

	"github.com/statutelab/lexgraph/pkg/common"
	"github.com/statutelab/lexgraph/pkg/store"
)

// collection is the reusable upsert primitive: insert if the key is absent,
// otherwise apply the merge policy. A nil merge makes the collection
// insert-only (a present key is a no-op).
type collection[T any] struct {
	mu    sync.Mutex
	rows  map[string]T
	merge func(old, next T) (T, bool)
}

func newCollection[T any](merge func(old, next T) (T, bool)) *collection[T] {
	return &collection[T]{
		rows:  make(map[string]T),
		merge: merge,
	}
}

func (c *collection[T]) upsert(key string, val T) store.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	old, ok := c.rows[key]
	if !ok {
		c.rows[key] = val
		return store.OutcomeInserted
	}
	if c.merge == nil {
		return store.OutcomeUnchanged
	}
	merged, changed := c.merge(old, val)
	if !changed {
		return store.OutcomeUnchanged
	}
	c.rows[key] = merged
	return store.OutcomeUpdated
}

func (c *collection[T]) snapshot() map[string]T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]T, len(c.rows))
	for k, v := range c.rows {
		out[k] = v
	}
	return out
}

func (c *collection[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// GraphMemoryStore is a map-backed store.GraphStore. It backs tests and
// dry runs where no database is configured.
type GraphMemoryStore struct {
	sources    *collection[common.Source]
	quotes     *collection[common.Quote]
	entities   *collection[common.Entity]
	edges      *collection[common.Edge]
	provenance *collection[common.Provenance]
}

var _ store.GraphStore = (*GraphMemoryStore)(nil)

// NewGraphMemoryStore creates an empty in-memory graph store.
func NewGraphMemoryStore() *GraphMemoryStore {
	return &GraphMemoryStore{
		sources:    newCollection(store.MergeSource),
		quotes:     newCollection[common.Quote](nil),
		entities:   newCollection(store.MergeEntity),
		edges:      newCollection(store.MergeEdge),
		provenance: newCollection[common.Provenance](nil),
	}
}

func (s *GraphMemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *GraphMemoryStore) UpsertSource(ctx context.Context, src common.Source) (store.Outcome, error) {
	return s.sources.upsert(src.Key, src), nil
}

func (s *GraphMemoryStore) UpsertQuote(ctx context.Context, quote common.Quote) (store.Outcome, error) {
	return s.quotes.upsert(quote.Key, quote), nil
}

func (s *GraphMemoryStore) UpsertEntity(ctx context.Context, entity common.Entity) (store.Outcome, error) {
	return s.entities.upsert(entity.ID, entity), nil
}

func (s *GraphMemoryStore) UpsertEdge(ctx context.Context, edge common.Edge) (store.Outcome, error) {
	return s.edges.upsert(edge.ID, edge), nil
}

func (s *GraphMemoryStore) UpsertProvenance(ctx context.Context, prov common.Provenance) (store.Outcome, error) {
	return s.provenance.upsert(prov.Key, prov), nil
}

// Counts returns the row count of each collection, for reporting and tests.
func (s *GraphMemoryStore) Counts() map[string]int {
	return map[string]int{
		"sources":    s.sources.len(),
		"quotes":     s.quotes.len(),
		"entities":   s.entities.len(),
		"edges":      s.edges.len(),
		"provenance": s.provenance.len(),
	}
}

// Sources returns a copy of the sources collection.
func (s *GraphMemoryStore) Sources() map[string]common.Source {
	return s.sources.snapshot()
}

// Quotes returns a copy of the quotes collection.
func (s *GraphMemoryStore) Quotes() map[string]common.Quote {
	return s.quotes.snapshot()
}

// Entities returns a copy of the entities collection.
func (s *GraphMemoryStore) Entities() map[string]common.Entity {
	return s.entities.snapshot()
}

// Edges returns a copy of the edges collection.
func (s *GraphMemoryStore) Edges() map[string]common.Edge {
	return s.edges.snapshot()
}

// Provenance returns a copy of the provenance collection.
func (s *GraphMemoryStore) Provenance() map[string]common.Provenance {
	return s.provenance.snapshot()
}
