package store

import (
	"context"

	"github.com/statutelab/lexgraph/pkg/common"
)

// Outcome reports what an upsert did, so callers can distinguish a fresh
// insert from a merge update or a no-op.
type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeInserted
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// GraphStore persists the five normalized collections. Every operation is an
// upsert keyed by a deterministic identifier and must be independently safe
// to race against another worker upserting the same key: merge semantics,
// never read-modify-write with a stale read.
type GraphStore interface {
	// Ping verifies connectivity at startup. A failure here is fatal for
	// the run; failures later are per-entry.
	Ping(ctx context.Context) error

	UpsertSource(ctx context.Context, src common.Source) (Outcome, error)
	UpsertQuote(ctx context.Context, quote common.Quote) (Outcome, error)
	UpsertEntity(ctx context.Context, entity common.Entity) (Outcome, error)
	UpsertEdge(ctx context.Context, edge common.Edge) (Outcome, error)
	UpsertProvenance(ctx context.Context, prov common.Provenance) (Outcome, error)
}
