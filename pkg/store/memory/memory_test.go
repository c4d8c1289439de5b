package memory

import (
	"context"
	"testing"

	"github.com/statutelab/lexgraph/pkg/common"
	"github.com/statutelab/lexgraph/pkg/store"
)

func TestUpsertSourceFillsMissingFieldsOnly(t *testing.T) {
	ctx := context.Background()
	s := NewGraphMemoryStore()

	first := common.Source{
		Key:     "digest-1",
		Locator: "https://example.org/act",
		Digest:  "digest-1",
	}
	outcome, err := s.UpsertSource(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != store.OutcomeInserted {
		t.Errorf("first upsert = %v, want inserted", outcome)
	}

	second := first
	second.Title = "Consumer Act"
	second.Jurisdiction = "DE"
	outcome, err = s.UpsertSource(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != store.OutcomeUpdated {
		t.Errorf("fill upsert = %v, want updated", outcome)
	}

	// A later upsert must not clobber fields that are already set.
	third := first
	third.Title = "Some Other Title"
	outcome, err = s.UpsertSource(ctx, third)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != store.OutcomeUnchanged {
		t.Errorf("clobber upsert = %v, want unchanged", outcome)
	}
	if got := s.Sources()["digest-1"].Title; got != "Consumer Act" {
		t.Errorf("title = %q, want original kept", got)
	}
}

func TestUpsertEntityMergesAttrs(t *testing.T) {
	ctx := context.Background()
	s := NewGraphMemoryStore()

	base := common.Entity{
		ID:    "ent-1",
		Type:  "LAW",
		Name:  "Product Liability Act",
		Attrs: map[string]string{"section": "1"},
	}
	if outcome, _ := s.UpsertEntity(ctx, base); outcome != store.OutcomeInserted {
		t.Fatalf("first upsert = %v, want inserted", outcome)
	}

	update := common.Entity{
		ID:    "ent-1",
		Attrs: map[string]string{"year": "1989"},
	}
	outcome, err := s.UpsertEntity(ctx, update)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != store.OutcomeUpdated {
		t.Errorf("merge upsert = %v, want updated", outcome)
	}

	got := s.Entities()["ent-1"]
	if got.Name != "Product Liability Act" {
		t.Errorf("name lost during merge: %q", got.Name)
	}
	if got.Attrs["section"] != "1" || got.Attrs["year"] != "1989" {
		t.Errorf("attrs = %v, want both keys", got.Attrs)
	}

	// Replaying the exact same record is a no-op.
	if outcome, _ := s.UpsertEntity(ctx, update); outcome != store.OutcomeUnchanged {
		t.Errorf("replay upsert = %v, want unchanged", outcome)
	}
}

func TestInsertOnlyCollections(t *testing.T) {
	ctx := context.Background()
	s := NewGraphMemoryStore()

	quote := common.Quote{
		Key:       common.QuoteKey("digest-1", 10, 42),
		SourceKey: "digest-1",
		Start:     10,
		End:       42,
		Text:      "the court held",
	}
	if outcome, _ := s.UpsertQuote(ctx, quote); outcome != store.OutcomeInserted {
		t.Error("first quote upsert should insert")
	}
	if outcome, _ := s.UpsertQuote(ctx, quote); outcome != store.OutcomeUnchanged {
		t.Error("second quote upsert should be a no-op")
	}

	prov := common.Provenance{
		Key:       common.ProvenanceKey("ent-1", "digest-1", quote.Key),
		SubjectID: "ent-1",
		SourceKey: "digest-1",
		QuoteKey:  quote.Key,
	}
	if outcome, _ := s.UpsertProvenance(ctx, prov); outcome != store.OutcomeInserted {
		t.Error("first provenance upsert should insert")
	}
	if outcome, _ := s.UpsertProvenance(ctx, prov); outcome != store.OutcomeUnchanged {
		t.Error("second provenance upsert should be a no-op")
	}

	if got := s.Counts()["quotes"]; got != 1 {
		t.Errorf("quotes count = %d, want 1", got)
	}
	if got := s.Counts()["provenance"]; got != 1 {
		t.Errorf("provenance count = %d, want 1", got)
	}
}
