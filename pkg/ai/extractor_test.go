package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/statutelab/lexgraph/pkg/common"
)

type fakeClient struct {
	respond func(prompt string) (extractResponse, error)
	metrics ModelMetrics
}

func (f *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	return "", nil
}

func (f *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...GenerateOption) error {
	res, err := f.respond(prompt)
	if err != nil {
		return err
	}
	*out.(*extractResponse) = res
	return nil
}

func (f *fakeClient) Metrics() ModelMetrics {
	return f.metrics
}

func testExtractor(t *testing.T, client FactAIClient, maxUnitTokens int) *LLMExtractor {
	t.Helper()
	return &LLMExtractor{
		client:        client,
		model:         "test-model",
		entityTypes:   DefaultEntityTypes,
		countTokens:   func(s string) int { return len(strings.Fields(s)) },
		maxUnitTokens: maxUnitTokens,
		concurrency:   2,
		maxAttempts:   1,
	}
}

func TestExtractMergesUnitsWithStableEntityIDs(t *testing.T) {
	text := "The Product Liability Act imposes strict liability. The act provides damages as a remedy."

	client := &fakeClient{
		respond: func(prompt string) (extractResponse, error) {
			if strings.Contains(prompt, "imposes strict liability") {
				return extractResponse{
					Entities: []extractEntity{
						{Name: "PRODUCT LIABILITY ACT", Type: "LAW", Quote: "imposes strict liability"},
					},
				}, nil
			}
			return extractResponse{
				Entities: []extractEntity{
					{Name: "Product Liability Act", Type: "LAW"},
					{Name: "DAMAGES", Type: "REMEDY", Quote: "damages as a remedy"},
				},
				Relations: []extractRelation{
					{FromEntity: "Product Liability Act", ToEntity: "DAMAGES", Type: "PROVIDES_REMEDY", Strength: 0.9},
				},
			}, nil
		},
	}

	e := testExtractor(t, client, 8) // forces each sentence into its own unit
	extraction, err := e.Extract(context.Background(), text, common.Source{Title: "PLA"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	var actIDs []string
	var edge *common.Edge
	var damagesID string
	for _, fact := range extraction.Facts {
		if fact.Entity != nil && strings.EqualFold(fact.Entity.Name, "Product Liability Act") {
			actIDs = append(actIDs, fact.Entity.ID)
		}
		if fact.Entity != nil && fact.Entity.Name == "DAMAGES" {
			damagesID = fact.Entity.ID
		}
		if fact.Edge != nil {
			edge = fact.Edge
		}
	}

	if len(actIDs) != 2 {
		t.Fatalf("got %d act facts, want 2 (one per unit)", len(actIDs))
	}
	if actIDs[0] != actIDs[1] {
		t.Errorf("same entity name got two IDs: %s vs %s", actIDs[0], actIDs[1])
	}
	if edge == nil {
		t.Fatal("relation fact missing")
	}
	if edge.From != actIDs[0] || edge.To != damagesID {
		t.Errorf("edge endpoints = (%s, %s), want (%s, %s)", edge.From, edge.To, actIDs[0], damagesID)
	}
}

func TestExtractResolvesQuoteOffsets(t *testing.T) {
	text := "Section 2 applies to producers. Strict liability attaches on proof of defect."

	client := &fakeClient{
		respond: func(prompt string) (extractResponse, error) {
			if !strings.Contains(prompt, "Strict liability") {
				return extractResponse{}, nil
			}
			return extractResponse{
				Entities: []extractEntity{
					{Name: "STRICT LIABILITY", Type: "OBLIGATION", Quote: "Strict liability attaches"},
					{Name: "GHOST", Type: "CONCEPT", Quote: "a span the text never contains"},
				},
			}, nil
		},
	}

	e := testExtractor(t, client, 6)
	extraction, err := e.Extract(context.Background(), text, common.Source{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	for _, fact := range extraction.Facts {
		switch fact.Entity.Name {
		case "STRICT LIABILITY":
			if fact.Start < 0 || text[fact.Start:fact.End] != fact.Quote {
				t.Errorf("quote span [%d:%d] does not recover %q", fact.Start, fact.End, fact.Quote)
			}
		case "GHOST":
			if fact.Quote != "" || fact.Start != -1 || fact.End != -1 {
				t.Errorf("unfindable quote kept a span: %q [%d:%d]", fact.Quote, fact.Start, fact.End)
			}
		}
	}
}

func TestExtractDropsRelationWithUnknownEndpoint(t *testing.T) {
	text := "A single sentence about the act."

	client := &fakeClient{
		respond: func(prompt string) (extractResponse, error) {
			return extractResponse{
				Entities: []extractEntity{{Name: "THE ACT", Type: "LAW"}},
				Relations: []extractRelation{
					{FromEntity: "THE ACT", ToEntity: "NEVER MENTIONED", Type: "AMENDS", Strength: 0.5},
				},
			}, nil
		},
	}

	e := testExtractor(t, client, 100)
	extraction, err := e.Extract(context.Background(), text, common.Source{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	for _, fact := range extraction.Facts {
		if fact.Edge != nil {
			t.Errorf("relation with unknown endpoint survived: %+v", fact.Edge)
		}
	}
}

func TestExtractEmptyTextYieldsZeroFacts(t *testing.T) {
	client := &fakeClient{
		respond: func(prompt string) (extractResponse, error) {
			t.Error("model called for empty text")
			return extractResponse{}, nil
		},
	}

	e := testExtractor(t, client, 100)
	extraction, err := e.Extract(context.Background(), "", common.Source{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(extraction.Facts) != 0 {
		t.Errorf("got %d facts from empty text", len(extraction.Facts))
	}
}
