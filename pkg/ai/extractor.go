package ai

import (
	"context"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/statutelab/lexgraph/internal/util"
	"github.com/statutelab/lexgraph/pkg/common"
	"github.com/statutelab/lexgraph/pkg/logger"
)

type extractEntity struct {
	Name         string `json:"name" jsonschema_description:"Name of the entity, all letters capitalized"`
	Type         string `json:"type" jsonschema_description:"One of the allowed entity types"`
	Description  string `json:"description" jsonschema_description:"Concise description of the entity grounded only in the provided text"`
	Jurisdiction string `json:"jurisdiction" jsonschema_description:"Jurisdiction the entity belongs to, empty when unknown"`
	Quote        string `json:"quote" jsonschema_description:"Verbatim supporting span copied exactly from the text, empty when none exists"`
}

type extractRelation struct {
	FromEntity string  `json:"from_entity" jsonschema_description:"Name of the source entity, as listed under entities"`
	ToEntity   string  `json:"to_entity" jsonschema_description:"Name of the target entity, as listed under entities"`
	Type       string  `json:"type" jsonschema_description:"UPPER_SNAKE_CASE relationship type"`
	Strength   float64 `json:"strength" jsonschema_description:"Relationship strength between 0.0 and 1.0"`
	Condition  string  `json:"condition" jsonschema_description:"Verbatim condition under which the relationship holds, empty when unconditional"`
	Quote      string  `json:"quote" jsonschema_description:"Verbatim supporting span copied exactly from the text, empty when none exists"`
}

type extractResponse struct {
	Entities  []extractEntity   `json:"entities" jsonschema_description:"Legal entities identified in the text"`
	Relations []extractRelation `json:"relations" jsonschema_description:"Directed relationships between the identified entities"`
}

// DefaultEntityTypes are the entity types offered to the model when the
// caller configures none.
var DefaultEntityTypes = []string{
	"LAW", "REGULATION", "CASE", "COURT", "REMEDY", "OBLIGATION",
	"PENALTY", "DAMAGES", "ORGANIZATION", "PERSON", "JURISDICTION",
}

// NewLLMExtractorParams configures an LLMExtractor.
//
// Encoder names the tiktoken encoding used for the unit token budget.
// MaxAttempts bounds retries of one unit's model call; the pipeline above
// never retries whole entries, so transient model hiccups are absorbed here.
type NewLLMExtractorParams struct {
	Client        FactAIClient
	Model         string
	EntityTypes   []string
	Encoder       string
	MaxUnitTokens int
	Concurrency   int
	MaxAttempts   int
}

// LLMExtractor implements FactExtractor by chunking canonical text into
// token-bounded units, running the model over units concurrently, and merging
// the per-unit responses into one fact list with stable extraction-time IDs.
type LLMExtractor struct {
	client        FactAIClient
	model         string
	entityTypes   []string
	countTokens   func(string) int
	maxUnitTokens int
	concurrency   int
	maxAttempts   int
}

var _ FactExtractor = (*LLMExtractor)(nil)

// NewLLMExtractor creates an LLMExtractor from params, applying defaults for
// everything but the client.
func NewLLMExtractor(params NewLLMExtractorParams) (*LLMExtractor, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("extractor requires a model client")
	}
	encoder := params.Encoder
	if encoder == "" {
		encoder = "cl100k_base"
	}
	countTokens, err := newTokenCounter(encoder)
	if err != nil {
		return nil, err
	}

	entityTypes := params.EntityTypes
	if len(entityTypes) == 0 {
		entityTypes = DefaultEntityTypes
	}
	maxUnitTokens := params.MaxUnitTokens
	if maxUnitTokens <= 0 {
		maxUnitTokens = 1200
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	return &LLMExtractor{
		client:        params.Client,
		model:         params.Model,
		entityTypes:   entityTypes,
		countTokens:   countTokens,
		maxUnitTokens: maxUnitTokens,
		concurrency:   concurrency,
		maxAttempts:   maxAttempts,
	}, nil
}

// Extract runs the model over every unit of the canonical text and merges the
// responses. Entity IDs are assigned once per distinct entity name across the
// whole document, so relations extracted in a later unit can reference an
// entity first seen in an earlier one. Any unit failing after retries fails
// the extraction as a whole.
func (e *LLMExtractor) Extract(ctx context.Context, text string, src common.Source) (common.Extraction, error) {
	units := splitIntoUnits(text, e.countTokens, e.maxUnitTokens)
	if len(units) == 0 {
		return common.Extraction{}, nil
	}

	systemPrompt := fmt.Sprintf(
		ExtractPromptLegal,
		strings.Join(e.entityTypes, ","),
		src.Title,
		src.Jurisdiction,
		strings.Join(e.entityTypes, ","),
	)

	responses := make([]extractResponse, len(units))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, unit := range units {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}

			res, err := util.RetryWithContext(gCtx, e.maxAttempts, func(ctx context.Context) (extractResponse, error) {
				var res extractResponse
				err := e.client.GenerateCompletionWithFormat(
					ctx,
					"extract_legal_facts",
					"Extract legal entities and relationships from a document chunk.",
					unit.text,
					&res,
					WithModel(e.model),
					WithSystemPrompts(systemPrompt),
					WithTemperature(0.1),
				)
				return res, err
			})
			if err != nil {
				return fmt.Errorf("failed to extract unit %d/%d: %w", i+1, len(units), err)
			}
			responses[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return common.Extraction{}, err
	}

	return e.mergeResponses(text, units, responses)
}

// mergeResponses walks unit responses in document order so ID assignment is
// deterministic for a given set of responses.
func (e *LLMExtractor) mergeResponses(text string, units []textUnit, responses []extractResponse) (common.Extraction, error) {
	extraction := common.Extraction{}
	entityIDs := map[string]string{}

	idFor := func(name string) (string, error) {
		key := strings.ToUpper(strings.TrimSpace(name))
		if id, ok := entityIDs[key]; ok {
			return id, nil
		}
		id, err := gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("failed to generate entity ID: %w", err)
		}
		entityIDs[key] = id
		return id, nil
	}

	for i, res := range responses {
		unit := units[i]

		for _, ent := range res.Entities {
			if strings.TrimSpace(ent.Name) == "" {
				continue
			}
			id, err := idFor(ent.Name)
			if err != nil {
				return common.Extraction{}, err
			}
			fact := common.Fact{
				Entity: &common.Entity{
					ID:           id,
					Type:         strings.ToUpper(strings.TrimSpace(ent.Type)),
					Name:         strings.TrimSpace(ent.Name),
					Description:  strings.TrimSpace(ent.Description),
					Jurisdiction: strings.TrimSpace(ent.Jurisdiction),
				},
			}
			fact.Quote, fact.Start, fact.End = resolveSpan(text, unit, ent.Quote)
			extraction.Facts = append(extraction.Facts, fact)
		}

		for _, rel := range res.Relations {
			fromKey := strings.ToUpper(strings.TrimSpace(rel.FromEntity))
			toKey := strings.ToUpper(strings.TrimSpace(rel.ToEntity))
			fromID, okFrom := entityIDs[fromKey]
			toID, okTo := entityIDs[toKey]
			if !okFrom || !okTo {
				logger.Warn("Relation references unknown entity, dropping",
					"from", rel.FromEntity, "to", rel.ToEntity, "type", rel.Type)
				continue
			}

			id, err := gonanoid.New()
			if err != nil {
				return common.Extraction{}, fmt.Errorf("failed to generate edge ID: %w", err)
			}
			edge := &common.Edge{
				ID:     id,
				Type:   strings.ToUpper(strings.TrimSpace(rel.Type)),
				From:   fromID,
				To:     toID,
				Weight: rel.Strength,
			}
			if cond := strings.TrimSpace(rel.Condition); cond != "" {
				edge.Conditions = map[string]string{"condition": cond}
			}

			fact := common.Fact{Edge: edge}
			fact.Quote, fact.Start, fact.End = resolveSpan(text, unit, rel.Quote)
			extraction.Facts = append(extraction.Facts, fact)
		}
	}

	return extraction, nil
}

// resolveSpan locates a model-returned quote in the canonical text, searching
// the originating unit first. A quote the model paraphrased out of existence
// yields no span, which downgrades the fact's provenance to source-level.
func resolveSpan(text string, unit textUnit, quote string) (string, int, int) {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return "", -1, -1
	}
	if idx := strings.Index(unit.text, quote); idx >= 0 {
		start := unit.start + idx
		return quote, start, start + len(quote)
	}
	if idx := strings.Index(text, quote); idx >= 0 {
		return quote, idx, idx + len(quote)
	}
	return "", -1, -1
}
