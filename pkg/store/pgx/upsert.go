package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/statutelab/lexgraph/pkg/common"
	"github.com/statutelab/lexgraph/pkg/store"
)

// scanUpsertOutcome interprets a RETURNING (xmax = 0) row: a returned row
// means the statement inserted or updated; no row means the DO UPDATE guard
// filtered the write out.
func scanUpsertOutcome(row pgxv5.Row) (store.Outcome, error) {
	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return store.OutcomeUnchanged, nil
		}
		return store.OutcomeUnchanged, err
	}
	if inserted {
		return store.OutcomeInserted, nil
	}
	return store.OutcomeUpdated, nil
}

const upsertSourceSQL = `
INSERT INTO sources (key, locator, kind, title, jurisdiction, authority, digest, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (key) DO UPDATE SET
    kind         = CASE WHEN sources.kind = ''         THEN excluded.kind         ELSE sources.kind         END,
    title        = CASE WHEN sources.title = ''        THEN excluded.title        ELSE sources.title        END,
    jurisdiction = CASE WHEN sources.jurisdiction = '' THEN excluded.jurisdiction ELSE sources.jurisdiction END,
    authority    = CASE WHEN sources.authority = ''    THEN excluded.authority    ELSE sources.authority    END
WHERE (sources.kind = '' AND excluded.kind <> '')
   OR (sources.title = '' AND excluded.title <> '')
   OR (sources.jurisdiction = '' AND excluded.jurisdiction <> '')
   OR (sources.authority = '' AND excluded.authority <> '')
RETURNING (xmax = 0)`

func (s *GraphDBStorage) UpsertSource(ctx context.Context, src common.Source) (store.Outcome, error) {
	if src.Key == "" {
		return store.OutcomeUnchanged, fmt.Errorf("source key is empty")
	}
	row := s.conn.QueryRow(ctx, upsertSourceSQL,
		src.Key, src.Locator, string(src.Kind), src.Title, src.Jurisdiction,
		src.Authority, src.Digest, src.FetchedAt,
	)
	outcome, err := scanUpsertOutcome(row)
	if err != nil {
		return store.OutcomeUnchanged, fmt.Errorf("failed to upsert source %s: %w", src.Key, err)
	}
	return outcome, nil
}

const insertQuoteSQL = `
INSERT INTO quotes (key, source_key, start_off, end_off, text)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (key) DO NOTHING`

func (s *GraphDBStorage) UpsertQuote(ctx context.Context, quote common.Quote) (store.Outcome, error) {
	tag, err := s.conn.Exec(ctx, insertQuoteSQL,
		quote.Key, quote.SourceKey, quote.Start, quote.End, quote.Text,
	)
	if err != nil {
		return store.OutcomeUnchanged, fmt.Errorf("failed to upsert quote %s: %w", quote.Key, err)
	}
	if tag.RowsAffected() == 0 {
		return store.OutcomeUnchanged, nil
	}
	return store.OutcomeInserted, nil
}

const upsertEntitySQL = `
INSERT INTO entities (id, type, name, description, jurisdiction, attrs)
VALUES ($1, $2, $3, $4, $5, $6::jsonb)
ON CONFLICT (id) DO UPDATE SET
    type         = CASE WHEN excluded.type = ''         THEN entities.type         ELSE excluded.type         END,
    name         = CASE WHEN excluded.name = ''         THEN entities.name         ELSE excluded.name         END,
    description  = CASE WHEN excluded.description = ''  THEN entities.description  ELSE excluded.description  END,
    jurisdiction = CASE WHEN excluded.jurisdiction = '' THEN entities.jurisdiction ELSE excluded.jurisdiction END,
    attrs        = entities.attrs || excluded.attrs
WHERE (excluded.type <> '' AND excluded.type IS DISTINCT FROM entities.type)
   OR (excluded.name <> '' AND excluded.name IS DISTINCT FROM entities.name)
   OR (excluded.description <> '' AND excluded.description IS DISTINCT FROM entities.description)
   OR (excluded.jurisdiction <> '' AND excluded.jurisdiction IS DISTINCT FROM entities.jurisdiction)
   OR entities.attrs || excluded.attrs IS DISTINCT FROM entities.attrs
RETURNING (xmax = 0)`

func (s *GraphDBStorage) UpsertEntity(ctx context.Context, entity common.Entity) (store.Outcome, error) {
	if entity.ID == "" {
		return store.OutcomeUnchanged, fmt.Errorf("entity id is empty")
	}
	attrs, err := marshalAttrs(entity.Attrs)
	if err != nil {
		return store.OutcomeUnchanged, err
	}
	row := s.conn.QueryRow(ctx, upsertEntitySQL,
		entity.ID, entity.Type, entity.Name, entity.Description, entity.Jurisdiction, attrs,
	)
	outcome, err := scanUpsertOutcome(row)
	if err != nil {
		return store.OutcomeUnchanged, fmt.Errorf("failed to upsert entity %s: %w", entity.ID, err)
	}
	return outcome, nil
}

const upsertEdgeSQL = `
INSERT INTO edges (id, type, from_id, to_id, weight, conditions)
VALUES ($1, $2, $3, $4, $5, $6::jsonb)
ON CONFLICT (id) DO UPDATE SET
    weight     = CASE WHEN excluded.weight = 0 THEN edges.weight ELSE excluded.weight END,
    conditions = edges.conditions || excluded.conditions
WHERE (excluded.weight <> 0 AND excluded.weight IS DISTINCT FROM edges.weight)
   OR edges.conditions || excluded.conditions IS DISTINCT FROM edges.conditions
RETURNING (xmax = 0)`

func (s *GraphDBStorage) UpsertEdge(ctx context.Context, edge common.Edge) (store.Outcome, error) {
	if edge.ID == "" {
		return store.OutcomeUnchanged, fmt.Errorf("edge id is empty")
	}
	conditions, err := marshalAttrs(edge.Conditions)
	if err != nil {
		return store.OutcomeUnchanged, err
	}
	row := s.conn.QueryRow(ctx, upsertEdgeSQL,
		edge.ID, edge.Type, edge.From, edge.To, edge.Weight, conditions,
	)
	outcome, err := scanUpsertOutcome(row)
	if err != nil {
		return store.OutcomeUnchanged, fmt.Errorf("failed to upsert edge %s: %w", edge.ID, err)
	}
	return outcome, nil
}

const insertProvenanceSQL = `
INSERT INTO provenance (key, subject_id, source_key, quote_key)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO NOTHING`

func (s *GraphDBStorage) UpsertProvenance(ctx context.Context, prov common.Provenance) (store.Outcome, error) {
	tag, err := s.conn.Exec(ctx, insertProvenanceSQL,
		prov.Key, prov.SubjectID, prov.SourceKey, prov.QuoteKey,
	)
	if err != nil {
		return store.OutcomeUnchanged, fmt.Errorf("failed to upsert provenance %s: %w", prov.Key, err)
	}
	if tag.RowsAffected() == 0 {
		return store.OutcomeUnchanged, nil
	}
	return store.OutcomeInserted, nil
}

func marshalAttrs(attrs map[string]string) ([]byte, error) {
	if len(attrs) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	return data, nil
}
