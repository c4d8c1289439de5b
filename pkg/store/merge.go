package store

import "github.com/statutelab/lexgraph/pkg/common"

// Merge policies shared by backends. Each returns the merged record and
// whether anything changed, so upserts can report OutcomeUnchanged.

// MergeSource fills optional fields that were previously missing and never
// clobbers fields already set on the stored record.
func MergeSource(old, next common.Source) (common.Source, bool) {
	changed := false
	if old.Title == "" && next.Title != "" {
		old.Title = next.Title
		changed = true
	}
	if old.Jurisdiction == "" && next.Jurisdiction != "" {
		old.Jurisdiction = next.Jurisdiction
		changed = true
	}
	if old.Authority == "" && next.Authority != "" {
		old.Authority = next.Authority
		changed = true
	}
	if old.Kind == "" && next.Kind != "" {
		old.Kind = next.Kind
		changed = true
	}
	return old, changed
}

// MergeEntity merges newly supplied fields into an existing entity.
// Re-supplied values win; existing attributes are never deleted.
func MergeEntity(old, next common.Entity) (common.Entity, bool) {
	changed := false
	if next.Name != "" && next.Name != old.Name {
		old.Name = next.Name
		changed = true
	}
	if next.Type != "" && next.Type != old.Type {
		old.Type = next.Type
		changed = true
	}
	if next.Description != "" && next.Description != old.Description {
		old.Description = next.Description
		changed = true
	}
	if next.Jurisdiction != "" && next.Jurisdiction != old.Jurisdiction {
		old.Jurisdiction = next.Jurisdiction
		changed = true
	}
	for k, v := range next.Attrs {
		if old.Attrs[k] == v {
			continue
		}
		if old.Attrs == nil {
			old.Attrs = make(map[string]string, len(next.Attrs))
		}
		old.Attrs[k] = v
		changed = true
	}
	return old, changed
}

// MergeEdge merges newly supplied fields into an existing edge with the same
// stable ID. Endpoints and type are fixed at extraction time and not merged.
func MergeEdge(old, next common.Edge) (common.Edge, bool) {
	changed := false
	if next.Weight != 0 && next.Weight != old.Weight {
		old.Weight = next.Weight
		changed = true
	}
	for k, v := range next.Conditions {
		if old.Conditions[k] == v {
			continue
		}
		if old.Conditions == nil {
			old.Conditions = make(map[string]string, len(next.Conditions))
		}
		old.Conditions[k] = v
		changed = true
	}
	return old, changed
}
