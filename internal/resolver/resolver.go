// Package resolver computes an item's effective field list: the union of
// all schemas reachable through the item's applied labels, de-duplicated by
// field, conflict-resolved, and joined with stored values into a
// display-and-edit-ready projection.
package resolver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mesh-intelligence/facets/internal/sqlite"
	"github.com/mesh-intelligence/facets/pkg/types"
)

// Resolver resolves item projections over a store, memoizing results per
// item until a write path invalidates them. Resolution itself is a pure
// function of labels, schema memberships, and stored values.
type Resolver struct {
	store *sqlite.Store

	mu    sync.RWMutex
	cache map[string]*types.ItemProjection
}

// New creates a Resolver over the given store.
func New(store *sqlite.Store) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string]*types.ItemProjection),
	}
}

// Resolve returns the projection for one item, serving a cached copy when
// the item has not been invalidated since the last computation. A cached
// projection is only served to the item's own collection; any other
// collection falls through to compute, whose item lookup reports the same
// NotFoundError as a genuinely absent ID.
func (r *Resolver) Resolve(collectionID, itemID string) (*types.ItemProjection, error) {
	r.mu.RLock()
	cached, ok := r.cache[itemID]
	r.mu.RUnlock()
	if ok && cached.Item.CollectionID == collectionID {
		return cached, nil
	}

	proj, err := r.compute(collectionID, itemID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[itemID] = proj
	r.mu.Unlock()
	return proj, nil
}

// InvalidateItem drops the cached projection of one item. Called after a
// value write for that item.
func (r *Resolver) InvalidateItem(itemID string) {
	r.mu.Lock()
	delete(r.cache, itemID)
	r.mu.Unlock()
}

// InvalidateAll drops every cached projection. Called after any mutation of
// fields, schema memberships, or label bindings, all of which can change an
// unknown set of items.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string]*types.ItemProjection)
	r.mu.Unlock()
}

// merged is the working record for one field during schema union.
type merged struct {
	fieldID string
	order   int
	compact bool
}

// compute runs the union algorithm:
//
//  1. resolve labels to bound schema IDs, skipping unbound labels
//  2. de-duplicate schema IDs
//  3. load every schema's field memberships in one query
//  4. merge by field ID: compact flags OR together, the display order is
//     the lowest order any contributing schema assigns
//  5. truncate compact flags beyond the per-item cap in stable order
//  6. join with stored values, materializing nulls for unset fields
//  7. sort by (order, field ID)
//
// The read path costs a fixed number of queries regardless of how many
// schemas or fields an item reaches.
func (r *Resolver) compute(collectionID, itemID string) (*types.ItemProjection, error) {
	item, err := r.store.GetItem(collectionID, itemID)
	if err != nil {
		return nil, err
	}

	labels, err := r.store.LabelsForItem(itemID)
	if err != nil {
		return nil, err
	}

	seenSchema := map[string]bool{}
	schemaIDs := []string{}
	for _, label := range labels {
		if label.SchemaID == nil {
			continue
		}
		if seenSchema[*label.SchemaID] {
			continue
		}
		seenSchema[*label.SchemaID] = true
		schemaIDs = append(schemaIDs, *label.SchemaID)
	}

	memberships, err := r.store.MembershipsForSchemas(schemaIDs)
	if err != nil {
		return nil, err
	}

	byField := map[string]*merged{}
	for _, sf := range memberships {
		m, ok := byField[sf.FieldID]
		if !ok {
			byField[sf.FieldID] = &merged{
				fieldID: sf.FieldID,
				order:   sf.DisplayOrder,
				compact: sf.Compact,
			}
			continue
		}
		if sf.DisplayOrder < m.order {
			m.order = sf.DisplayOrder
		}
		m.compact = m.compact || sf.Compact
	}

	ordered := make([]*merged, 0, len(byField))
	for _, m := range byField {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].order != ordered[j].order {
			return ordered[i].order < ordered[j].order
		}
		return ordered[i].fieldID < ordered[j].fieldID
	})

	// OR'd compact flags can exceed the per-item cap when several schemas
	// each flag different fields; truncate in stable order.
	compactCount := 0
	for _, m := range ordered {
		if !m.compact {
			continue
		}
		compactCount++
		if compactCount > types.MaxCompactFields {
			m.compact = false
		}
	}

	values, err := r.store.ValuesForItem(itemID)
	if err != nil {
		return nil, err
	}

	fieldIDs := make([]string, 0, len(ordered))
	for _, m := range ordered {
		fieldIDs = append(fieldIDs, m.fieldID)
	}
	defs, err := r.store.FieldsByID(collectionID, fieldIDs)
	if err != nil {
		return nil, err
	}

	fields := make([]types.ResolvedField, 0, len(ordered))
	for _, m := range ordered {
		field, ok := defs[m.fieldID]
		if !ok {
			return nil, fmt.Errorf("resolving field %s: %w",
				types.ShortID(m.fieldID), types.NewNotFoundError("field", m.fieldID))
		}
		value := types.NullValue()
		if fv, ok := values[m.fieldID]; ok {
			value = fv.Value
		}
		fields = append(fields, types.ResolvedField{
			Field:        field,
			DisplayOrder: m.order,
			Compact:      m.compact,
			Value:        value,
		})
	}

	return &types.ItemProjection{Item: *item, Fields: fields}, nil
}
