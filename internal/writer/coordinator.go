// Package writer implements the write coordinator for batched field value
// updates: validate every entry against the field's current type and
// config, then persist the whole batch atomically or not at all.
package writer

import (
	"github.com/mesh-intelligence/facets/internal/resolver"
	"github.com/mesh-intelligence/facets/internal/sqlite"
	"github.com/mesh-intelligence/facets/pkg/types"
)

// Coordinator validates and persists batched value updates and keeps the
// resolver's cached projections honest.
type Coordinator struct {
	store    *sqlite.Store
	resolver *resolver.Resolver
}

// New creates a Coordinator over the given store and resolver.
func New(store *sqlite.Store, res *resolver.Resolver) *Coordinator {
	return &Coordinator{store: store, resolver: res}
}

// BatchUpdate applies a batch of value updates to one item. Every entry is
// validated first; any failure aborts the whole batch with a per-field
// error map and no partial writes, so the caller's optimistic state for the
// other fields is never half-committed. On success the new canonical values
// are returned for reconciliation.
func (c *Coordinator) BatchUpdate(collectionID, itemID string, updates []types.ValueUpdate) ([]types.FieldValue, error) {
	if _, err := c.store.GetItem(collectionID, itemID); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return []types.FieldValue{}, nil
	}

	detail := map[string]string{}
	values := make([]types.FieldValue, 0, len(updates))
	seen := map[string]bool{}
	for _, u := range updates {
		if seen[u.FieldID] {
			detail[types.ShortID(u.FieldID)] = "field appears more than once in the batch"
			continue
		}
		seen[u.FieldID] = true

		field, err := c.store.GetField(collectionID, u.FieldID)
		if err != nil {
			if types.IsNotFound(err) {
				detail[types.ShortID(u.FieldID)] = "field does not exist"
				continue
			}
			return nil, err
		}
		if err := field.ValidateValue(u.Value); err != nil {
			detail[types.ShortID(u.FieldID)] = err.Error()
			continue
		}
		values = append(values, types.FieldValue{
			ItemID:  itemID,
			FieldID: u.FieldID,
			Value:   u.Value,
		})
	}
	if len(detail) > 0 {
		return nil, &types.ValidationError{Message: "batch rejected", Fields: detail}
	}

	canonical, err := c.store.UpsertValues(itemID, values)
	if err != nil {
		return nil, err
	}
	c.resolver.InvalidateItem(itemID)
	return canonical, nil
}
