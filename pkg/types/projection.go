package types

import "time"

// FieldValue is the stored value of one field for one item. At most one row
// exists per (item, field) pair; the store enforces this with an atomic
// upsert keyed on the pair.
type FieldValue struct {
	ItemID    string    `json:"item_id"`
	FieldID   string    `json:"field_id"`
	Value     Value     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValueUpdate is one entry of a batched write: set (or clear, when Value is
// null) the value of one field on one item.
type ValueUpdate struct {
	FieldID string `json:"field_id"`
	Value   Value  `json:"value"`
}

// ResolvedField is one row of an item's effective field list: the field
// definition, its resolved display order and compact flag, and the stored
// value (null when the item has none, so clients render an empty control
// instead of omitting the field).
type ResolvedField struct {
	Field        Field `json:"field"`
	DisplayOrder int   `json:"display_order"`
	Compact      bool  `json:"compact"`
	Value        Value `json:"value"`
}

// ItemProjection is the display-and-edit-ready view of one item: the item
// itself plus its resolved field list, ordered by display order.
type ItemProjection struct {
	Item   Item            `json:"item"`
	Fields []ResolvedField `json:"fields"`
}

// DeleteStats reports how many dependent rows a cascading delete removed,
// for observability; the delete itself is irreversible.
type DeleteStats struct {
	SchemaFields  int64 `json:"schema_fields"`
	FieldValues   int64 `json:"field_values"`
	LabelsUnbound int64 `json:"labels_unbound"`
}
