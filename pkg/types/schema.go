package types

import (
	"fmt"
	"strings"
	"time"
)

// MaxCompactFields is the most fields a schema (and, after union resolution,
// an item) may flag for compact card views.
const MaxCompactFields = 3

// SchemaField associates one field with one schema. Its identity is the
// (SchemaID, FieldID) pair; there is no surrogate ID because the association
// has no meaning outside its two parents.
type SchemaField struct {
	SchemaID     string `json:"schema_id"`
	FieldID      string `json:"field_id"`
	DisplayOrder int    `json:"display_order"` // unique within the schema
	Compact      bool   `json:"compact"`       // shown in compact card views
}

// Schema is a named, reusable bundle of fields owned by a collection.
// Fields is ordered by DisplayOrder when loaded from the store.
type Schema struct {
	SchemaID     string        `json:"schema_id"`
	CollectionID string        `json:"collection_id"`
	Name         string        `json:"name"` // unique within collection
	Description  string        `json:"description,omitempty"`
	Fields       []SchemaField `json:"fields"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ShortID truncates an entity ID for error messages, keeping enough of the
// UUID to be actionable without flooding the message.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// ValidateSchemaFields checks a complete schema field set: no duplicate
// field IDs, no duplicate display orders, and at most MaxCompactFields
// compact entries. Each violation names the offending fields by truncated
// ID so the caller can render an actionable error.
func ValidateSchemaFields(fields []SchemaField) error {
	detail := map[string]string{}

	seenField := make(map[string]bool, len(fields))
	seenOrder := make(map[int]string, len(fields))
	var compact []string
	for _, sf := range fields {
		if sf.FieldID == "" {
			detail["field_id"] = "must not be empty"
			continue
		}
		if seenField[sf.FieldID] {
			detail[ShortID(sf.FieldID)] = "field listed more than once"
		}
		seenField[sf.FieldID] = true

		if prev, dup := seenOrder[sf.DisplayOrder]; dup {
			detail[ShortID(sf.FieldID)] = fmt.Sprintf(
				"display order %d already used by field %s", sf.DisplayOrder, ShortID(prev))
		} else {
			seenOrder[sf.DisplayOrder] = sf.FieldID
		}

		if sf.Compact {
			compact = append(compact, ShortID(sf.FieldID))
		}
	}

	if len(compact) > MaxCompactFields {
		detail["compact"] = fmt.Sprintf(
			"at most %d fields may be compact, got %d (%s)",
			MaxCompactFields, len(compact), strings.Join(compact, ", "))
	}

	if len(detail) > 0 {
		return &ValidationError{Message: "invalid schema field set", Fields: detail}
	}
	return nil
}
