package types

import "time"

// Label is a classification entity owned by the surrounding bookmark
// application, extended here with an optional schema binding. SchemaID is
// nil when the label carries no schema; deleting the bound schema resets
// the binding to nil without touching the label itself.
type Label struct {
	LabelID      string    `json:"label_id"`
	CollectionID string    `json:"collection_id"`
	Name         string    `json:"name"`
	SchemaID     *string   `json:"schema_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Item is a bookmarked entry, modeled only as far as the field system needs:
// its identity, its collection, and the labels applied to it.
type Item struct {
	ItemID       string    `json:"item_id"`
	CollectionID string    `json:"collection_id"`
	Title        string    `json:"title"`
	URL          string    `json:"url,omitempty"`
	LabelIDs     []string  `json:"label_ids"`
	CreatedAt    time.Time `json:"created_at"`
}
