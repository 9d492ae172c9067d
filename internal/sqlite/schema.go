package sqlite

// Schema DDL. Every cross-entity edge names its delete policy explicitly:
//
//   - field deleted    -> schema_fields and field_values rows cascade
//   - schema deleted   -> schema_fields rows cascade, labels.schema_id set null
//   - item deleted     -> item_labels and field_values rows cascade
//   - label deleted    -> item_labels rows cascade
//
// fields.name carries COLLATE NOCASE so the per-collection unique index is
// case-insensitive at the storage layer; two concurrent creates can never
// both succeed with different-case duplicates.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS collections (
    collection_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fields (
    field_id TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL,
    name TEXT NOT NULL COLLATE NOCASE,
    field_type TEXT NOT NULL,
    rating_max INTEGER NOT NULL DEFAULT 0,
    options TEXT,
    max_length INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (collection_id) REFERENCES collections(collection_id) ON DELETE CASCADE,
    UNIQUE (collection_id, name)
);

CREATE TABLE IF NOT EXISTS schemas (
    schema_id TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (collection_id) REFERENCES collections(collection_id) ON DELETE CASCADE,
    UNIQUE (collection_id, name)
);

CREATE TABLE IF NOT EXISTS schema_fields (
    schema_id TEXT NOT NULL,
    field_id TEXT NOT NULL,
    display_order INTEGER NOT NULL,
    compact INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (schema_id, field_id),
    UNIQUE (schema_id, display_order),
    FOREIGN KEY (schema_id) REFERENCES schemas(schema_id) ON DELETE CASCADE,
    FOREIGN KEY (field_id) REFERENCES fields(field_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS items (
    item_id TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL,
    title TEXT NOT NULL,
    url TEXT,
    created_at TEXT NOT NULL,
    FOREIGN KEY (collection_id) REFERENCES collections(collection_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS labels (
    label_id TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL,
    name TEXT NOT NULL,
    schema_id TEXT,
    created_at TEXT NOT NULL,
    FOREIGN KEY (collection_id) REFERENCES collections(collection_id) ON DELETE CASCADE,
    FOREIGN KEY (schema_id) REFERENCES schemas(schema_id) ON DELETE SET NULL,
    UNIQUE (collection_id, name)
);

CREATE TABLE IF NOT EXISTS item_labels (
    item_id TEXT NOT NULL,
    label_id TEXT NOT NULL,
    PRIMARY KEY (item_id, label_id),
    FOREIGN KEY (item_id) REFERENCES items(item_id) ON DELETE CASCADE,
    FOREIGN KEY (label_id) REFERENCES labels(label_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS field_values (
    item_id TEXT NOT NULL,
    field_id TEXT NOT NULL,
    value_kind TEXT NOT NULL,
    num_value REAL,
    text_value TEXT,
    bool_value INTEGER,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (item_id, field_id),
    FOREIGN KEY (item_id) REFERENCES items(item_id) ON DELETE CASCADE,
    FOREIGN KEY (field_id) REFERENCES fields(field_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_schema_fields_field ON schema_fields(field_id);
CREATE INDEX IF NOT EXISTS idx_field_values_field ON field_values(field_id);
CREATE INDEX IF NOT EXISTS idx_labels_schema ON labels(schema_id);
`
