// Field catalog operations: create, update, delete (cascading), lookup,
// listing, and the race-safe duplicate-name pre-check.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/facets/pkg/types"
)

const fieldColumns = "field_id, collection_id, name, field_type, rating_max, options, max_length, created_at, updated_at"

// FieldUpdate carries the mutable parts of a field for partial updates.
// Nil pointers leave the current value unchanged.
type FieldUpdate struct {
	Name   *string
	Type   *string
	Config *types.FieldConfig
}

// CreateField validates and persists a new field definition. The collection
// must exist. Duplicate names (case-insensitive) are rejected with a
// ConflictError; the per-collection unique index on the NOCASE name column
// is the guard, so two concurrent creates cannot both succeed.
func (s *Store) CreateField(f *types.Field) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	if f == nil {
		return "", types.ErrInvalidData
	}
	if err := f.ValidateConfig(); err != nil {
		return "", err
	}
	if err := s.collectionExists(db, f.CollectionID); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	f.FieldID = newID()
	f.CreatedAt = now
	f.UpdatedAt = now

	optionsJSON, err := encodeOptions(f.Config.Options)
	if err != nil {
		return "", err
	}

	_, err = db.Exec(
		"INSERT INTO fields (field_id, collection_id, name, field_type, rating_max, options, max_length, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		f.FieldID, f.CollectionID, f.Name, f.Type,
		f.Config.RatingMax, optionsJSON, f.Config.MaxLength,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", types.NewConflictError("a field named %q already exists", f.Name)
		}
		return "", fmt.Errorf("inserting field: %w", err)
	}
	return f.FieldID, nil
}

// UpdateField applies a partial update to a field. Rename and retype pass
// the same config/type validation as create. Retyping clears stored values
// whose kind no longer matches the new type, so stale scalars never leak
// into projections.
func (s *Store) UpdateField(collectionID, fieldID string, upd FieldUpdate) (*types.Field, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	f, err := s.GetField(collectionID, fieldID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		f.Name = *upd.Name
	}
	if upd.Type != nil {
		f.Type = *upd.Type
	}
	if upd.Config != nil {
		f.Config = *upd.Config
	}
	if err := f.ValidateConfig(); err != nil {
		return nil, err
	}
	f.UpdatedAt = time.Now().UTC()

	optionsJSON, err := encodeOptions(f.Config.Options)
	if err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"UPDATE fields SET name = ?, field_type = ?, rating_max = ?, options = ?, max_length = ?, updated_at = ? WHERE field_id = ?",
		f.Name, f.Type, f.Config.RatingMax, optionsJSON, f.Config.MaxLength,
		formatTime(f.UpdatedAt), fieldID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.NewConflictError("a field named %q already exists", f.Name)
		}
		return nil, fmt.Errorf("updating field: %w", err)
	}

	if upd.Type != nil {
		kind := types.ValueKindFor(f.Type)
		if _, err := tx.Exec(
			"DELETE FROM field_values WHERE field_id = ? AND value_kind != ?",
			fieldID, string(kind),
		); err != nil {
			return nil, fmt.Errorf("clearing mismatched values: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing field update: %w", err)
	}
	return f, nil
}

// DeleteField removes a field. The schema_fields and field_values rows
// referencing it are removed by the storage-level cascade; the returned
// stats report how many dependents went with it.
func (s *Store) DeleteField(collectionID, fieldID string) (types.DeleteStats, error) {
	var stats types.DeleteStats

	db, err := s.conn()
	if err != nil {
		return stats, err
	}
	if _, err := s.GetField(collectionID, fieldID); err != nil {
		return stats, err
	}

	if err := db.QueryRow(
		"SELECT COUNT(*) FROM schema_fields WHERE field_id = ?", fieldID,
	).Scan(&stats.SchemaFields); err != nil {
		return stats, fmt.Errorf("counting schema fields: %w", err)
	}
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM field_values WHERE field_id = ?", fieldID,
	).Scan(&stats.FieldValues); err != nil {
		return stats, fmt.Errorf("counting field values: %w", err)
	}

	if _, err := db.Exec("DELETE FROM fields WHERE field_id = ?", fieldID); err != nil {
		return stats, fmt.Errorf("deleting field: %w", err)
	}
	return stats, nil
}

// GetField retrieves a field scoped to a collection. A field belonging to
// another collection reports the same NotFoundError as a missing one.
func (s *Store) GetField(collectionID, fieldID string) (*types.Field, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if fieldID == "" {
		return nil, types.ErrInvalidID
	}

	row := db.QueryRow(
		"SELECT "+fieldColumns+" FROM fields WHERE field_id = ? AND collection_id = ?",
		fieldID, collectionID,
	)
	f, err := hydrateField(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError("field", fieldID)
		}
		return nil, fmt.Errorf("getting field %s: %w", fieldID, err)
	}
	return f, nil
}

// ListFields returns the fields of a collection ordered by creation time.
func (s *Store) ListFields(collectionID string) ([]types.Field, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT "+fieldColumns+" FROM fields WHERE collection_id = ? ORDER BY created_at ASC",
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	defer rows.Close()

	fields := []types.Field{}
	for rows.Next() {
		f, err := hydrateField(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating field: %w", err)
		}
		fields = append(fields, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fields: %w", err)
	}
	return fields, nil
}

// FieldsByID loads several field definitions in one query, keyed by ID.
// IDs belonging to another collection are absent from the result rather
// than an error, matching the single-field lookup's scoping.
func (s *Store) FieldsByID(collectionID string, fieldIDs []string) (map[string]types.Field, error) {
	fields := map[string]types.Field{}
	if len(fieldIDs) == 0 {
		return fields, nil
	}

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(fieldIDs)+1)
	for _, id := range fieldIDs {
		args = append(args, id)
	}
	args = append(args, collectionID)

	rows, err := db.Query(
		"SELECT "+fieldColumns+" FROM fields WHERE field_id IN ("+placeholders(len(fieldIDs))+") AND collection_id = ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("loading fields by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := hydrateField(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating field: %w", err)
		}
		fields[f.FieldID] = *f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fields: %w", err)
	}
	return fields, nil
}

// CheckDuplicateName reports whether a field with the candidate name exists
// in the collection, returning its full definition when found. The check is
// a single case-folded equality query against the NOCASE column, not a
// read-then-write pair, so it stays race-safe for live UI feedback.
func (s *Store) CheckDuplicateName(collectionID, name string) (*types.Field, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRow(
		"SELECT "+fieldColumns+" FROM fields WHERE collection_id = ? AND name = ?",
		collectionID, name,
	)
	f, err := hydrateField(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("checking duplicate name: %w", err)
	}
	return f, nil
}

// encodeOptions serializes a select field's option list as JSON, or NULL
// when empty.
func encodeOptions(options []string) (any, error) {
	if len(options) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("encoding options: %w", err)
	}
	return string(data), nil
}

// hydrateField converts one fields row into a *types.Field. The scan
// argument abstracts over sql.Row and sql.Rows.
func hydrateField(scan func(...any) error) (*types.Field, error) {
	var f types.Field
	var options sql.NullString
	var createdAt, updatedAt string
	if err := scan(
		&f.FieldID, &f.CollectionID, &f.Name, &f.Type,
		&f.Config.RatingMax, &options, &f.Config.MaxLength,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &f.Config.Options); err != nil {
			return nil, fmt.Errorf("decoding options: %w", err)
		}
	}
	var err error
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &f, nil
}

// collectionExists verifies the owning collection, mapping absence to
// NotFoundError.
func (s *Store) collectionExists(db *sql.DB, collectionID string) error {
	if collectionID == "" {
		return types.ErrInvalidID
	}
	var one int
	err := db.QueryRow(
		"SELECT 1 FROM collections WHERE collection_id = ?", collectionID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return types.NewNotFoundError("collection", collectionID)
	}
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	return nil
}
