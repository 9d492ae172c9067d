// Schema registry operations: schema lifecycle plus membership management
// of the (schema, field) join rows.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/facets/pkg/types"
)

// CreateSchema persists a schema and its initial field memberships in one
// transaction. The field set is validated as a whole (duplicate fields,
// duplicate orders, compact cap) and every referenced field must exist in
// the same collection.
func (s *Store) CreateSchema(sch *types.Schema) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	if sch == nil {
		return "", types.ErrInvalidData
	}
	if sch.Name == "" {
		return "", types.NewValidationError("schema name must not be empty")
	}
	if err := s.collectionExists(db, sch.CollectionID); err != nil {
		return "", err
	}
	if err := types.ValidateSchemaFields(sch.Fields); err != nil {
		return "", err
	}
	if err := s.verifyFieldsExist(sch.CollectionID, sch.Fields); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	sch.SchemaID = newID()
	sch.CreatedAt = now
	sch.UpdatedAt = now

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO schemas (schema_id, collection_id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		sch.SchemaID, sch.CollectionID, sch.Name, sch.Description,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", types.NewConflictError("a schema named %q already exists", sch.Name)
		}
		return "", fmt.Errorf("inserting schema: %w", err)
	}

	for i := range sch.Fields {
		sch.Fields[i].SchemaID = sch.SchemaID
		sf := sch.Fields[i]
		if _, err := tx.Exec(
			"INSERT INTO schema_fields (schema_id, field_id, display_order, compact) VALUES (?, ?, ?, ?)",
			sf.SchemaID, sf.FieldID, sf.DisplayOrder, boolToInt(sf.Compact),
		); err != nil {
			return "", fmt.Errorf("inserting schema field %s: %w", types.ShortID(sf.FieldID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing schema: %w", err)
	}
	return sch.SchemaID, nil
}

// UpdateSchemaMeta updates a schema's name and description. Field
// membership is managed by AddSchemaField, RemoveSchemaField, and
// ReorderSchemaFields, never by this call.
func (s *Store) UpdateSchemaMeta(collectionID, schemaID string, name, description *string) (*types.Schema, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	sch, err := s.GetSchema(collectionID, schemaID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if *name == "" {
			return nil, types.NewValidationError("schema name must not be empty")
		}
		sch.Name = *name
	}
	if description != nil {
		sch.Description = *description
	}
	sch.UpdatedAt = time.Now().UTC()

	_, err = db.Exec(
		"UPDATE schemas SET name = ?, description = ?, updated_at = ? WHERE schema_id = ?",
		sch.Name, sch.Description, formatTime(sch.UpdatedAt), schemaID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.NewConflictError("a schema named %q already exists", sch.Name)
		}
		return nil, fmt.Errorf("updating schema: %w", err)
	}
	return sch, nil
}

// DeleteSchema removes a schema. While labels still reference it the delete
// is blocked with a ConflictError unless cascade is set, in which case the
// storage-level SET NULL edge unbinds the labels; labels themselves are
// never deleted. Membership rows cascade away either way.
func (s *Store) DeleteSchema(collectionID, schemaID string, cascade bool) (types.DeleteStats, error) {
	var stats types.DeleteStats

	db, err := s.conn()
	if err != nil {
		return stats, err
	}
	if _, err := s.GetSchema(collectionID, schemaID); err != nil {
		return stats, err
	}

	if err := db.QueryRow(
		"SELECT COUNT(*) FROM labels WHERE schema_id = ?", schemaID,
	).Scan(&stats.LabelsUnbound); err != nil {
		return stats, fmt.Errorf("counting label references: %w", err)
	}
	if stats.LabelsUnbound > 0 && !cascade {
		return stats, types.NewConflictError(
			"schema %s is referenced by %d label(s); pass cascade to unbind them",
			types.ShortID(schemaID), stats.LabelsUnbound)
	}

	if err := db.QueryRow(
		"SELECT COUNT(*) FROM schema_fields WHERE schema_id = ?", schemaID,
	).Scan(&stats.SchemaFields); err != nil {
		return stats, fmt.Errorf("counting schema fields: %w", err)
	}

	if _, err := db.Exec("DELETE FROM schemas WHERE schema_id = ?", schemaID); err != nil {
		return stats, fmt.Errorf("deleting schema: %w", err)
	}
	return stats, nil
}

// AddSchemaField adds one field membership to a schema. The whole resulting
// set is re-validated, not just the new row.
func (s *Store) AddSchemaField(collectionID, schemaID string, sf types.SchemaField) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	sch, err := s.GetSchema(collectionID, schemaID)
	if err != nil {
		return err
	}
	if _, err := s.GetField(collectionID, sf.FieldID); err != nil {
		return err
	}

	sf.SchemaID = schemaID
	if err := types.ValidateSchemaFields(append(sch.Fields, sf)); err != nil {
		return err
	}

	_, err = db.Exec(
		"INSERT INTO schema_fields (schema_id, field_id, display_order, compact) VALUES (?, ?, ?, ?)",
		schemaID, sf.FieldID, sf.DisplayOrder, boolToInt(sf.Compact),
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Validation passed on our snapshot, so a concurrent writer won
			// the (schema, field) or order slot in between.
			return types.NewConcurrencyError(
				"schema %s changed concurrently while adding field %s",
				types.ShortID(schemaID), types.ShortID(sf.FieldID))
		}
		return fmt.Errorf("inserting schema field: %w", err)
	}
	return nil
}

// RemoveSchemaField removes one field membership. The underlying field
// definition and its stored values are untouched.
func (s *Store) RemoveSchemaField(collectionID, schemaID, fieldID string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := s.GetSchema(collectionID, schemaID); err != nil {
		return err
	}

	res, err := db.Exec(
		"DELETE FROM schema_fields WHERE schema_id = ? AND field_id = ?",
		schemaID, fieldID,
	)
	if err != nil {
		return fmt.Errorf("removing schema field: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking removal: %w", err)
	}
	if n == 0 {
		return types.NewNotFoundError("schema field", fieldID)
	}
	return nil
}

// ReorderSchemaFields applies a batch of display-order and compact-flag
// changes atomically. Entries must reference current members; the whole
// resulting set is re-validated against the unique-order and compact-cap
// invariants. The membership rows are rewritten in one transaction, which
// also sidesteps transient unique collisions while orders swap.
func (s *Store) ReorderSchemaFields(collectionID, schemaID string, entries []types.SchemaField) (*types.Schema, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	sch, err := s.GetSchema(collectionID, schemaID)
	if err != nil {
		return nil, err
	}

	current := make(map[string]*types.SchemaField, len(sch.Fields))
	for i := range sch.Fields {
		current[sch.Fields[i].FieldID] = &sch.Fields[i]
	}

	detail := map[string]string{}
	for _, e := range entries {
		sf, ok := current[e.FieldID]
		if !ok {
			detail[types.ShortID(e.FieldID)] = "not a member of this schema"
			continue
		}
		sf.DisplayOrder = e.DisplayOrder
		sf.Compact = e.Compact
	}
	if len(detail) > 0 {
		return nil, &types.ValidationError{Message: "invalid reorder request", Fields: detail}
	}
	if err := types.ValidateSchemaFields(sch.Fields); err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM schema_fields WHERE schema_id = ?", schemaID); err != nil {
		return nil, fmt.Errorf("clearing schema fields: %w", err)
	}
	for _, sf := range sch.Fields {
		if _, err := tx.Exec(
			"INSERT INTO schema_fields (schema_id, field_id, display_order, compact) VALUES (?, ?, ?, ?)",
			schemaID, sf.FieldID, sf.DisplayOrder, boolToInt(sf.Compact),
		); err != nil {
			return nil, fmt.Errorf("rewriting schema field %s: %w", types.ShortID(sf.FieldID), err)
		}
	}
	if _, err := tx.Exec(
		"UPDATE schemas SET updated_at = ? WHERE schema_id = ?",
		formatTime(time.Now().UTC()), schemaID,
	); err != nil {
		return nil, fmt.Errorf("touching schema: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reorder: %w", err)
	}
	return s.GetSchema(collectionID, schemaID)
}

// GetSchema retrieves a schema with its memberships ordered by display
// order. Cross-collection access reports NotFoundError.
func (s *Store) GetSchema(collectionID, schemaID string) (*types.Schema, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if schemaID == "" {
		return nil, types.ErrInvalidID
	}

	row := db.QueryRow(
		"SELECT schema_id, collection_id, name, description, created_at, updated_at FROM schemas WHERE schema_id = ? AND collection_id = ?",
		schemaID, collectionID,
	)
	sch, err := hydrateSchema(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError("schema", schemaID)
		}
		return nil, fmt.Errorf("getting schema %s: %w", schemaID, err)
	}

	sch.Fields, err = s.schemaFieldsFor(db, schemaID)
	if err != nil {
		return nil, err
	}
	return sch, nil
}

// ListSchemas returns the schemas of a collection ordered by creation time,
// each with its ordered memberships.
func (s *Store) ListSchemas(collectionID string) ([]types.Schema, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT schema_id, collection_id, name, description, created_at, updated_at FROM schemas WHERE collection_id = ? ORDER BY created_at ASC",
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}
	defer rows.Close()

	schemas := []types.Schema{}
	for rows.Next() {
		sch, err := hydrateSchema(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating schema: %w", err)
		}
		schemas = append(schemas, *sch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schemas: %w", err)
	}

	for i := range schemas {
		schemas[i].Fields, err = s.schemaFieldsFor(db, schemas[i].SchemaID)
		if err != nil {
			return nil, err
		}
	}
	return schemas, nil
}

// MembershipsForSchemas loads the membership rows of several schemas in one
// query. Row order is unspecified; union resolution sorts after merging.
func (s *Store) MembershipsForSchemas(schemaIDs []string) ([]types.SchemaField, error) {
	if len(schemaIDs) == 0 {
		return []types.SchemaField{}, nil
	}

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(schemaIDs))
	for _, id := range schemaIDs {
		args = append(args, id)
	}

	rows, err := db.Query(
		"SELECT schema_id, field_id, display_order, compact FROM schema_fields WHERE schema_id IN ("+placeholders(len(schemaIDs))+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("loading schema fields: %w", err)
	}
	defer rows.Close()

	fields := []types.SchemaField{}
	for rows.Next() {
		var sf types.SchemaField
		var compact int
		if err := rows.Scan(&sf.SchemaID, &sf.FieldID, &sf.DisplayOrder, &compact); err != nil {
			return nil, fmt.Errorf("scanning schema field: %w", err)
		}
		sf.Compact = compact != 0
		fields = append(fields, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schema fields: %w", err)
	}
	return fields, nil
}

// schemaFieldsFor loads a schema's membership rows ordered by display order.
func (s *Store) schemaFieldsFor(db *sql.DB, schemaID string) ([]types.SchemaField, error) {
	rows, err := db.Query(
		"SELECT schema_id, field_id, display_order, compact FROM schema_fields WHERE schema_id = ? ORDER BY display_order ASC",
		schemaID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading schema fields: %w", err)
	}
	defer rows.Close()

	fields := []types.SchemaField{}
	for rows.Next() {
		var sf types.SchemaField
		var compact int
		if err := rows.Scan(&sf.SchemaID, &sf.FieldID, &sf.DisplayOrder, &compact); err != nil {
			return nil, fmt.Errorf("scanning schema field: %w", err)
		}
		sf.Compact = compact != 0
		fields = append(fields, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schema fields: %w", err)
	}
	return fields, nil
}

// verifyFieldsExist checks that every referenced field belongs to the
// collection, naming the missing ones by truncated ID.
func (s *Store) verifyFieldsExist(collectionID string, fields []types.SchemaField) error {
	detail := map[string]string{}
	for _, sf := range fields {
		if _, err := s.GetField(collectionID, sf.FieldID); err != nil {
			if types.IsNotFound(err) {
				detail[types.ShortID(sf.FieldID)] = "field does not exist"
				continue
			}
			return err
		}
	}
	if len(detail) > 0 {
		return &types.ValidationError{Message: "unknown fields in schema", Fields: detail}
	}
	return nil
}

func hydrateSchema(scan func(...any) error) (*types.Schema, error) {
	var sch types.Schema
	var desc sql.NullString
	var createdAt, updatedAt string
	if err := scan(
		&sch.SchemaID, &sch.CollectionID, &sch.Name, &desc, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if desc.Valid {
		sch.Description = desc.String
	}
	var err error
	if sch.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if sch.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &sch, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
