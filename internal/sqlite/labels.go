// Label schema binding. Labels belong to the surrounding bookmark
// application; the field system only reads them and manages the optional
// schema reference.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/facets/pkg/types"
)

// BindLabelSchema sets or clears a label's schema binding. A nil schemaID
// unbinds. The schema, when given, must exist in the label's collection.
func (s *Store) BindLabelSchema(collectionID, labelID string, schemaID *string) (*types.Label, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	label, err := s.GetLabel(collectionID, labelID)
	if err != nil {
		return nil, err
	}
	if schemaID != nil {
		if _, err := s.GetSchema(collectionID, *schemaID); err != nil {
			return nil, err
		}
	}

	if _, err := db.Exec(
		"UPDATE labels SET schema_id = ? WHERE label_id = ?",
		schemaID, labelID,
	); err != nil {
		return nil, fmt.Errorf("binding label schema: %w", err)
	}

	label.SchemaID = schemaID
	return label, nil
}

// GetLabel retrieves a label scoped to a collection.
func (s *Store) GetLabel(collectionID, labelID string) (*types.Label, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if labelID == "" {
		return nil, types.ErrInvalidID
	}

	row := db.QueryRow(
		"SELECT label_id, collection_id, name, schema_id, created_at FROM labels WHERE label_id = ? AND collection_id = ?",
		labelID, collectionID,
	)
	label, err := hydrateLabel(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError("label", labelID)
		}
		return nil, fmt.Errorf("getting label %s: %w", labelID, err)
	}
	return label, nil
}

// CreateLabel persists a label. Exposed for the surrounding application and
// the end-to-end tests; label CRUD beyond this is out of the field system's
// hands.
func (s *Store) CreateLabel(label *types.Label) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	if label == nil || label.Name == "" {
		return "", types.ErrInvalidData
	}
	if err := s.collectionExists(db, label.CollectionID); err != nil {
		return "", err
	}

	label.LabelID = newID()
	label.CreatedAt = time.Now().UTC()

	_, err = db.Exec(
		"INSERT INTO labels (label_id, collection_id, name, schema_id, created_at) VALUES (?, ?, ?, ?, ?)",
		label.LabelID, label.CollectionID, label.Name, label.SchemaID, formatTime(label.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", types.NewConflictError("a label named %q already exists", label.Name)
		}
		return "", fmt.Errorf("inserting label: %w", err)
	}
	return label.LabelID, nil
}

// LabelsForItem returns the labels applied to an item, oldest first.
func (s *Store) LabelsForItem(itemID string) ([]types.Label, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		`SELECT l.label_id, l.collection_id, l.name, l.schema_id, l.created_at
		 FROM labels l
		 JOIN item_labels il ON il.label_id = l.label_id
		 WHERE il.item_id = ?
		 ORDER BY l.created_at ASC`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading item labels: %w", err)
	}
	defer rows.Close()

	labels := []types.Label{}
	for rows.Next() {
		label, err := hydrateLabel(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating label: %w", err)
		}
		labels = append(labels, *label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating labels: %w", err)
	}
	return labels, nil
}

func hydrateLabel(scan func(...any) error) (*types.Label, error) {
	var label types.Label
	var schemaID sql.NullString
	var createdAt string
	if err := scan(
		&label.LabelID, &label.CollectionID, &label.Name, &schemaID, &createdAt,
	); err != nil {
		return nil, err
	}
	if schemaID.Valid {
		label.SchemaID = &schemaID.String
	}
	var err error
	if label.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &label, nil
}
