// Minimal collection and item access. Both entities are owned by the
// surrounding bookmark application; the field system needs them only as
// foreign-key anchors and for label application.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/facets/pkg/types"
)

// EnsureCollection creates a collection if it does not exist. Used at
// startup for the default collection and by tests.
func (s *Store) EnsureCollection(collectionID, name string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if collectionID == "" {
		return types.ErrInvalidID
	}

	_, err = db.Exec(
		"INSERT INTO collections (collection_id, name, created_at) VALUES (?, ?, ?) ON CONFLICT(collection_id) DO NOTHING",
		collectionID, name, formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}
	return nil
}

// CreateItem persists a bookmarked item.
func (s *Store) CreateItem(item *types.Item) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	if item == nil || item.Title == "" {
		return "", types.ErrInvalidData
	}
	if err := s.collectionExists(db, item.CollectionID); err != nil {
		return "", err
	}

	item.ItemID = newID()
	item.CreatedAt = time.Now().UTC()

	_, err = db.Exec(
		"INSERT INTO items (item_id, collection_id, title, url, created_at) VALUES (?, ?, ?, ?, ?)",
		item.ItemID, item.CollectionID, item.Title, item.URL, formatTime(item.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("inserting item: %w", err)
	}
	return item.ItemID, nil
}

// GetItem retrieves an item with its applied label IDs, scoped to a
// collection.
func (s *Store) GetItem(collectionID, itemID string) (*types.Item, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if itemID == "" {
		return nil, types.ErrInvalidID
	}

	row := db.QueryRow(
		"SELECT item_id, collection_id, title, url, created_at FROM items WHERE item_id = ? AND collection_id = ?",
		itemID, collectionID,
	)
	var item types.Item
	var url sql.NullString
	var createdAt string
	if err := row.Scan(&item.ItemID, &item.CollectionID, &item.Title, &url, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError("item", itemID)
		}
		return nil, fmt.Errorf("getting item %s: %w", itemID, err)
	}
	if url.Valid {
		item.URL = url.String
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	rows, err := db.Query(
		"SELECT label_id FROM item_labels WHERE item_id = ? ORDER BY label_id ASC",
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading item labels: %w", err)
	}
	defer rows.Close()

	item.LabelIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning label id: %w", err)
		}
		item.LabelIDs = append(item.LabelIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating label ids: %w", err)
	}
	return &item, nil
}

// ApplyLabel attaches a label to an item. Idempotent: applying an already
// applied label succeeds.
func (s *Store) ApplyLabel(collectionID, itemID, labelID string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := s.GetItem(collectionID, itemID); err != nil {
		return err
	}
	if _, err := s.GetLabel(collectionID, labelID); err != nil {
		return err
	}

	_, err = db.Exec(
		"INSERT INTO item_labels (item_id, label_id) VALUES (?, ?) ON CONFLICT(item_id, label_id) DO NOTHING",
		itemID, labelID,
	)
	if err != nil {
		return fmt.Errorf("applying label: %w", err)
	}
	return nil
}

// RemoveLabel detaches a label from an item. Removing an unapplied label
// succeeds.
func (s *Store) RemoveLabel(collectionID, itemID, labelID string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := s.GetItem(collectionID, itemID); err != nil {
		return err
	}

	_, err = db.Exec(
		"DELETE FROM item_labels WHERE item_id = ? AND label_id = ?",
		itemID, labelID,
	)
	if err != nil {
		return fmt.Errorf("removing label: %w", err)
	}
	return nil
}
