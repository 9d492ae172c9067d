// Field value store. One row per (item, field) pair; the composite primary
// key plus ON CONFLICT upsert is the only concurrency guard, so concurrent
// edit sessions targeting the same item can never produce duplicate rows.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/facets/pkg/types"
)

// UpsertValues persists a batch of field values for one item in a single
// transaction: all rows commit or none do. A null value clears the stored
// row. Each non-null value lands via an atomic insert-or-update keyed on
// (item_id, field_id), never a read-check-then-write pair. The returned
// slice carries the timestamp the rows were actually stamped with, so
// callers hand clients the persisted state rather than an approximation.
func (s *Store) UpsertValues(itemID string, values []types.FieldValue) ([]types.FieldValue, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if itemID == "" {
		return nil, types.ErrInvalidID
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	stamped := formatTime(now)
	for i := range values {
		fv := &values[i]
		fv.ItemID = itemID
		fv.UpdatedAt = now

		if fv.Value.IsNull() {
			if _, err := tx.Exec(
				"DELETE FROM field_values WHERE item_id = ? AND field_id = ?",
				itemID, fv.FieldID,
			); err != nil {
				return nil, fmt.Errorf("clearing value for field %s: %w", types.ShortID(fv.FieldID), err)
			}
			continue
		}

		num, text, boolVal := splitValue(fv.Value)
		if _, err := tx.Exec(
			`INSERT INTO field_values (item_id, field_id, value_kind, num_value, text_value, bool_value, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(item_id, field_id) DO UPDATE SET
			     value_kind = excluded.value_kind,
			     num_value = excluded.num_value,
			     text_value = excluded.text_value,
			     bool_value = excluded.bool_value,
			     updated_at = excluded.updated_at`,
			itemID, fv.FieldID, string(fv.Value.Kind()), num, text, boolVal, stamped,
		); err != nil {
			return nil, fmt.Errorf("upserting value for field %s: %w", types.ShortID(fv.FieldID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing values: %w", err)
	}
	return values, nil
}

// ValuesForItem returns the stored values of an item keyed by field ID.
func (s *Store) ValuesForItem(itemID string) (map[string]types.FieldValue, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT item_id, field_id, value_kind, num_value, text_value, bool_value, updated_at FROM field_values WHERE item_id = ?",
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading field values: %w", err)
	}
	defer rows.Close()

	values := map[string]types.FieldValue{}
	for rows.Next() {
		fv, err := hydrateFieldValue(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating field value: %w", err)
		}
		values[fv.FieldID] = *fv
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating field values: %w", err)
	}
	return values, nil
}

// splitValue maps a value onto the three nullable storage columns; exactly
// one is non-nil, matching the value's kind.
func splitValue(v types.Value) (num, text, boolVal any) {
	if n, ok := v.Number(); ok {
		return n, nil, nil
	}
	if s, ok := v.Text(); ok {
		return nil, s, nil
	}
	if b, ok := v.Bool(); ok {
		return nil, nil, boolToInt(b)
	}
	return nil, nil, nil
}

func hydrateFieldValue(scan func(...any) error) (*types.FieldValue, error) {
	var fv types.FieldValue
	var kind, updatedAt string
	var num sql.NullFloat64
	var text sql.NullString
	var boolVal sql.NullInt64
	if err := scan(&fv.ItemID, &fv.FieldID, &kind, &num, &text, &boolVal, &updatedAt); err != nil {
		return nil, err
	}

	switch types.ValueKind(kind) {
	case types.KindNumber:
		fv.Value = types.NumberValue(num.Float64)
	case types.KindText:
		fv.Value = types.TextValue(text.String)
	case types.KindBool:
		fv.Value = types.BoolValue(boolVal.Int64 != 0)
	default:
		fv.Value = types.NullValue()
	}

	var err error
	if fv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &fv, nil
}
