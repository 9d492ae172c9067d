package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/facets/pkg/types"
)

func TestUpsertValues(t *testing.T) {
	s := newTestStore(t)
	field := mustCreateField(t, s, "Rating", types.FieldTypeRating, types.FieldConfig{RatingMax: 5})
	itemID := mustCreateItem(t, s, "An article")

	t.Run("repeated writes keep one row", func(t *testing.T) {
		for _, n := range []float64{1, 3, 5} {
			mustUpsertValues(t, s, itemID, []types.FieldValue{
				{ItemID: itemID, FieldID: field.FieldID, Value: types.NumberValue(n)},
			})
		}

		values, err := s.ValuesForItem(itemID)
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.True(t, values[field.FieldID].Value.Equal(types.NumberValue(5)), "last write wins")
	})

	t.Run("returned values carry the persisted timestamp", func(t *testing.T) {
		stamped, err := s.UpsertValues(itemID, []types.FieldValue{
			{FieldID: field.FieldID, Value: types.NumberValue(2)},
		})
		require.NoError(t, err)
		require.Len(t, stamped, 1)
		assert.Equal(t, itemID, stamped[0].ItemID)
		require.False(t, stamped[0].UpdatedAt.IsZero())

		values, err := s.ValuesForItem(itemID)
		require.NoError(t, err)
		assert.True(t, stamped[0].UpdatedAt.Equal(values[field.FieldID].UpdatedAt),
			"callers see the same timestamp the row was stamped with")
	})

	t.Run("null clears the row", func(t *testing.T) {
		stamped, err := s.UpsertValues(itemID, []types.FieldValue{
			{ItemID: itemID, FieldID: field.FieldID, Value: types.NullValue()},
		})
		require.NoError(t, err)
		require.Len(t, stamped, 1, "cleared entries still come back for reconciliation")
		assert.True(t, stamped[0].Value.IsNull())

		values, err := s.ValuesForItem(itemID)
		require.NoError(t, err)
		assert.Empty(t, values, "clearing leaves no tombstone row")
	})

	t.Run("null for an absent row is fine", func(t *testing.T) {
		_, err := s.UpsertValues(itemID, []types.FieldValue{
			{ItemID: itemID, FieldID: field.FieldID, Value: types.NullValue()},
		})
		assert.NoError(t, err)
	})

	t.Run("mixed batch in one shot", func(t *testing.T) {
		read := mustCreateField(t, s, "Read", types.FieldTypeBoolean, types.FieldConfig{})
		notes := mustCreateField(t, s, "Notes", types.FieldTypeText, types.FieldConfig{MaxLength: 100})

		mustUpsertValues(t, s, itemID, []types.FieldValue{
			{ItemID: itemID, FieldID: field.FieldID, Value: types.NumberValue(4)},
			{ItemID: itemID, FieldID: read.FieldID, Value: types.BoolValue(true)},
			{ItemID: itemID, FieldID: notes.FieldID, Value: types.TextValue("worth a reread")},
		})

		values, err := s.ValuesForItem(itemID)
		require.NoError(t, err)
		require.Len(t, values, 3)
		assert.True(t, values[read.FieldID].Value.Equal(types.BoolValue(true)))
		assert.True(t, values[notes.FieldID].Value.Equal(types.TextValue("worth a reread")))
	})

	t.Run("unknown field fails the whole batch", func(t *testing.T) {
		before, err := s.ValuesForItem(itemID)
		require.NoError(t, err)

		_, err = s.UpsertValues(itemID, []types.FieldValue{
			{ItemID: itemID, FieldID: field.FieldID, Value: types.NumberValue(1)},
			{ItemID: itemID, FieldID: "nonexistent", Value: types.BoolValue(true)},
		})
		require.Error(t, err, "foreign key rejects the unknown field")

		after, err := s.ValuesForItem(itemID)
		require.NoError(t, err)
		assert.Equal(t, before, after, "no partial writes from a failed batch")
	})
}

func TestValueKindsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	itemID := mustCreateItem(t, s, "An article")

	rating := mustCreateField(t, s, "Rating", types.FieldTypeRating, types.FieldConfig{RatingMax: 10})
	read := mustCreateField(t, s, "Read", types.FieldTypeBoolean, types.FieldConfig{})
	notes := mustCreateField(t, s, "Notes", types.FieldTypeText, types.FieldConfig{MaxLength: 100})
	mood := mustCreateField(t, s, "Mood", types.FieldTypeSelect, types.FieldConfig{Options: []string{"calm", "tense"}})

	mustUpsertValues(t, s, itemID, []types.FieldValue{
		{ItemID: itemID, FieldID: rating.FieldID, Value: types.NumberValue(7)},
		{ItemID: itemID, FieldID: read.FieldID, Value: types.BoolValue(false)},
		{ItemID: itemID, FieldID: notes.FieldID, Value: types.TextValue("")},
		{ItemID: itemID, FieldID: mood.FieldID, Value: types.TextValue("tense")},
	})

	values, err := s.ValuesForItem(itemID)
	require.NoError(t, err)
	require.Len(t, values, 4)
	assert.Equal(t, types.KindNumber, values[rating.FieldID].Value.Kind())
	assert.True(t, values[read.FieldID].Value.Equal(types.BoolValue(false)), "stored false is distinct from absent")
	assert.True(t, values[notes.FieldID].Value.Equal(types.TextValue("")), "empty text is a value, not null")
	assert.Equal(t, types.KindText, values[mood.FieldID].Value.Kind(), "select values are stored as text")
	assert.False(t, values[rating.FieldID].UpdatedAt.IsZero())
}
