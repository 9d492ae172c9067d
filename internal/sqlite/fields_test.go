package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/facets/pkg/types"
)

func TestCreateField(t *testing.T) {
	s := newTestStore(t)

	t.Run("create and get", func(t *testing.T) {
		f := mustCreateField(t, s, "Rating", types.FieldTypeRating, types.FieldConfig{RatingMax: 5})
		require.NotEmpty(t, f.FieldID)

		got, err := s.GetField(testCollection, f.FieldID)
		require.NoError(t, err)
		assert.Equal(t, "Rating", got.Name)
		assert.Equal(t, types.FieldTypeRating, got.Type)
		assert.Equal(t, 5, got.Config.RatingMax)
	})

	t.Run("duplicate name rejected case-insensitively", func(t *testing.T) {
		_, err := s.CreateField(&types.Field{
			CollectionID: testCollection,
			Name:         "rating",
			Type:         types.FieldTypeBoolean,
		})
		require.Error(t, err)
		assert.True(t, types.IsConflict(err), "different-case duplicate is a ConflictError")
	})

	t.Run("config mismatch rejected", func(t *testing.T) {
		_, err := s.CreateField(&types.Field{
			CollectionID: testCollection,
			Name:         "Broken",
			Type:         types.FieldTypeSelect,
		})
		require.Error(t, err)
		assert.True(t, types.IsValidation(err))
	})

	t.Run("unknown collection", func(t *testing.T) {
		_, err := s.CreateField(&types.Field{
			CollectionID: "col-other",
			Name:         "X",
			Type:         types.FieldTypeBoolean,
		})
		assert.True(t, types.IsNotFound(err))
	})
}

func TestCheckDuplicateName(t *testing.T) {
	s := newTestStore(t)
	created := mustCreateField(t, s, "Rating", types.FieldTypeRating, types.FieldConfig{RatingMax: 5})

	t.Run("different case finds the existing definition", func(t *testing.T) {
		found, err := s.CheckDuplicateName(testCollection, "RATING")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.FieldID, found.FieldID)
		assert.Equal(t, 5, found.Config.RatingMax, "full definition comes back for UI feedback")
	})

	t.Run("absent name reports nothing", func(t *testing.T) {
		found, err := s.CheckDuplicateName(testCollection, "Mood")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("other collections are invisible", func(t *testing.T) {
		require.NoError(t, s.EnsureCollection("col-other", "Other"))
		found, err := s.CheckDuplicateName("col-other", "Rating")
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestUpdateField(t *testing.T) {
	s := newTestStore(t)

	t.Run("rename keeps values", func(t *testing.T) {
		f := mustCreateField(t, s, "Stars", types.FieldTypeRating, types.FieldConfig{RatingMax: 5})
		itemID := mustCreateItem(t, s, "An article")
		mustUpsertValues(t, s, itemID, []types.FieldValue{
			{ItemID: itemID, FieldID: f.FieldID, Value: types.NumberValue(4)},
		})

		name := "Quality"
		got, err := s.UpdateField(testCollection, f.FieldID, FieldUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Quality", got.Name)

		values, err := s.ValuesForItem(itemID)
		require.NoError(t, err)
		assert.True(t, values[f.FieldID].Value.Equal(types.NumberValue(4)), "rename does not touch stored values")
	})

	t.Run("retype clears mismatched values", func(t *testing.T) {
		f := mustCreateField(t, s, "Verdict", types.FieldTypeText, types.FieldConfig{MaxLength: 50})
		itemID := mustCreateItem(t, s, "Another article")
		mustUpsertValues(t, s, itemID, []types.FieldValue{
			{ItemID: itemID, FieldID: f.FieldID, Value: types.TextValue("fine")},
		})

		newType := types.FieldTypeBoolean
		_, err := s.UpdateField(testCollection, f.FieldID, FieldUpdate{
			Type:   &newType,
			Config: &types.FieldConfig{},
		})
		require.NoError(t, err)

		values, err := s.ValuesForItem(itemID)
		require.NoError(t, err)
		_, exists := values[f.FieldID]
		assert.False(t, exists, "text value is gone after retype to boolean")
	})

	t.Run("rename onto existing name conflicts", func(t *testing.T) {
		mustCreateField(t, s, "First", types.FieldTypeBoolean, types.FieldConfig{})
		second := mustCreateField(t, s, "Second", types.FieldTypeBoolean, types.FieldConfig{})

		name := "first"
		_, err := s.UpdateField(testCollection, second.FieldID, FieldUpdate{Name: &name})
		assert.True(t, types.IsConflict(err))
	})
}

func TestDeleteFieldCascades(t *testing.T) {
	s := newTestStore(t)

	field := mustCreateField(t, s, "Rating", types.FieldTypeRating, types.FieldConfig{RatingMax: 5})
	other := mustCreateField(t, s, "Read", types.FieldTypeBoolean, types.FieldConfig{})

	sch := &types.Schema{
		CollectionID: testCollection,
		Name:         "Quality",
		Fields: []types.SchemaField{
			{FieldID: field.FieldID, DisplayOrder: 0, Compact: true},
			{FieldID: other.FieldID, DisplayOrder: 1},
		},
	}
	_, err := s.CreateSchema(sch)
	require.NoError(t, err)

	itemID := mustCreateItem(t, s, "An article")
	mustUpsertValues(t, s, itemID, []types.FieldValue{
		{ItemID: itemID, FieldID: field.FieldID, Value: types.NumberValue(3)},
		{ItemID: itemID, FieldID: other.FieldID, Value: types.BoolValue(true)},
	})

	stats, err := s.DeleteField(testCollection, field.FieldID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.SchemaFields)
	assert.Equal(t, int64(1), stats.FieldValues)

	_, err = s.GetField(testCollection, field.FieldID)
	assert.True(t, types.IsNotFound(err))

	got, err := s.GetSchema(testCollection, sch.SchemaID)
	require.NoError(t, err)
	require.Len(t, got.Fields, 1, "membership row cascaded away")
	assert.Equal(t, other.FieldID, got.Fields[0].FieldID)

	values, err := s.ValuesForItem(itemID)
	require.NoError(t, err)
	_, exists := values[field.FieldID]
	assert.False(t, exists, "value row cascaded away")
	_, exists = values[other.FieldID]
	assert.True(t, exists, "unrelated value survives")
}

func TestGetFieldCrossCollection(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureCollection("col-other", "Other"))

	f := mustCreateField(t, s, "Rating", types.FieldTypeRating, types.FieldConfig{RatingMax: 5})

	_, err := s.GetField("col-other", f.FieldID)
	assert.True(t, types.IsNotFound(err), "cross-collection access looks identical to absence")
}

func TestFieldsByID(t *testing.T) {
	s := newTestStore(t)
	rating := mustCreateField(t, s, "Rating", types.FieldTypeRating, types.FieldConfig{RatingMax: 5})
	read := mustCreateField(t, s, "Read", types.FieldTypeBoolean, types.FieldConfig{})

	t.Run("loads the requested set", func(t *testing.T) {
		got, err := s.FieldsByID(testCollection, []string{rating.FieldID, read.FieldID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Rating", got[rating.FieldID].Name)
		assert.Equal(t, 5, got[rating.FieldID].Config.RatingMax)
	})

	t.Run("foreign-collection ids are simply absent", func(t *testing.T) {
		require.NoError(t, s.EnsureCollection("col-other", "Other"))
		got, err := s.FieldsByID("col-other", []string{rating.FieldID})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty input needs no query", func(t *testing.T) {
		got, err := s.FieldsByID(testCollection, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestListFields(t *testing.T) {
	s := newTestStore(t)
	mustCreateField(t, s, "Rating", types.FieldTypeRating, types.FieldConfig{RatingMax: 5})
	mustCreateField(t, s, "Read", types.FieldTypeBoolean, types.FieldConfig{})

	fields, err := s.ListFields(testCollection)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "Rating", fields[0].Name, "creation order is preserved")
}
