package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/facets/pkg/types"
)

// threeFields creates three fields and returns their IDs.
func threeFields(t *testing.T, s *Store) (string, string, string) {
	t.Helper()
	a := mustCreateField(t, s, "Rating", types.FieldTypeRating, types.FieldConfig{RatingMax: 5})
	b := mustCreateField(t, s, "Read", types.FieldTypeBoolean, types.FieldConfig{})
	c := mustCreateField(t, s, "Notes", types.FieldTypeText, types.FieldConfig{MaxLength: 280})
	return a.FieldID, b.FieldID, c.FieldID
}

func TestCreateSchema(t *testing.T) {
	s := newTestStore(t)
	fa, fb, _ := threeFields(t, s)

	t.Run("with initial fields", func(t *testing.T) {
		sch := &types.Schema{
			CollectionID: testCollection,
			Name:         "Quality",
			Description:  "How good is it",
			Fields: []types.SchemaField{
				{FieldID: fb, DisplayOrder: 1},
				{FieldID: fa, DisplayOrder: 0, Compact: true},
			},
		}
		_, err := s.CreateSchema(sch)
		require.NoError(t, err)

		got, err := s.GetSchema(testCollection, sch.SchemaID)
		require.NoError(t, err)
		require.Len(t, got.Fields, 2)
		assert.Equal(t, fa, got.Fields[0].FieldID, "memberships come back ordered by display order")
		assert.True(t, got.Fields[0].Compact)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := s.CreateSchema(&types.Schema{CollectionID: testCollection, Name: "Quality"})
		assert.True(t, types.IsConflict(err))
	})

	t.Run("duplicate display order rejected atomically", func(t *testing.T) {
		sch := &types.Schema{
			CollectionID: testCollection,
			Name:         "Broken",
			Fields: []types.SchemaField{
				{FieldID: fa, DisplayOrder: 0},
				{FieldID: fb, DisplayOrder: 0},
			},
		}
		_, err := s.CreateSchema(sch)
		require.Error(t, err)
		assert.True(t, types.IsValidation(err))

		schemas, err := s.ListSchemas(testCollection)
		require.NoError(t, err)
		for _, got := range schemas {
			assert.NotEqual(t, "Broken", got.Name, "nothing persisted from the failed create")
		}
	})

	t.Run("unknown field named in error", func(t *testing.T) {
		_, err := s.CreateSchema(&types.Schema{
			CollectionID: testCollection,
			Name:         "Ghost",
			Fields:       []types.SchemaField{{FieldID: "missing-field-id", DisplayOrder: 0}},
		})
		require.Error(t, err)
		var ve *types.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, types.ShortID("missing-field-id"))
	})
}

func TestDeleteSchema(t *testing.T) {
	s := newTestStore(t)
	fa, _, _ := threeFields(t, s)

	sch := &types.Schema{
		CollectionID: testCollection,
		Name:         "Quality",
		Fields:       []types.SchemaField{{FieldID: fa, DisplayOrder: 0}},
	}
	_, err := s.CreateSchema(sch)
	require.NoError(t, err)

	label := &types.Label{CollectionID: testCollection, Name: "Tutorial", SchemaID: &sch.SchemaID}
	_, err = s.CreateLabel(label)
	require.NoError(t, err)

	t.Run("blocked by live label reference", func(t *testing.T) {
		_, err := s.DeleteSchema(testCollection, sch.SchemaID, false)
		assert.True(t, types.IsConflict(err))
	})

	t.Run("cascade unbinds labels without deleting them", func(t *testing.T) {
		stats, err := s.DeleteSchema(testCollection, sch.SchemaID, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.LabelsUnbound)
		assert.Equal(t, int64(1), stats.SchemaFields)

		got, err := s.GetLabel(testCollection, label.LabelID)
		require.NoError(t, err, "label survives schema deletion")
		assert.Nil(t, got.SchemaID, "binding reset to null")

		_, err = s.GetField(testCollection, fa)
		assert.NoError(t, err, "member fields are untouched")
	})
}

func TestSchemaFieldMembership(t *testing.T) {
	s := newTestStore(t)
	fa, fb, fc := threeFields(t, s)

	sch := &types.Schema{
		CollectionID: testCollection,
		Name:         "Quality",
		Fields:       []types.SchemaField{{FieldID: fa, DisplayOrder: 0, Compact: true}},
	}
	_, err := s.CreateSchema(sch)
	require.NoError(t, err)

	t.Run("add field", func(t *testing.T) {
		err := s.AddSchemaField(testCollection, sch.SchemaID, types.SchemaField{
			FieldID: fb, DisplayOrder: 1, Compact: true,
		})
		require.NoError(t, err)

		got, err := s.GetSchema(testCollection, sch.SchemaID)
		require.NoError(t, err)
		assert.Len(t, got.Fields, 2)
	})

	t.Run("add validates against the whole resulting set", func(t *testing.T) {
		err := s.AddSchemaField(testCollection, sch.SchemaID, types.SchemaField{
			FieldID: fc, DisplayOrder: 1,
		})
		require.Error(t, err)
		assert.True(t, types.IsValidation(err), "order 1 is already taken")
	})

	t.Run("remove field keeps the definition", func(t *testing.T) {
		require.NoError(t, s.RemoveSchemaField(testCollection, sch.SchemaID, fb))

		got, err := s.GetSchema(testCollection, sch.SchemaID)
		require.NoError(t, err)
		assert.Len(t, got.Fields, 1)

		_, err = s.GetField(testCollection, fb)
		assert.NoError(t, err, "removing a membership never deletes the field")
	})

	t.Run("remove unknown membership", func(t *testing.T) {
		err := s.RemoveSchemaField(testCollection, sch.SchemaID, fc)
		assert.True(t, types.IsNotFound(err))
	})
}

func TestMembershipsForSchemas(t *testing.T) {
	s := newTestStore(t)
	fa, fb, fc := threeFields(t, s)

	schA := &types.Schema{
		CollectionID: testCollection,
		Name:         "Quality",
		Fields: []types.SchemaField{
			{FieldID: fa, DisplayOrder: 0, Compact: true},
			{FieldID: fb, DisplayOrder: 1},
		},
	}
	_, err := s.CreateSchema(schA)
	require.NoError(t, err)

	schB := &types.Schema{
		CollectionID: testCollection,
		Name:         "Reading",
		Fields:       []types.SchemaField{{FieldID: fc, DisplayOrder: 0}},
	}
	_, err = s.CreateSchema(schB)
	require.NoError(t, err)

	t.Run("one query covers several schemas", func(t *testing.T) {
		rows, err := s.MembershipsForSchemas([]string{schA.SchemaID, schB.SchemaID})
		require.NoError(t, err)
		require.Len(t, rows, 3)

		bySchema := map[string]int{}
		for _, sf := range rows {
			bySchema[sf.SchemaID]++
		}
		assert.Equal(t, 2, bySchema[schA.SchemaID])
		assert.Equal(t, 1, bySchema[schB.SchemaID])
	})

	t.Run("empty input needs no query", func(t *testing.T) {
		rows, err := s.MembershipsForSchemas(nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestReorderSchemaFields(t *testing.T) {
	s := newTestStore(t)
	fa, fb, fc := threeFields(t, s)

	sch := &types.Schema{
		CollectionID: testCollection,
		Name:         "Quality",
		Fields: []types.SchemaField{
			{FieldID: fa, DisplayOrder: 0, Compact: true},
			{FieldID: fb, DisplayOrder: 1},
			{FieldID: fc, DisplayOrder: 2},
		},
	}
	_, err := s.CreateSchema(sch)
	require.NoError(t, err)

	t.Run("swap orders atomically", func(t *testing.T) {
		got, err := s.ReorderSchemaFields(testCollection, sch.SchemaID, []types.SchemaField{
			{FieldID: fa, DisplayOrder: 2, Compact: true},
			{FieldID: fc, DisplayOrder: 0},
		})
		require.NoError(t, err)
		require.Len(t, got.Fields, 3)
		assert.Equal(t, fc, got.Fields[0].FieldID)
		assert.Equal(t, fb, got.Fields[1].FieldID)
		assert.Equal(t, fa, got.Fields[2].FieldID)
	})

	t.Run("non-member entry rejected", func(t *testing.T) {
		_, err := s.ReorderSchemaFields(testCollection, sch.SchemaID, []types.SchemaField{
			{FieldID: "not-a-member", DisplayOrder: 5},
		})
		require.Error(t, err)
		assert.True(t, types.IsValidation(err))
	})

	t.Run("whole resulting set is validated", func(t *testing.T) {
		// Only one row changes, but its new order collides with an
		// untouched row.
		_, err := s.ReorderSchemaFields(testCollection, sch.SchemaID, []types.SchemaField{
			{FieldID: fb, DisplayOrder: 2},
		})
		require.Error(t, err)
		assert.True(t, types.IsValidation(err))

		got, err := s.GetSchema(testCollection, sch.SchemaID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Fields[1].DisplayOrder, "failed reorder changed nothing")
	})

	t.Run("compact cap enforced across the set", func(t *testing.T) {
		_, err := s.ReorderSchemaFields(testCollection, sch.SchemaID, []types.SchemaField{
			{FieldID: fc, DisplayOrder: 0, Compact: true},
			{FieldID: fb, DisplayOrder: 1, Compact: true},
			{FieldID: fa, DisplayOrder: 2, Compact: true},
		})
		assert.NoError(t, err, "three compact fields sit exactly at the cap")
	})
}
