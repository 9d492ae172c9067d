// End-to-end tests exercising the full stack: HTTP API, Go client, and the
// debounced edit session, against a real SQLite store.
package integration

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/facets/internal/api"
	"github.com/mesh-intelligence/facets/internal/sqlite"
	"github.com/mesh-intelligence/facets/pkg/client"
	"github.com/mesh-intelligence/facets/pkg/types"
)

// env holds one running service with a client pointed at it.
type env struct {
	store  *sqlite.Store
	server *httptest.Server
	client *client.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := sqlite.NewStore()
	require.NoError(t, store.Open(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	require.NoError(t, store.EnsureCollection(api.DefaultCollection, "Default"))

	srv := httptest.NewServer(api.NewServer(store).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = store.Close()
	})

	return &env{
		store:  store,
		server: srv,
		client: client.New(srv.URL),
	}
}

// seedItem builds the canonical fixture: a rating and a read field bundled
// in one schema, bound to a label applied to one item. Returns the item and
// field IDs.
func (e *env) seedItem(t *testing.T) (itemID, ratingID, readID string) {
	t.Helper()

	rating := &types.Field{
		CollectionID: api.DefaultCollection,
		Name:         "Rating",
		Type:         types.FieldTypeRating,
		Config:       types.FieldConfig{RatingMax: 5},
	}
	_, err := e.store.CreateField(rating)
	require.NoError(t, err)

	read := &types.Field{
		CollectionID: api.DefaultCollection,
		Name:         "Read",
		Type:         types.FieldTypeBoolean,
	}
	_, err = e.store.CreateField(read)
	require.NoError(t, err)

	sch := &types.Schema{
		CollectionID: api.DefaultCollection,
		Name:         "Quality",
		Fields: []types.SchemaField{
			{FieldID: rating.FieldID, DisplayOrder: 0, Compact: true},
			{FieldID: read.FieldID, DisplayOrder: 1},
		},
	}
	_, err = e.store.CreateSchema(sch)
	require.NoError(t, err)

	label := &types.Label{
		CollectionID: api.DefaultCollection,
		Name:         "Tutorial",
		SchemaID:     &sch.SchemaID,
	}
	_, err = e.store.CreateLabel(label)
	require.NoError(t, err)

	id, err := e.store.CreateItem(&types.Item{
		CollectionID: api.DefaultCollection,
		Title:        "An article",
	})
	require.NoError(t, err)
	require.NoError(t, e.store.ApplyLabel(api.DefaultCollection, id, label.LabelID))

	return id, rating.FieldID, read.FieldID
}

func TestEditSessionOverWire(t *testing.T) {
	e := newEnv(t)
	itemID, ratingID, readID := e.seedItem(t)
	ctx := context.Background()

	proj, err := e.client.GetItem(ctx, itemID)
	require.NoError(t, err)
	require.Len(t, proj.Fields, 2)

	initial := map[string]types.Value{}
	for _, rf := range proj.Fields {
		initial[rf.Field.FieldID] = rf.Value
	}

	session := client.NewEditSession(e.client, itemID, initial,
		client.WithDebounce(20*time.Millisecond))

	// Rapid edits: only the final value per field should reach the server.
	require.NoError(t, session.Set(ratingID, types.NumberValue(2)))
	require.NoError(t, session.Set(ratingID, types.NumberValue(3)))
	require.NoError(t, session.Set(ratingID, types.NumberValue(5)))
	require.NoError(t, session.Set(readID, types.BoolValue(true)))

	require.NoError(t, session.Close(ctx))

	proj, err = e.client.GetItem(ctx, itemID)
	require.NoError(t, err)
	assert.True(t, proj.Fields[0].Value.Equal(types.NumberValue(5)))
	assert.True(t, proj.Fields[1].Value.Equal(types.BoolValue(true)))

	stored, err := e.store.ValuesForItem(itemID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestEditSessionRollbackOverWire(t *testing.T) {
	e := newEnv(t)
	itemID, ratingID, _ := e.seedItem(t)
	ctx := context.Background()

	_, err := e.client.UpdateItemFields(ctx, itemID, []types.ValueUpdate{
		{FieldID: ratingID, Value: types.NumberValue(3)},
	})
	require.NoError(t, err)

	errs := make(chan error, 1)
	session := client.NewEditSession(e.client, itemID,
		map[string]types.Value{ratingID: types.NumberValue(3)},
		client.WithDebounce(20*time.Millisecond),
		client.WithErrorHandler(func(err error) { errs <- err }),
	)
	defer session.Discard()

	// Out of range for a 0..5 rating; the server must reject it.
	require.NoError(t, session.Set(ratingID, types.NumberValue(11)))

	select {
	case err := <-errs:
		assert.True(t, types.IsValidation(err), "server verdict surfaces typed through the client")
	case <-time.After(5 * time.Second):
		t.Fatal("commit error never surfaced")
	}

	v, ok := session.Value(ratingID)
	require.True(t, ok)
	assert.True(t, v.Equal(types.NumberValue(3)), "optimistic state rolled back to known-good")

	proj, err := e.client.GetItem(context.Background(), itemID)
	require.NoError(t, err)
	assert.True(t, proj.Fields[0].Value.Equal(types.NumberValue(3)), "server kept the old value")
}

func TestDuplicateCheckOverWire(t *testing.T) {
	e := newEnv(t)
	_, _, _ = e.seedItem(t)
	ctx := context.Background()

	existing, err := e.client.CheckDuplicateField(ctx, "RATING")
	require.NoError(t, err)
	require.NotNil(t, existing, "case-folded match finds the field")
	assert.Equal(t, "Rating", existing.Name)

	absent, err := e.client.CheckDuplicateField(ctx, "Mood")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestCollectionScopedClient(t *testing.T) {
	e := newEnv(t)
	itemID, _, _ := e.seedItem(t)

	require.NoError(t, e.store.EnsureCollection("col-other", "Other"))
	scoped := client.New(e.server.URL, client.WithCollection("col-other"))

	_, err := scoped.GetItem(context.Background(), itemID)
	assert.True(t, types.IsNotFound(err), "items do not leak across collections")
}
