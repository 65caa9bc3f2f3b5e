package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schematics/internal/kvstore"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Normalize("foo"), Normalize("Foo "))
	assert.Equal(t, "dune tank", Normalize("  Dune Tank\t"))
	for _, s := range []string{"", " A b ", "ÄBC", "x"} {
		assert.Equal(t, Normalize(s), Normalize(Normalize(s)))
	}
}

func TestItemsFromRows(t *testing.T) {
	loader := NewLoader()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Title,ImageURL,PageURL,Tier\nspice Harvester,i2,p2,3\nDune Tank,i1,p1,5\n"), 0o644))

	items, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Dune Tank", items[0].Title)
	assert.Equal(t, "i1", items[0].ImageURL)
	assert.Equal(t, "p1", items[0].PageURL)
	assert.Equal(t, map[string]string{"Tier": "5"}, items[0].Extra)
	assert.Equal(t, "dune tank", items[0].Key())
}

func TestLoadFailures(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader()

	_, err := loader.Load(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrCatalogFetch)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.csv" {
			_, _ = w.Write([]byte("Title\nWidget\n"))
			return
		}
		if r.URL.Path == "/name.csv" {
			_, _ = w.Write([]byte("Name\nWidget\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err = loader.Load(ctx, srv.URL+"/nope.csv")
	assert.ErrorIs(t, err, ErrCatalogFetch)

	_, err = loader.Load(ctx, srv.URL+"/name.csv")
	assert.ErrorIs(t, err, ErrNoTitle)

	items, err := loader.Load(ctx, srv.URL+"/ok.csv")
	require.NoError(t, err)
	assert.Equal(t, []Item{{Title: "Widget"}}, items)
}

func TestLoadOverlayClassifiesKeys(t *testing.T) {
	mem := kvstore.NewMemory(false)
	mem.Seed("owned:widget", "true")
	mem.Seed("owned:gadget", "false")
	mem.Seed("notes:widget", `"cool"`)
	mem.Seed("notes:empty", "null")
	mem.Seed("Legacy Title", "true")
	mem.Seed("other", `"yes"`)

	m := NewModel(nil, kvstore.New(mem))
	m.SetNote("stale", "gone after load")
	require.NoError(t, m.LoadOverlay(context.Background()))

	assert.True(t, m.IsOwned("widget"))
	assert.False(t, m.IsOwned("gadget"))
	assert.True(t, m.IsOwned("Legacy Title"), "legacy keys are used raw")
	assert.False(t, m.IsOwned("other"), "only boolean true counts as owned")
	assert.Equal(t, "cool", m.NoteFor("widget"))
	assert.Equal(t, "", m.NoteFor("empty"))
	assert.Equal(t, "", m.NoteFor("stale"))
	assert.False(t, m.IsOwned("absent"))
	assert.Equal(t, "", m.NoteFor("absent"))
}

func TestSetOwnedWritesThrough(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemory(true)
	store := kvstore.New(mem)
	m := NewModel(nil, store)

	require.NoError(t, m.SetOwned(ctx, "widget", true))
	assert.True(t, m.IsOwned("widget"))
	v, ok, err := store.Get(ctx, "owned:widget")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, true, v)

	require.NoError(t, m.SetOwned(ctx, "widget", false))
	assert.False(t, m.IsOwned("widget"))
	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"owned:widget"}, keys, "unowning is an update, not a delete")

	mem.FailPut("owned:gadget", errors.New("boom"))
	assert.Error(t, m.SetOwned(ctx, "gadget", true))
	assert.False(t, m.IsOwned("gadget"))
}

func TestNotesAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store := kvstore.New(kvstore.NewMemory(true))
	m := NewModel(nil, store)

	m.SetNote("widget", "draft")
	assert.Equal(t, "draft", m.NoteFor("widget"))
	_, ok, err := store.Get(ctx, "notes:widget")
	require.NoError(t, err)
	assert.False(t, ok, "SetNote does not persist")

	require.NoError(t, m.PersistNote(ctx, "widget", "draft"))
	v, _, err := store.Get(ctx, "notes:widget")
	require.NoError(t, err)
	assert.Equal(t, "draft", v)

	_, notes := m.Snapshot()
	notes["widget"] = "changed"
	assert.Equal(t, "draft", m.NoteFor("widget"), "snapshot is a copy")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("Title,ImageURL\nWidget,x\n"))
	assert.NoError(t, Validate("Title\n"), "a header-only catalog loads empty")
	assert.ErrorIs(t, Validate("Name\nWidget\n"), ErrNoTitle)
	assert.ErrorIs(t, Validate(""), ErrNoTitle)
}
