package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/rpggio/statuspage/internal/docstore"
	"github.com/stretchr/testify/require"
)

func TestDocumentStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore(NewTestDB(t))

	_, err := store.Get(ctx, "status_users", "1")
	require.ErrorIs(t, err, docstore.ErrNotFound)

	b := store.NewBatch()
	b.Set("status_users", "1", []byte(`{"id":1,"username":"a"}`))
	b.Set("status_users", "2", []byte(`{"id":2,"username":"b"}`))
	require.Equal(t, 2, b.Len())
	require.NoError(t, b.Commit(ctx))

	got, err := store.Get(ctx, "status_users", "1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":1,"username":"a"}`, string(got))

	b = store.NewBatch()
	b.Set("status_users", "1", []byte(`{"id":1,"username":"renamed"}`))
	b.Delete("status_users", "2")
	require.NoError(t, b.Commit(ctx))

	docs, err := store.List(ctx, "status_users")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "1", docs[0].ID)
	require.JSONEq(t, `{"id":1,"username":"renamed"}`, string(docs[0].Data))
}

func TestDocumentStore_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore(NewTestDB(t))

	b := store.NewBatch()
	b.Set("a", "1", []byte(`{}`))
	b.Set("b", "1", []byte(`{}`))
	require.NoError(t, b.Commit(ctx))

	docs, err := store.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	docs, err = store.List(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestDocumentStore_Query(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore(NewTestDB(t))

	b := store.NewBatch()
	b.Set("public", "1", []byte(`{"slug":"alpha","customDomain":"status.alpha.example","redirectDomains":["old.alpha.example"]}`))
	b.Set("public", "2", []byte(`{"slug":"beta","customDomain":"","redirectDomains":["beta.example","www.beta.example"]}`))
	b.Set("audit", "x", []byte(`{"at":"2026-03-02T00:00:00.000Z","action":"b"}`))
	b.Set("audit", "y", []byte(`{"at":"2026-03-01T00:00:00.000Z","action":"a"}`))
	b.Set("audit", "z", []byte(`{"at":"2026-03-03T00:00:00.000Z","action":"c"}`))
	require.NoError(t, b.Commit(ctx))

	bySlug, err := store.Query(ctx, "public", docstore.Query{
		Filters: []docstore.Filter{{Field: "slug", Op: docstore.OpEqual, Value: "beta"}},
	})
	require.NoError(t, err)
	require.Len(t, bySlug, 1)
	require.Equal(t, "2", bySlug[0].ID)

	byDomain, err := store.Query(ctx, "public", docstore.Query{
		Filters: []docstore.Filter{{Field: "customDomain", Op: docstore.OpEqual, Value: "status.alpha.example"}},
	})
	require.NoError(t, err)
	require.Len(t, byDomain, 1)
	require.Equal(t, "1", byDomain[0].ID)

	byRedirect, err := store.Query(ctx, "public", docstore.Query{
		Filters: []docstore.Filter{{Field: "redirectDomains", Op: docstore.OpArrayContains, Value: "www.beta.example"}},
	})
	require.NoError(t, err)
	require.Len(t, byRedirect, 1)
	require.Equal(t, "2", byRedirect[0].ID)

	ordered, err := store.Query(ctx, "audit", docstore.Query{OrderBy: "at", Limit: 2})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	require.Equal(t, "y", ordered[0].ID)
	require.Equal(t, "x", ordered[1].ID)
}

func TestDocumentStore_QueryRejectsUnsafeFields(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore(NewTestDB(t))

	_, err := store.Query(ctx, "public", docstore.Query{
		Filters: []docstore.Filter{{Field: "slug') OR 1=1 --", Op: docstore.OpEqual, Value: "x"}},
	})
	require.ErrorIs(t, err, docstore.ErrInvalidField)

	_, err = store.Query(ctx, "public", docstore.Query{OrderBy: "at;"})
	require.ErrorIs(t, err, docstore.ErrInvalidField)
}

func TestDocumentStore_BatchLimit(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore(NewTestDB(t))

	b := store.NewBatch()
	for i := 0; i <= docstore.MaxBatchOps; i++ {
		b.Set("c", fmt.Sprint(i), []byte(`{}`))
	}
	require.ErrorIs(t, b.Commit(ctx), docstore.ErrBatchTooLarge)

	docs, err := store.List(ctx, "c")
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestDocumentStore_FailedBatchRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore(NewTestDB(t))

	b := store.NewBatch()
	b.Set("c", "1", []byte(`{"ok":true}`))
	b.Set("c", "2", []byte(`not json`))
	require.ErrorIs(t, b.Commit(ctx), docstore.ErrInvalidDocument)

	docs, err := store.List(ctx, "c")
	require.NoError(t, err)
	require.Empty(t, docs)
}
