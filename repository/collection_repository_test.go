package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jschaf/bibmgr/entry"
	"github.com/jschaf/bibmgr/storage"
)

func TestCollectionRepository_SaveFindDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewCollectionRepository(storage.NewMemory())
	c := entry.Collection{ID: "c1", Name: "Papers", Members: []string{"e1", "e2"}}

	require.NoError(t, repo.Save(ctx, c))

	got, ok, err := repo.Find(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Papers", got.Name)

	existed, err := repo.Delete(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok, _ = repo.Find(ctx, "c1")
	assert.False(t, ok, "collection should be gone after delete")
}

func TestCollectionRepository_Save_RejectsBothMembersAndQuery(t *testing.T) {
	repo := NewCollectionRepository(storage.NewMemory())
	c := entry.Collection{ID: "bad", Name: "Bad", Members: []string{"e1"}, Query: "year > 2000"}
	err := repo.Save(context.Background(), c)
	assert.Error(t, err, "Save should reject a collection with both members and a query")
}

func TestCollectionRepository_FindByParent(t *testing.T) {
	ctx := context.Background()
	repo := NewCollectionRepository(storage.NewMemory())
	require.NoError(t, repo.Save(ctx, entry.Collection{ID: "root", Name: "Root"}))
	require.NoError(t, repo.Save(ctx, entry.Collection{ID: "child1", Name: "Child 1", ParentID: "root"}))
	require.NoError(t, repo.Save(ctx, entry.Collection{ID: "child2", Name: "Child 2", ParentID: "root"}))

	children, err := repo.FindByParent(ctx, "root")
	require.NoError(t, err)
	assert.Len(t, children, 2)

	roots, err := repo.FindByParent(ctx, "")
	require.NoError(t, err)
	assert.Len(t, roots, 1)
}

func TestCollectionRepository_FindSmart(t *testing.T) {
	ctx := context.Background()
	repo := NewCollectionRepository(storage.NewMemory())
	require.NoError(t, repo.Save(ctx, entry.Collection{ID: "manual", Name: "Manual", Members: []string{"e1"}}))
	require.NoError(t, repo.Save(ctx, entry.Collection{ID: "smart", Name: "Smart", Query: "year > 2020"}))

	smart, err := repo.FindSmart(ctx)
	require.NoError(t, err)
	require.Len(t, smart, 1)
	assert.Equal(t, "smart", smart[0].ID)
}

func TestCollectionRepository_FindAll_DoesNotLeakEntryRecords(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	entryRepo := NewEntryRepository(backend, nil)
	collRepo := NewCollectionRepository(backend)

	require.NoError(t, entryRepo.Save(ctx, entry.New("e1", entry.TypeMisc, time.Now()), SaveOptions{SkipValidation: true}))
	require.NoError(t, collRepo.Save(ctx, entry.Collection{ID: "c1", Name: "C1"}))

	all, err := collRepo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "entry record should be filtered out")
}
