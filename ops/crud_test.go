package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jschaf/bibmgr/entry"
	"github.com/jschaf/bibmgr/repository"
	"github.com/jschaf/bibmgr/storage"
)

func newTestOps() *Operations {
	repo := repository.NewManager(storage.NewMemory(), nil)
	o := New(repo, time.Second)
	o.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return o
}

func sampleEntry(key string) entry.Entry {
	e := entry.New(key, entry.TypeMisc, time.Now())
	e.Title = "Sample"
	return e
}

func TestOperations_Create(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	res := o.Create(ctx, sampleEntry("e1"), false)
	require.True(t, res.Success)
	require.NotNil(t, res.NewEntry)
}

func TestOperations_Create_RejectsDuplicateWithoutForce(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("e1"), false)
	res := o.Create(ctx, sampleEntry("e1"), false)
	assert.False(t, res.Success, "Create without force should fail on a duplicate key")
}

func TestOperations_Create_ForceOverwrites(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("e1"), false)
	res := o.Create(ctx, sampleEntry("e1"), true)
	assert.True(t, res.Success, "Create with force should succeed on a duplicate key")
}

func TestOperations_Create_DryRunDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.DryRun = true
	res := o.Create(ctx, sampleEntry("e1"), false)
	require.True(t, res.Success)

	exists, err := o.repo.Entries.Exists(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, exists, "dry-run Create should not actually write the entry")
}

func TestOperations_Read(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("e1"), false)

	res := o.Read(ctx, "e1")
	require.True(t, res.Success)
	require.NotNil(t, res.NewEntry)
	assert.Equal(t, "e1", res.NewEntry.Key)

	miss := o.Read(ctx, "missing")
	assert.False(t, miss.Success, "Read(missing) should fail")
}

func TestOperations_Update_SetsAndClearsFields(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	e := sampleEntry("e1")
	e.Publisher = "Old Publisher"
	o.Create(ctx, e, false)

	newTitle := "New Title"
	res := o.Update(ctx, "e1", map[string]*string{
		"title":     &newTitle,
		"publisher": nil,
	}, false)
	require.True(t, res.Success)
	assert.Equal(t, "New Title", res.NewEntry.Title)
	assert.Empty(t, res.NewEntry.Publisher, "cleared field should be empty")
}

func TestOperations_Update_KeyFieldRenames(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("old-key"), false)

	newKey := "new-key"
	res := o.Update(ctx, "old-key", map[string]*string{"key": &newKey}, false)
	require.True(t, res.Success)
	assert.Equal(t, "new-key", res.Key)

	exists, err := o.repo.Entries.Exists(ctx, "old-key")
	require.NoError(t, err)
	assert.False(t, exists, "old key should no longer exist after rename")

	exists, err = o.repo.Entries.Exists(ctx, "new-key")
	require.NoError(t, err)
	assert.True(t, exists, "new key should exist after rename")
}

func TestOperations_Update_MissingEntryFails(t *testing.T) {
	o := newTestOps()
	res := o.Update(context.Background(), "missing", nil, false)
	assert.False(t, res.Success, "Update on a missing entry should fail")
}

func TestOperations_Delete(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("e1"), false)

	res := o.Delete(ctx, "e1", false)
	require.True(t, res.Success)
	require.NotNil(t, res.OldEntry)

	exists, err := o.repo.Entries.Exists(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, exists, "entry should be gone after delete")
}

func TestOperations_Delete_CascadeRemovesCollectionMembership(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("e1"), false)
	require.NoError(t, o.repo.Collections.Save(ctx, entry.Collection{ID: "c1", Name: "C1", Members: []string{"e1", "e2"}}))

	res := o.Delete(ctx, "e1", true)
	require.True(t, res.Success)

	c, _, err := o.repo.Collections.Find(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e2"}, c.Members)
}

func TestOperations_Delete_MissingEntryFails(t *testing.T) {
	o := newTestOps()
	res := o.Delete(context.Background(), "missing", false)
	assert.False(t, res.Success, "Delete on a missing entry should fail")
}

func TestOperations_Replace(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("e1"), false)

	replacement := sampleEntry("e1")
	replacement.Title = "Replaced"
	res := o.Replace(ctx, replacement)
	require.True(t, res.Success)
	assert.Equal(t, "Replaced", res.NewEntry.Title)
}

func TestOperations_Replace_MissingEntryFails(t *testing.T) {
	o := newTestOps()
	res := o.Replace(context.Background(), sampleEntry("missing"))
	assert.False(t, res.Success, "Replace on a missing entry should fail")
}
