package filebackend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInitialized(t *testing.T) *Backend {
	t.Helper()
	b := New(t.TempDir())
	require.NoError(t, b.Initialize(context.Background()))
	return b
}

func TestBackend_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	b := newInitialized(t)

	require.NoError(t, b.Write(ctx, "lovelace1843", []byte(`{"title":"foo"}`)))

	data, ok, err := b.Read(ctx, "lovelace1843")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"title":"foo"}`, string(data))

	existed, err := b.Delete(ctx, "lovelace1843")
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok, _ = b.Read(ctx, "lovelace1843")
	assert.False(t, ok, "key should be gone after delete")
}

func TestBackend_ReadMissingKey(t *testing.T) {
	b := newInitialized(t)
	_, ok, err := b.Read(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_KeyWithUnsafeCharsRoundTrips(t *testing.T) {
	ctx := context.Background()
	b := newInitialized(t)
	key := "entry:weird/key with spaces"
	require.NoError(t, b.Write(ctx, key, []byte("v")))

	data, ok, err := b.Read(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(data))
}

func TestBackend_IndexPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b1 := New(dir)
	require.NoError(t, b1.Initialize(ctx))
	require.NoError(t, b1.Write(ctx, "k1", []byte("v1")))

	b2 := New(dir)
	require.NoError(t, b2.Initialize(ctx))

	data, ok, err := b2.Read(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", string(data))
}

func TestBackend_ExistsAndKeys(t *testing.T) {
	ctx := context.Background()
	b := newInitialized(t)
	require.NoError(t, b.Write(ctx, "a", []byte("1")))
	require.NoError(t, b.Write(ctx, "b", []byte("2")))

	ok, err := b.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestBackend_Clear(t *testing.T) {
	ctx := context.Background()
	b := newInitialized(t)
	require.NoError(t, b.Write(ctx, "a", []byte("1")))
	require.NoError(t, b.Clear(ctx))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBackend_DoesNotSupportTransactions(t *testing.T) {
	assert.False(t, newInitialized(t).SupportsTransactions(), "filebackend should not claim transaction support")
}

func TestBackend_BackupAndRestore(t *testing.T) {
	ctx := context.Background()
	b := newInitialized(t)
	require.NoError(t, b.Write(ctx, "a", []byte("1")))
	require.NoError(t, b.Write(ctx, "b", []byte("2")))

	backupDir := t.TempDir()
	require.NoError(t, b.Backup(backupDir))

	b2 := newInitialized(t)
	require.NoError(t, b2.Write(ctx, "stale", []byte("x")))
	require.NoError(t, b2.Restore(backupDir))

	_, ok, _ := b2.Read(ctx, "stale")
	assert.False(t, ok, "restore should replace the prior tree, not merge with it")

	data, ok, err := b2.Read(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(data))
}
