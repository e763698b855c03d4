package sqlbackend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), "bibmgr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	require.NoError(t, b.Initialize(context.Background()))
	return b
}

func entryJSON(title, author string) []byte {
	return []byte(`{"type":"article","title":"` + title + `","author":[{"family":"` + author + `"}],"createdAt":"2020-01-01T00:00:00Z","modifiedAt":"2020-01-01T00:00:00Z","year":2020}`)
}

func TestBackend_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)

	require.NoError(t, b.Write(ctx, "turing1936", entryJSON("On Computable Numbers", "Turing")))

	data, ok, err := b.Read(ctx, "turing1936")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, data)

	existed, err := b.Delete(ctx, "turing1936")
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok, _ = b.Read(ctx, "turing1936")
	assert.False(t, ok, "key should be gone after delete")
}

func TestBackend_WriteUpsertsOnConflict(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)

	require.NoError(t, b.Write(ctx, "k1", entryJSON("First Title", "Author")))
	require.NoError(t, b.Write(ctx, "k1", entryJSON("Second Title", "Author")))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1, "writing the same key twice should upsert, not duplicate")
}

func TestBackend_ExistsAndKeys(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)
	require.NoError(t, b.Write(ctx, "a", entryJSON("A", "X")))
	require.NoError(t, b.Write(ctx, "b", entryJSON("B", "Y")))

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

func TestBackend_Search(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)
	require.NoError(t, b.Write(ctx, "a", entryJSON("Quantum Computing Basics", "Shor")))
	require.NoError(t, b.Write(ctx, "b", entryJSON("Medieval French Poetry", "Dubois")))

	keys, err := b.Search(ctx, "Quantum")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "a", keys[0])
}

func TestBackend_Query_ByType(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)
	require.NoError(t, b.Write(ctx, "a", entryJSON("A", "X")))

	keys, err := b.Query(ctx, Filter{Type: "article"})
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	keys, err = b.Query(ctx, Filter{Type: "book"})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBackend_Query_ByAuthorSubstring(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)
	require.NoError(t, b.Write(ctx, "a", entryJSON("A", "Turing")))

	keys, err := b.Query(ctx, Filter{Author: "turin"})
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestBackend_Clear(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)
	require.NoError(t, b.Write(ctx, "a", entryJSON("A", "X")))
	require.NoError(t, b.Clear(ctx))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBackend_BeginTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)
	sentinel := errors.New("boom")

	err := b.BeginTransaction(ctx, func(ctx context.Context) error {
		if werr := b.Write(ctx, "a", entryJSON("A", "X")); werr != nil {
			return werr
		}
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)

	_, ok, _ := b.Read(ctx, "a")
	assert.False(t, ok, "write inside a rolled-back transaction should not be visible")
}

func TestBackend_BeginTransaction_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)

	err := b.BeginTransaction(ctx, func(ctx context.Context) error {
		return b.Write(ctx, "a", entryJSON("A", "X"))
	})
	require.NoError(t, err)

	_, ok, _ := b.Read(ctx, "a")
	assert.True(t, ok, "write inside a successful transaction should be visible after commit")
}

func TestBackend_GetStatistics(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)
	require.NoError(t, b.Write(ctx, "a", entryJSON("A", "X")))
	require.NoError(t, b.Write(ctx, "b", entryJSON("B", "Y")))

	stats, err := b.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CountByType["article"])
	assert.Equal(t, 2, stats.CountByYear[2020])
}

func TestBackend_SupportsTransactions(t *testing.T) {
	assert.True(t, newOpenBackend(t).SupportsTransactions())
}

func TestBackend_Migrate_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)
	require.NoError(t, b.Write(ctx, "a", entryJSON("A", "X")))

	require.NoError(t, b.Migrate(ctx), "re-running Migrate against an already-migrated database should be a no-op, not an error")

	_, ok, err := b.Read(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok, "data written before a repeat Migrate call should survive it")
}

func TestBackend_Migrate_RecordsEveryStepInSchemaMigrations(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)

	rows, err := b.db.QueryContext(ctx, `SELECT name FROM schema_migrations ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	assert.Len(t, names, len(migrations), "every migration step should be recorded exactly once")
}

func TestBackend_Vacuum_RunsWithoutError(t *testing.T) {
	ctx := context.Background()
	b := newOpenBackend(t)
	require.NoError(t, b.Write(ctx, "a", entryJSON("A", "X")))
	_, err := b.Delete(ctx, "a")
	require.NoError(t, err)

	assert.NoError(t, b.Vacuum(ctx))
}
