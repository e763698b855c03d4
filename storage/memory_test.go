package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Read(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "Read on empty store should report not-found")

	require.NoError(t, m.Write(ctx, "a", []byte("hello")))

	got, ok, err := m.Read(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", string(got))

	deleted, err := m.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, _ = m.Read(ctx, "a")
	assert.False(t, ok, "key should be gone after Delete")

	deleted, _ = m.Delete(ctx, "a")
	assert.False(t, deleted, "deleting a missing key should report false")
}

func TestMemory_ReadReturnsACopyNotAnAlias(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	orig := []byte("hello")
	require.NoError(t, m.Write(ctx, "a", orig))
	orig[0] = 'X'

	got, _, _ := m.Read(ctx, "a")
	assert.Equal(t, "hello", string(got), "mutating the caller's write buffer should not affect stored data")

	got[0] = 'Y'
	got2, _, _ := m.Read(ctx, "a")
	assert.Equal(t, "hello", string(got2), "mutating a read result should not affect stored data")
}

func TestMemory_ExistsAndKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Write(ctx, "a", []byte("1")))
	require.NoError(t, m.Write(ctx, "b", []byte("2")))

	ok, err := m.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestMemory_Clear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Write(ctx, "a", []byte("1")))
	require.NoError(t, m.Clear(ctx))

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemory_BeginTransaction_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Write(ctx, "a", []byte("1")))

	err := m.BeginTransaction(ctx, func(ctx context.Context) error {
		return m.Write(ctx, "b", []byte("2"))
	})
	require.NoError(t, err)

	_, ok, _ := m.Read(ctx, "b")
	assert.True(t, ok, "write inside a successful transaction should be visible after commit")
}

func TestMemory_BeginTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Write(ctx, "a", []byte("1")))

	sentinel := errors.New("boom")
	err := m.BeginTransaction(ctx, func(ctx context.Context) error {
		if werr := m.Write(ctx, "b", []byte("2")); werr != nil {
			return werr
		}
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)

	_, ok, _ := m.Read(ctx, "b")
	assert.False(t, ok, "write inside a rolled-back transaction should not be visible")

	_, ok, _ = m.Read(ctx, "a")
	assert.True(t, ok, "pre-existing data should survive a rollback")
}

func TestMemory_BeginTransaction_NestedIsNoOp(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.BeginTransaction(ctx, func(ctx context.Context) error {
		return m.BeginTransaction(ctx, func(ctx context.Context) error {
			return m.Write(ctx, "nested", []byte("v"))
		})
	})
	require.NoError(t, err)

	_, ok, _ := m.Read(ctx, "nested")
	assert.True(t, ok, "write inside a nested transaction should commit with the outer one")
}

func TestMemory_SupportsTransactions(t *testing.T) {
	assert.True(t, NewMemory().SupportsTransactions())
}
