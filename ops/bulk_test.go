package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jschaf/bibmgr/entry"
)

type recordingReporter struct {
	calls []string
}

func (r *recordingReporter) Report(done, total int, key string) {
	r.calls = append(r.calls, key)
}

func TestBulkCreate_NonAtomic_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("dup"), false)

	entries := []entry.Entry{sampleEntry("dup"), sampleEntry("fresh")}
	results := o.BulkCreate(ctx, entries, BulkOptions{StopOnError: false})
	require.Len(t, results, 2)
	assert.False(t, results[0].Success, "creating a duplicate key should fail")
	assert.True(t, results[1].Success, "the second, non-conflicting entry should still be created")
}

func TestBulkCreate_Atomic_RollsBackWholeBatchOnFailure(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("dup"), false)

	entries := []entry.Entry{sampleEntry("fresh1"), sampleEntry("dup"), sampleEntry("fresh2")}
	results := o.BulkCreate(ctx, entries, BulkOptions{StopOnError: true})
	require.Len(t, results, len(entries), "every input entry must get a result, including those after the failing one")
	for _, r := range results {
		assert.False(t, r.Success, "every result should be marked failed after an atomic rollback")
	}

	exists, err := o.repo.Entries.Exists(ctx, "fresh1")
	require.NoError(t, err)
	assert.False(t, exists, "fresh1 should have been rolled back alongside the failure")

	exists, err = o.repo.Entries.Exists(ctx, "fresh2")
	require.NoError(t, err)
	assert.False(t, exists, "fresh2, which sorts after the failing entry, should never have been written")
}

func TestBulkCreate_Atomic_PrecheckCatchesConflictBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("dup"), false)

	entries := []entry.Entry{sampleEntry("dup"), sampleEntry("fresh1"), sampleEntry("fresh2")}
	results := o.BulkCreate(ctx, entries, BulkOptions{StopOnError: true})
	require.Len(t, results, 3, "spec.md scenario 4: a 3-entry atomic batch with one failure yields three failure outcomes")
	for _, r := range results {
		assert.False(t, r.Success)
	}

	n, err := o.repo.Entries.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the pre-existing dup entry should remain; nothing from the batch was written")
}

func TestBulkCreate_ReportsProgress(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	rep := &recordingReporter{}
	entries := []entry.Entry{sampleEntry("a"), sampleEntry("b")}
	o.BulkCreate(ctx, entries, BulkOptions{Progress: rep})
	assert.Len(t, rep.calls, 2)
}

func TestBulkDelete_NonAtomic_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("e1"), false)

	results := o.BulkDelete(ctx, []string{"e1", "missing"}, false, BulkOptions{StopOnError: false})
	require.Len(t, results, 2)
	assert.True(t, results[0].Success, "deleting the existing entry should succeed")
	assert.False(t, results[1].Success, "deleting a missing entry should fail")
}

func TestBulkDelete_Atomic_RollsBackWholeBatchOnFailure(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.Create(ctx, sampleEntry("e1"), false)
	o.Create(ctx, sampleEntry("e2"), false)

	results := o.BulkDelete(ctx, []string{"e1", "missing", "e2"}, false, BulkOptions{StopOnError: true})
	require.Len(t, results, 3, "every input key must get a result, including those after the failing one")
	for _, r := range results {
		assert.False(t, r.Success, "every result should be marked failed after an atomic rollback")
	}

	exists, err := o.repo.Entries.Exists(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, exists, "e1's delete should have been rolled back")

	exists, err = o.repo.Entries.Exists(ctx, "e2")
	require.NoError(t, err)
	assert.True(t, exists, "e2, which sorts after the missing key, should never have been deleted")
}

func TestBulkCreate_DryRun(t *testing.T) {
	ctx := context.Background()
	o := newTestOps()
	o.DryRun = true
	entries := []entry.Entry{sampleEntry("a")}
	results := o.BulkCreate(ctx, entries, BulkOptions{StopOnError: true})
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	exists, err := o.repo.Entries.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists, "dry-run BulkCreate should not persist anything")
}
