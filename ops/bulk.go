package ops

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jschaf/bibmgr/entry"
	"github.com/jschaf/bibmgr/repository"
)

// ProgressReporter receives incremental progress during a bulk operation.
// Implementations must return quickly; Report is called synchronously on
// the calling goroutine between items.
type ProgressReporter interface {
	Report(done, total int, key string)
}

// noopReporter is used when callers pass a nil ProgressReporter.
type noopReporter struct{}

func (noopReporter) Report(done, total int, key string) {}

// BulkOptions controls BulkCreate/BulkDelete's atomicity and validation.
type BulkOptions struct {
	StopOnError bool
	Validate    bool
	Progress    ProgressReporter
}

func (o BulkOptions) reporter() ProgressReporter {
	if o.Progress == nil {
		return noopReporter{}
	}
	return o.Progress
}

// BulkCreate creates every entry in entries. When opts.StopOnError is true
// the whole batch runs inside one transaction and is rolled back wholesale
// on the first failure (atomic all-or-nothing); otherwise each entry is
// attempted independently and failures are reported per-item without
// aborting the rest.
func (o *Operations) BulkCreate(ctx context.Context, entries []entry.Entry, opts BulkOptions) []Result {
	if opts.StopOnError {
		return o.bulkCreateAtomic(ctx, entries, opts)
	}
	results := make([]Result, 0, len(entries))
	saveOpts := repository.SaveOptions{SkipValidation: !opts.Validate}
	for i, e := range entries {
		res := o.createWithOptions(ctx, e, false, saveOpts)
		results = append(results, res)
		opts.reporter().Report(i+1, len(entries), e.Key)
	}
	return results
}

// bulkCreateAtomic checks every entry's precondition (non-existence and,
// when requested, validation) before writing anything. A failure anywhere in
// the batch aborts the whole thing with no partial writes, and every input
// entry still gets a Result.
func (o *Operations) bulkCreateAtomic(ctx context.Context, entries []entry.Entry, opts BulkOptions) []Result {
	results := make([]Result, len(entries))
	saveOpts := repository.SaveOptions{SkipValidation: !opts.Validate}

	if badAt, badResult := o.precheckCreates(ctx, entries, saveOpts); badAt >= 0 {
		for i, e := range entries {
			if i == badAt {
				results[i] = badResult
				continue
			}
			results[i] = failed(KindCreate, e.Key, fmt.Sprintf("bulk create aborted: %q failed its precondition check", entries[badAt].Key))
		}
		return results
	}

	if o.DryRun {
		for i, e := range entries {
			ne := e
			res := ok(KindCreate, e.Key, o.dryRunMessage(fmt.Sprintf("would create %q", e.Key)))
			res.NewEntry = &ne
			results[i] = res
			opts.reporter().Report(i+1, len(entries), e.Key)
		}
		return results
	}

	txErr := o.repo.Transaction(ctx, func(ctx context.Context) error {
		for i, e := range entries {
			if err := o.repo.Entries.Save(ctx, e, saveOpts); err != nil {
				results[i] = failed(KindCreate, e.Key, "save failed", err)
				return fmt.Errorf("bulk create aborted at %q: %w", e.Key, err)
			}
			ne := e
			res := ok(KindCreate, e.Key, fmt.Sprintf("created %q", e.Key))
			res.NewEntry = &ne
			results[i] = res
			opts.reporter().Report(i+1, len(entries), e.Key)
		}
		return nil
	})
	if txErr != nil {
		// The transaction rolled back: nothing in this batch actually
		// persisted, so every result is downgraded to reflect that,
		// including entries past the one that triggered the abort.
		for i, e := range entries {
			if results[i].Message == "" {
				results[i] = failed(KindCreate, e.Key, "bulk create aborted: batch rolled back")
			}
			results[i].Success = false
			results[i].Message += " (rolled back)"
		}
	}
	return results
}

// precheckCreates validates every entry's create precondition (already
// exists, or fails validation) without writing anything. It returns the
// index of the first entry (in input order) that fails its precondition, or
// -1 if every entry may proceed.
//
// The backend lookups are I/O-bound and independent, so they run
// concurrently via errgroup, the way citekey.GenerateBatchAsync fans out its
// exists checks: one goroutine per entry writes into a private slot, and the
// scan for "the first failure" happens afterward on the calling goroutine so
// a failure found by a later-finishing goroutine never shadows an earlier
// input's failure.
func (o *Operations) precheckCreates(ctx context.Context, entries []entry.Entry, saveOpts repository.SaveOptions) (int, Result) {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if seen[e.Key] {
			return i, failed(KindCreate, e.Key, fmt.Sprintf("entry %q appears more than once in this batch", e.Key))
		}
		seen[e.Key] = true
	}

	checks := make([]Result, len(entries))
	grp, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		grp.Go(func() error {
			exists, err := o.repo.Entries.Exists(gctx, e.Key)
			if err != nil {
				checks[i] = failed(KindCreate, e.Key, "lookup failed", err)
				return nil
			}
			if exists {
				checks[i] = failed(KindCreate, e.Key, fmt.Sprintf("entry %q already exists", e.Key))
				return nil
			}
			if err := o.repo.Entries.Validate(e, saveOpts); err != nil {
				checks[i] = failed(KindCreate, e.Key, "validation failed", err)
			}
			return nil
		})
	}
	_ = grp.Wait() // goroutines never return a non-nil error; failures are recorded per-slot instead

	for i, r := range checks {
		if r.Message != "" {
			return i, r
		}
	}
	return -1, Result{}
}

// BulkDelete deletes every key in keys, with the same stop-on-error /
// independent semantics as BulkCreate.
func (o *Operations) BulkDelete(ctx context.Context, keys []string, cascade bool, opts BulkOptions) []Result {
	if !opts.StopOnError {
		results := make([]Result, 0, len(keys))
		for i, k := range keys {
			results = append(results, o.Delete(ctx, k, cascade))
			opts.reporter().Report(i+1, len(keys), k)
		}
		return results
	}

	results := make([]Result, len(keys))
	found := make([]entry.Entry, len(keys))
	if badAt, badResult := o.precheckDeletes(ctx, keys, found); badAt >= 0 {
		for i, k := range keys {
			if i == badAt {
				results[i] = badResult
				continue
			}
			results[i] = failed(KindDelete, k, fmt.Sprintf("bulk delete aborted: %q failed its precondition check", keys[badAt]))
		}
		return results
	}

	if o.DryRun {
		for i, k := range keys {
			oe := found[i]
			res := ok(KindDelete, k, o.dryRunMessage(fmt.Sprintf("would delete %q", k)))
			res.OldEntry = &oe
			results[i] = res
			opts.reporter().Report(i+1, len(keys), k)
		}
		return results
	}

	txErr := o.repo.Transaction(ctx, func(ctx context.Context) error {
		for i, k := range keys {
			if _, err := o.repo.DeleteEntry(ctx, k); err != nil {
				results[i] = failed(KindDelete, k, "delete failed", err)
				return fmt.Errorf("bulk delete aborted at %q: %w", k, err)
			}
			oe := found[i]
			res := ok(KindDelete, k, fmt.Sprintf("deleted %q", k))
			res.OldEntry = &oe
			results[i] = res
			opts.reporter().Report(i+1, len(keys), k)
		}
		return nil
	})
	if txErr != nil {
		for i, k := range keys {
			if results[i].Message == "" {
				results[i] = failed(KindDelete, k, "bulk delete aborted: batch rolled back")
			}
			results[i].Success = false
			results[i].Message += " (rolled back)"
		}
	}
	return results
}

// precheckDeletes validates that every key exists before any delete runs,
// recording each found entry into found (for OldEntry / dry-run reporting).
// It returns the index of the first key (in input order) that fails its
// precondition, or -1 if every key may proceed. The backend lookups fan out
// concurrently via errgroup; see precheckCreates for why the failure scan
// happens separately, after every goroutine has finished.
func (o *Operations) precheckDeletes(ctx context.Context, keys []string, found []entry.Entry) (int, Result) {
	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		if seen[k] {
			return i, failed(KindDelete, k, fmt.Sprintf("key %q appears more than once in this batch", k))
		}
		seen[k] = true
	}

	checks := make([]Result, len(keys))
	grp, gctx := errgroup.WithContext(ctx)
	for i, k := range keys {
		i, k := i, k
		grp.Go(func() error {
			e, ok, err := o.repo.Entries.Find(gctx, k)
			if err != nil {
				checks[i] = failed(KindDelete, k, "lookup failed", err)
				return nil
			}
			if !ok {
				checks[i] = failed(KindDelete, k, fmt.Sprintf("entry %q not found", k))
				return nil
			}
			found[i] = e
			return nil
		})
	}
	_ = grp.Wait()

	for i, r := range checks {
		if r.Message != "" {
			return i, r
		}
	}
	return -1, Result{}
}
