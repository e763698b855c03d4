package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/jschaf/bibmgr/entry"
	"github.com/jschaf/bibmgr/repository"
)

// Operations is the single-entry-point CRUD surface: every call locks its
// key for the duration of the operation, so concurrent callers touching the
// same entry serialize instead of racing, while callers touching different
// entries never block each other.
type Operations struct {
	repo   *repository.Manager
	locks  *keyLocks
	DryRun bool
	Now    func() time.Time
}

// New builds an Operations layer over repo with the given per-key lock
// timeout (0 uses DefaultLockTimeout).
func New(repo *repository.Manager, lockTimeout time.Duration) *Operations {
	return &Operations{repo: repo, locks: newKeyLocks(lockTimeout), Now: time.Now}
}

func (o *Operations) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Operations) dryRunMessage(msg string) string {
	if o.DryRun {
		return "[DRY RUN] " + msg
	}
	return msg
}

// Create persists a new entry. Unless force is true, it fails if key
// already exists.
func (o *Operations) Create(ctx context.Context, e entry.Entry, force bool) Result {
	return o.createWithOptions(ctx, e, force, repository.SaveOptions{})
}

func (o *Operations) createWithOptions(ctx context.Context, e entry.Entry, force bool, saveOpts repository.SaveOptions) Result {
	var res Result
	err := o.locks.withLock(ctx, e.Key, func() error {
		exists, err := o.repo.Entries.Exists(ctx, e.Key)
		if err != nil {
			res = failed(KindCreate, e.Key, "lookup failed", err)
			return nil
		}
		if exists && !force {
			res = failed(KindCreate, e.Key, fmt.Sprintf("entry %q already exists", e.Key))
			return nil
		}
		if o.DryRun {
			res = ok(KindCreate, e.Key, o.dryRunMessage(fmt.Sprintf("would create %q", e.Key)))
			res.NewEntry = &e
			return nil
		}
		if err := o.repo.Entries.Save(ctx, e, saveOpts); err != nil {
			res = failed(KindCreate, e.Key, "save failed", err)
			return nil
		}
		res = ok(KindCreate, e.Key, fmt.Sprintf("created %q", e.Key))
		res.NewEntry = &e
		return nil
	})
	if err != nil {
		return failed(KindCreate, e.Key, "lock failed", err)
	}
	return res
}

// Read loads a single entry.
func (o *Operations) Read(ctx context.Context, key string) Result {
	e, found, err := o.repo.Entries.Find(ctx, key)
	if err != nil {
		return failed(KindRead, key, "read failed", err)
	}
	if !found {
		return failed(KindRead, key, fmt.Sprintf("entry %q not found", key))
	}
	res := ok(KindRead, key, fmt.Sprintf("read %q", key))
	res.NewEntry = &e
	return res
}

// Update applies a sparse field-map patch to an existing entry: a field
// present in fields with a nil value drops that field; a field present
// with a non-nil value sets it; a field absent from fields is untouched. A
// change to the "key" field renames the entry: the old key is deleted and
// the new one saved inside one repository transaction, which is atomic on
// backends that support transactions.
func (o *Operations) Update(ctx context.Context, key string, fields map[string]*string, validate bool) Result {
	var res Result
	err := o.locks.withLock(ctx, key, func() error {
		e, found, err := o.repo.Entries.Find(ctx, key)
		if err != nil {
			res = failed(KindUpdate, key, "lookup failed", err)
			return nil
		}
		if !found {
			res = failed(KindUpdate, key, fmt.Sprintf("entry %q not found", key))
			return nil
		}
		old := e
		now := o.now()
		newKey := key

		for name, val := range fields {
			if name == "key" {
				if val != nil {
					newKey = *val
				}
				continue
			}
			if val == nil {
				e = e.WithField(entry.Field(name), "", now)
				continue
			}
			e = e.WithField(entry.Field(name), *val, now)
		}
		if newKey != key {
			e = e.WithKey(newKey, now)
		}

		if o.DryRun {
			res = ok(KindUpdate, key, o.dryRunMessage(fmt.Sprintf("would update %q", key)))
			res.OldEntry, res.NewEntry = &old, &e
			return nil
		}

		opts := repository.SaveOptions{SkipValidation: !validate}
		txErr := o.repo.Transaction(ctx, func(ctx context.Context) error {
			if newKey != key {
				if _, err := o.repo.Entries.Delete(ctx, key); err != nil {
					res = failed(KindUpdate, key, "rename: delete old key failed", err)
					return err
				}
			}
			if err := o.repo.Entries.Save(ctx, e, opts); err != nil {
				res = failed(KindUpdate, key, "save failed", err)
				return err
			}
			return nil
		})
		if txErr != nil {
			return nil
		}
		res = ok(KindUpdate, newKey, fmt.Sprintf("updated %q", newKey))
		res.OldEntry, res.NewEntry = &old, &e
		return nil
	})
	if err != nil {
		return failed(KindUpdate, key, "lock failed", err)
	}
	return res
}

// Delete removes an entry (and, via the repository manager, its metadata),
// honoring cascade for collection membership cleanup when cascade is true.
func (o *Operations) Delete(ctx context.Context, key string, cascade bool) Result {
	var res Result
	err := o.locks.withLock(ctx, key, func() error {
		e, found, err := o.repo.Entries.Find(ctx, key)
		if err != nil {
			res = failed(KindDelete, key, "lookup failed", err)
			return nil
		}
		if !found {
			res = failed(KindDelete, key, fmt.Sprintf("entry %q not found", key))
			return nil
		}
		if o.DryRun {
			res = ok(KindDelete, key, o.dryRunMessage(fmt.Sprintf("would delete %q", key)))
			res.OldEntry = &e
			return nil
		}
		if _, err := o.repo.DeleteEntry(ctx, key); err != nil {
			res = failed(KindDelete, key, "delete failed", err)
			return nil
		}
		if cascade {
			if err := o.cascadeCollections(ctx, key); err != nil {
				res = failed(KindDelete, key, "cascade cleanup failed", err)
				return nil
			}
		}
		res = ok(KindDelete, key, fmt.Sprintf("deleted %q", key))
		res.OldEntry = &e
		return nil
	})
	if err != nil {
		return failed(KindDelete, key, "lock failed", err)
	}
	return res
}

// cascadeCollections removes key from every manual collection's membership.
func (o *Operations) cascadeCollections(ctx context.Context, key string) error {
	collections, err := o.repo.Collections.FindAll(ctx)
	if err != nil {
		return err
	}
	now := o.now()
	for _, c := range collections {
		if !c.IsManual() {
			continue
		}
		updated := c.WithoutMember(key, now)
		if len(updated.Members) == len(c.Members) {
			continue
		}
		if err := o.repo.Collections.Save(ctx, updated); err != nil {
			return err
		}
	}
	return nil
}

// Replace overwrites an existing entry wholesale, keeping its key.
func (o *Operations) Replace(ctx context.Context, e entry.Entry) Result {
	var res Result
	err := o.locks.withLock(ctx, e.Key, func() error {
		old, found, err := o.repo.Entries.Find(ctx, e.Key)
		if err != nil {
			res = failed(KindReplace, e.Key, "lookup failed", err)
			return nil
		}
		if !found {
			res = failed(KindReplace, e.Key, fmt.Sprintf("entry %q not found", e.Key))
			return nil
		}
		if o.DryRun {
			res = ok(KindReplace, e.Key, o.dryRunMessage(fmt.Sprintf("would replace %q", e.Key)))
			res.OldEntry, res.NewEntry = &old, &e
			return nil
		}
		if err := o.repo.Entries.Save(ctx, e, repository.SaveOptions{}); err != nil {
			res = failed(KindReplace, e.Key, "save failed", err)
			return nil
		}
		res = ok(KindReplace, e.Key, fmt.Sprintf("replaced %q", e.Key))
		res.OldEntry, res.NewEntry = &old, &e
		return nil
	})
	if err != nil {
		return failed(KindReplace, e.Key, "lock failed", err)
	}
	return res
}
