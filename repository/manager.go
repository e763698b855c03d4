package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jschaf/bibmgr/entry"
	"github.com/jschaf/bibmgr/quality"
	"github.com/jschaf/bibmgr/storage"
)

// MetadataStore is the subset of the metadata store's API the manager needs
// to keep entry and metadata deletes coordinated, declared here rather than
// imported directly so repository never depends on metastore.
type MetadataStore interface {
	Delete(ctx context.Context, entryKey string) error
}

// Manager owns a Backend and the repositories layered on it, giving callers
// one place to open a transaction that spans entries, collections, and
// (optionally) metadata.
type Manager struct {
	Backend     storage.Backend
	Entries     *EntryRepository
	Collections *CollectionRepository
	Metadata    MetadataStore // nil if the caller didn't wire a metadata store
}

// NewManager builds a Manager over backend with the given validation rules
// for entry saves.
func NewManager(backend storage.Backend, rules []quality.Rule) *Manager {
	return &Manager{
		Backend:     backend,
		Entries:     NewEntryRepository(backend, rules),
		Collections: NewCollectionRepository(backend),
	}
}

// WithMetadata attaches a metadata store for coordinated deletes.
func (m *Manager) WithMetadata(store MetadataStore) *Manager {
	m.Metadata = store
	return m
}

// Transaction runs fn inside the backend's transaction scope, if supported;
// otherwise it runs fn directly against the backend with no atomicity
// guarantee beyond what individual writes already provide.
func (m *Manager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.Backend.SupportsTransactions() {
		return fn(ctx)
	}
	return m.Backend.BeginTransaction(ctx, fn)
}

// DeleteEntry removes an entry and, if a metadata store is attached, its
// sidecar metadata and notes, inside one transaction scope.
func (m *Manager) DeleteEntry(ctx context.Context, key string) (bool, error) {
	var existed bool
	err := m.Transaction(ctx, func(ctx context.Context) error {
		var err error
		existed, err = m.Entries.Delete(ctx, key)
		if err != nil {
			return err
		}
		if m.Metadata != nil {
			if err := m.Metadata.Delete(ctx, key); err != nil {
				return fmt.Errorf("delete metadata for %s: %w", key, err)
			}
		}
		return nil
	})
	return existed, err
}

// ImportOutcome reports the per-entry result of a bulk import.
type ImportOutcome struct {
	Key     string
	Saved   bool
	Skipped bool
	Err     error
}

// BulkImport saves every entry in entries, continuing past individual
// failures and reporting one ImportOutcome per entry rather than aborting
// the whole batch.
func (m *Manager) BulkImport(ctx context.Context, entries []entry.Entry, opts SaveOptions) []ImportOutcome {
	outcomes := make([]ImportOutcome, 0, len(entries))
	for _, e := range entries {
		err := m.Entries.Save(ctx, e, opts)
		outcomes = append(outcomes, ImportOutcome{Key: e.Key, Saved: err == nil, Err: err})
	}
	return outcomes
}

// Statistics summarizes the repository's current contents.
type Statistics struct {
	TotalEntries     int
	CountByType      map[entry.Type]int
	CountByYear      map[int]int
	TotalCollections int
	GeneratedAt      time.Time
}

// Statistics computes counts over every persisted entry and collection.
func (m *Manager) Statistics(ctx context.Context, now time.Time) (Statistics, error) {
	entries, err := m.Entries.FindAll(ctx)
	if err != nil {
		return Statistics{}, err
	}
	collections, err := m.Collections.FindAll(ctx)
	if err != nil {
		return Statistics{}, err
	}
	stats := Statistics{
		TotalEntries:     len(entries),
		CountByType:      make(map[entry.Type]int),
		CountByYear:      make(map[int]int),
		TotalCollections: len(collections),
		GeneratedAt:      now,
	}
	for _, e := range entries {
		stats.CountByType[e.Type]++
		if e.Year != 0 {
			stats.CountByYear[e.Year]++
		}
	}
	return stats, nil
}
