// Package repository sits between the storage backends and the rest of the
// system: it (de)serializes entry.Entry values to and from JSON blobs, runs
// validation on save, and exposes a query builder over the loaded entry set.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jschaf/bibmgr/entry"
	"github.com/jschaf/bibmgr/quality"
	"github.com/jschaf/bibmgr/storage"
)

// entryKeyPrefix namespaces entry records in a shared key space with
// collections, so one Backend can hold both without key collisions.
const entryKeyPrefix = "entry:"

func entryStorageKey(key string) string { return entryKeyPrefix + key }

// EntryRepository persists entry.Entry values on a storage.Backend.
type EntryRepository struct {
	backend storage.Backend
	rules   []quality.Rule // entry-level rules run on Save unless skipped
}

// NewEntryRepository builds a repository over backend, validating saves
// against rules (typically quality.RequiredFieldRules() plus
// quality.FormatRules()).
func NewEntryRepository(backend storage.Backend, rules []quality.Rule) *EntryRepository {
	return &EntryRepository{backend: backend, rules: rules}
}

// SaveOptions controls EntryRepository.Save's validation behavior.
type SaveOptions struct {
	SkipValidation bool
}

// Find loads a single entry by key.
func (r *EntryRepository) Find(ctx context.Context, key string) (entry.Entry, bool, error) {
	data, ok, err := r.backend.Read(ctx, entryStorageKey(key))
	if err != nil {
		return entry.Entry{}, false, fmt.Errorf("repository: find %s: %w", key, err)
	}
	if !ok {
		return entry.Entry{}, false, nil
	}
	e, err := unmarshalEntry(data)
	if err != nil {
		return entry.Entry{}, false, fmt.Errorf("repository: decode %s: %w", key, err)
	}
	return e, true, nil
}

// FindAll loads every persisted entry.
func (r *EntryRepository) FindAll(ctx context.Context) ([]entry.Entry, error) {
	keys, err := r.backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: list keys: %w", err)
	}
	out := make([]entry.Entry, 0, len(keys))
	for _, k := range keys {
		if !isEntryKey(k) {
			continue
		}
		data, ok, err := r.backend.Read(ctx, k)
		if err != nil || !ok {
			continue
		}
		e, err := unmarshalEntry(data)
		if err != nil {
			continue // a corrupt record is skipped, not fatal to the whole load
		}
		out = append(out, e)
	}
	return out, nil
}

// Exists reports whether key has a persisted entry.
func (r *EntryRepository) Exists(ctx context.Context, key string) (bool, error) {
	return r.backend.Exists(ctx, entryStorageKey(key))
}

// Count returns the number of persisted entries.
func (r *EntryRepository) Count(ctx context.Context) (int, error) {
	keys, err := r.backend.Keys(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		if isEntryKey(k) {
			n++
		}
	}
	return n, nil
}

// Validate runs e against the repository's quality rules without writing
// anything, so callers can check a save's precondition ahead of a batch of
// writes. It is a no-op when opts.SkipValidation is set.
func (r *EntryRepository) Validate(e entry.Entry, opts SaveOptions) error {
	if opts.SkipValidation {
		return nil
	}
	for _, rule := range r.rules {
		res := rule.Evaluate(e)
		if res != nil && !res.Valid && res.Severity == entry.SeverityError {
			return fmt.Errorf("repository: save %s rejected: %s: %s", e.Key, res.Field, res.Message)
		}
	}
	return nil
}

// Save validates e (unless opts.SkipValidation) and persists it; a save is
// rejected if any rule produces an error-severity result.
func (r *EntryRepository) Save(ctx context.Context, e entry.Entry, opts SaveOptions) error {
	if err := r.Validate(e, opts); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("repository: encode %s: %w", e.Key, err)
	}
	if err := r.backend.Write(ctx, entryStorageKey(e.Key), data); err != nil {
		return fmt.Errorf("repository: write %s: %w", e.Key, err)
	}
	return nil
}

// Delete removes an entry by key, returning whether it existed.
func (r *EntryRepository) Delete(ctx context.Context, key string) (bool, error) {
	return r.backend.Delete(ctx, entryStorageKey(key))
}

func isEntryKey(storageKey string) bool {
	return len(storageKey) > len(entryKeyPrefix) && storageKey[:len(entryKeyPrefix)] == entryKeyPrefix
}

// legacyEntry captures older on-disk shapes this repository migrates on
// load: a year stored as a string, and keywords stored as one
// comma-separated string instead of a sequence.
type legacyEntry struct {
	Year     json.RawMessage `json:"year"`
	Keywords json.RawMessage `json:"keywords"`
}

func unmarshalEntry(data []byte) (entry.Entry, error) {
	var e entry.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry.Entry{}, err
	}

	var legacy legacyEntry
	if err := json.Unmarshal(data, &legacy); err == nil {
		if y, migrated := migrateYear(legacy.Year); migrated {
			e.Year = y
		}
		if kw, migrated := migrateKeywords(legacy.Keywords); migrated {
			e.Keywords = kw
		}
	}
	return e, nil
}

// migrateYear handles a year field persisted as a string (an older schema
// generation) by routing it through the same lenient parse entry.WithField
// uses for freshly parsed BibTeX.
func migrateYear(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false // already a number; current unmarshal handled it
	}
	return entry.ParseYear(s), true
}

// migrateKeywords handles keywords persisted as one comma-separated string.
func migrateKeywords(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false // already a sequence
	}
	return entry.SplitKeywords(s), true
}
