package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jschaf/bibmgr/entry"
	"github.com/jschaf/bibmgr/storage"
)

// collectionKeyPrefix namespaces collection records so they share a Backend
// with entries without key collisions.
const collectionKeyPrefix = "collection:"

func collectionStorageKey(id string) string { return collectionKeyPrefix + id }

func isCollectionKey(storageKey string) bool {
	return len(storageKey) > len(collectionKeyPrefix) && storageKey[:len(collectionKeyPrefix)] == collectionKeyPrefix
}

// CollectionRepository persists entry.Collection values on a storage.Backend.
type CollectionRepository struct {
	backend storage.Backend
}

// NewCollectionRepository builds a repository over backend.
func NewCollectionRepository(backend storage.Backend) *CollectionRepository {
	return &CollectionRepository{backend: backend}
}

// Find loads a single collection by id.
func (r *CollectionRepository) Find(ctx context.Context, id string) (entry.Collection, bool, error) {
	data, ok, err := r.backend.Read(ctx, collectionStorageKey(id))
	if err != nil {
		return entry.Collection{}, false, fmt.Errorf("repository: find collection %s: %w", id, err)
	}
	if !ok {
		return entry.Collection{}, false, nil
	}
	var c entry.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return entry.Collection{}, false, fmt.Errorf("repository: decode collection %s: %w", id, err)
	}
	return c, true, nil
}

// FindAll loads every persisted collection.
func (r *CollectionRepository) FindAll(ctx context.Context) ([]entry.Collection, error) {
	keys, err := r.backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: list keys: %w", err)
	}
	out := make([]entry.Collection, 0, len(keys))
	for _, k := range keys {
		if !isCollectionKey(k) {
			continue
		}
		data, ok, err := r.backend.Read(ctx, k)
		if err != nil || !ok {
			continue
		}
		var c entry.Collection
		if err := json.Unmarshal(data, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// FindByParent returns every collection whose ParentID equals parentID (use
// "" for root-level collections).
func (r *CollectionRepository) FindByParent(ctx context.Context, parentID string) ([]entry.Collection, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entry.Collection, 0)
	for _, c := range all {
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

// FindSmart returns every smart (query-backed) collection.
func (r *CollectionRepository) FindSmart(ctx context.Context) ([]entry.Collection, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entry.Collection, 0)
	for _, c := range all {
		if c.IsSmart() {
			out = append(out, c)
		}
	}
	return out, nil
}

// Save rejects c if it has both members and a query, and persists it otherwise.
func (r *CollectionRepository) Save(ctx context.Context, c entry.Collection) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("repository: save collection %s rejected: %w", c.ID, err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("repository: encode collection %s: %w", c.ID, err)
	}
	if err := r.backend.Write(ctx, collectionStorageKey(c.ID), data); err != nil {
		return fmt.Errorf("repository: write collection %s: %w", c.ID, err)
	}
	return nil
}

// Delete removes a collection by id, returning whether it existed. It never
// touches the entries the collection lists.
func (r *CollectionRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.backend.Delete(ctx, collectionStorageKey(id))
}
