// Package metastore persists the sidecar data a bibliographic entry
// accrues outside its bibliographic fields: per-entry metadata (tags,
// rating, read status) and free-text notes. It lays files out as
// metadata/<key>.json and notes/<key>/<uuid>.json, atomically, and keeps an
// in-memory tag index rebuilt at startup for fast tag queries.
package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jschaf/bibmgr/entry"
)

// Store persists entry.EntryMetadata and entry.Note under a root directory.
type Store struct {
	root        string
	metadataDir string
	notesDir    string

	mu       sync.RWMutex               // guards tagIndex
	tagIndex map[string]map[string]bool // tag -> set of entry keys
}

// New builds a Store rooted at root. Call Initialize before use.
func New(root string) *Store {
	return &Store{
		root:        root,
		metadataDir: filepath.Join(root, "metadata"),
		notesDir:    filepath.Join(root, "notes"),
		tagIndex:    make(map[string]map[string]bool),
	}
}

// Initialize creates the directory layout and rebuilds the tag index from
// whatever metadata already exists on disk.
func (s *Store) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.metadataDir, 0o755); err != nil {
		return fmt.Errorf("metastore: init metadata dir: %w", err)
	}
	if err := os.MkdirAll(s.notesDir, 0o755); err != nil {
		return fmt.Errorf("metastore: init notes dir: %w", err)
	}
	return s.rebuildTagIndex()
}

func (s *Store) rebuildTagIndex() error {
	entries, err := os.ReadDir(s.metadataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("metastore: rebuild tag index: %w", err)
	}
	index := make(map[string]map[string]bool)
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.metadataDir, de.Name()))
		if err != nil {
			continue
		}
		var m entry.EntryMetadata
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		addToIndex(index, m.EntryKey, m.Tags)
	}
	s.mu.Lock()
	s.tagIndex = index
	s.mu.Unlock()
	return nil
}

func addToIndex(index map[string]map[string]bool, entryKey string, tags []string) {
	for _, t := range tags {
		if index[t] == nil {
			index[t] = make(map[string]bool)
		}
		index[t][entryKey] = true
	}
}

func (s *Store) metadataPath(entryKey string) string {
	return filepath.Join(s.metadataDir, sanitizeComponent(entryKey)+".json")
}

// GetMetadata returns the persisted metadata for entryKey, or a fresh
// default value if none has been saved yet. The default is never written
// until the caller calls Save.
func (s *Store) GetMetadata(ctx context.Context, entryKey string) (entry.EntryMetadata, error) {
	data, err := os.ReadFile(s.metadataPath(entryKey))
	if errors.Is(err, os.ErrNotExist) {
		return entry.DefaultMetadata(entryKey), nil
	}
	if err != nil {
		return entry.EntryMetadata{}, fmt.Errorf("metastore: read metadata %s: %w", entryKey, err)
	}
	var m entry.EntryMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return entry.EntryMetadata{}, fmt.Errorf("metastore: decode metadata %s: %w", entryKey, err)
	}
	return m, nil
}

// SaveMetadata persists m and diff-updates the tag index.
func (s *Store) SaveMetadata(ctx context.Context, m entry.EntryMetadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("metastore: encode metadata %s: %w", m.EntryKey, err)
	}
	if err := atomicWrite(s.metadataPath(m.EntryKey), data); err != nil {
		return fmt.Errorf("metastore: write metadata %s: %w", m.EntryKey, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for tag, keys := range s.tagIndex {
		delete(keys, m.EntryKey)
		if len(keys) == 0 {
			delete(s.tagIndex, tag)
		}
	}
	for _, t := range m.Tags {
		if s.tagIndex[t] == nil {
			s.tagIndex[t] = make(map[string]bool)
		}
		s.tagIndex[t][m.EntryKey] = true
	}
	return nil
}

// Delete removes an entry's metadata and every note attached to it. It is
// not an error for either to already be absent.
func (s *Store) Delete(ctx context.Context, entryKey string) error {
	if err := os.Remove(s.metadataPath(entryKey)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("metastore: delete metadata %s: %w", entryKey, err)
	}
	s.mu.Lock()
	for tag, keys := range s.tagIndex {
		delete(keys, entryKey)
		if len(keys) == 0 {
			delete(s.tagIndex, tag)
		}
	}
	s.mu.Unlock()

	dir := filepath.Join(s.notesDir, sanitizeComponent(entryKey))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("metastore: delete notes for %s: %w", entryKey, err)
	}
	return nil
}

// FindByTag returns every entry key tagged with tag.
func (s *Store) FindByTag(tag string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.tagIndex[tag]
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FindByTags returns entry keys tagged with every tag in tags (intersection)
// or with any tag in tags (union), per the union flag.
func (s *Store) FindByTags(tags []string, union bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(tags) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, t := range tags {
		for k := range s.tagIndex[t] {
			counts[k]++
		}
	}
	out := make([]string, 0, len(counts))
	for k, c := range counts {
		if union || c == len(tags) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// GetAllTags reports every tag currently in use and how many entries carry
// it.
func (s *Store) GetAllTags() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.tagIndex))
	for t, keys := range s.tagIndex {
		out[t] = len(keys)
	}
	return out
}

// RenameTag renames from to to across every entry currently tagged from,
// rewriting each entry's persisted metadata.
func (s *Store) RenameTag(ctx context.Context, from, to string) error {
	for _, key := range s.FindByTag(from) {
		m, err := s.GetMetadata(ctx, key)
		if err != nil {
			return err
		}
		m = m.WithoutTag(from).WithTag(to)
		if err := s.SaveMetadata(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// MergeTags folds every tag in from into to, across every entry tagged with
// any of from.
func (s *Store) MergeTags(ctx context.Context, from []string, to string) error {
	for _, f := range from {
		if err := s.RenameTag(ctx, f, to); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) notePath(entryKey, noteID string) string {
	return filepath.Join(s.notesDir, sanitizeComponent(entryKey), noteID+".json")
}

// AddNote creates a new note for entryKey, assigning it a fresh UUID, and
// bumps the entry's persisted NotesCount.
func (s *Store) AddNote(ctx context.Context, n entry.Note, now time.Time) (entry.Note, error) {
	n.ID = uuid.NewString()
	n.CreatedAt = now
	n.ModifiedAt = now
	if err := s.writeNote(n); err != nil {
		return entry.Note{}, err
	}
	m, err := s.GetMetadata(ctx, n.EntryKey)
	if err != nil {
		return entry.Note{}, err
	}
	m.NotesCount++
	if err := s.SaveMetadata(ctx, m); err != nil {
		return entry.Note{}, err
	}
	return n, nil
}

func (s *Store) writeNote(n entry.Note) error {
	dir := filepath.Join(s.notesDir, sanitizeComponent(n.EntryKey))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metastore: mkdir notes for %s: %w", n.EntryKey, err)
	}
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("metastore: encode note %s: %w", n.ID, err)
	}
	if err := atomicWrite(s.notePath(n.EntryKey, n.ID), data); err != nil {
		return fmt.Errorf("metastore: write note %s: %w", n.ID, err)
	}
	return nil
}

// GetNote loads a single note by (entryKey, noteID).
func (s *Store) GetNote(ctx context.Context, entryKey, noteID string) (entry.Note, bool, error) {
	data, err := os.ReadFile(s.notePath(entryKey, noteID))
	if errors.Is(err, os.ErrNotExist) {
		return entry.Note{}, false, nil
	}
	if err != nil {
		return entry.Note{}, false, fmt.Errorf("metastore: read note %s: %w", noteID, err)
	}
	var n entry.Note
	if err := json.Unmarshal(data, &n); err != nil {
		return entry.Note{}, false, fmt.Errorf("metastore: decode note %s: %w", noteID, err)
	}
	return n, true, nil
}

// FindNotes lists every note attached to entryKey.
func (s *Store) FindNotes(ctx context.Context, entryKey string) ([]entry.Note, error) {
	dir := filepath.Join(s.notesDir, sanitizeComponent(entryKey))
	des, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metastore: list notes for %s: %w", entryKey, err)
	}
	out := make([]entry.Note, 0, len(des))
	for _, de := range des {
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			continue
		}
		var n entry.Note
		if err := json.Unmarshal(data, &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateNote saves changed content on an existing note and bumps ModifiedAt.
func (s *Store) UpdateNote(ctx context.Context, n entry.Note, now time.Time) error {
	n.ModifiedAt = now
	return s.writeNote(n)
}

// DeleteNote removes a note and decrements its entry's NotesCount.
func (s *Store) DeleteNote(ctx context.Context, entryKey, noteID string) error {
	err := os.Remove(s.notePath(entryKey, noteID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("metastore: delete note %s: %w", noteID, err)
	}
	m, err := s.GetMetadata(ctx, entryKey)
	if err != nil {
		return err
	}
	if m.NotesCount > 0 {
		m.NotesCount--
	}
	return s.SaveMetadata(ctx, m)
}

func sanitizeComponent(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// atomicWrite writes data to a temp file in path's directory, fsyncs, then
// renames over path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
