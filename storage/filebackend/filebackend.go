// Package filebackend implements storage.Backend as one JSON file per
// entry, with an index file mapping logical keys to filenames, atomic
// temp-file-plus-rename writes, and gofrs/flock-based locking.
package filebackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/gofrs/flock"

	"github.com/jschaf/bibmgr/storage"
)

// Backend is a file-per-entry storage.Backend rooted at a directory.
type Backend struct {
	root      string
	entryDir  string
	indexPath string

	indexMu sync.RWMutex       // all index mutation goes through this lock
	index   map[string]string // logical key -> filename

	txMu sync.Mutex
	inTx bool
}

var _ storage.Backend = (*Backend)(nil)

// New builds a Backend rooted at root. Call Initialize before use.
func New(root string) *Backend {
	return &Backend{
		root:      root,
		entryDir:  filepath.Join(root, "entries"),
		indexPath: filepath.Join(root, "index.json"),
		index:     make(map[string]string),
	}
}

func (b *Backend) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(b.entryDir, 0o755); err != nil {
		return fmt.Errorf("filebackend: init entries dir: %w", err)
	}
	return b.loadIndex()
}

func (b *Backend) loadIndex() error {
	b.indexMu.Lock()
	defer b.indexMu.Unlock()
	data, err := os.ReadFile(b.indexPath)
	if errors.Is(err, os.ErrNotExist) {
		b.index = make(map[string]string)
		return nil
	}
	if err != nil {
		return fmt.Errorf("filebackend: read index: %w", err)
	}
	idx := make(map[string]string)
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("filebackend: parse index: %w", err)
	}
	b.index = idx
	return nil
}

// saveIndexLocked writes the index atomically; caller must hold indexMu.
func (b *Backend) saveIndexLocked() error {
	data, err := json.MarshalIndent(b.index, "", "  ")
	if err != nil {
		return fmt.Errorf("filebackend: marshal index: %w", err)
	}
	return atomicWrite(b.indexPath, data)
}

var unsafeFileChar = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// sanitizeKey maps a logical key to a filesystem-safe filename stem.
func sanitizeKey(key string) string {
	return unsafeFileChar.ReplaceAllString(key, "_")
}

func (b *Backend) filenameFor(key string) string {
	b.indexMu.RLock()
	name, ok := b.index[key]
	b.indexMu.RUnlock()
	if ok {
		return name
	}
	return sanitizeKey(key) + ".json"
}

func (b *Backend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	name := b.filenameFor(key)
	path := filepath.Join(b.entryDir, name)
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err == nil {
		defer lock.Unlock()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		// Corruption handling: a read failure yields null for that key,
		// not an error, so a single bad file doesn't break the caller.
		return nil, false, nil
	}
	return data, true, nil
}

func (b *Backend) Write(ctx context.Context, key string, data []byte) error {
	name := sanitizeKey(key) + ".json"
	path := filepath.Join(b.entryDir, name)
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err == nil {
		defer lock.Unlock()
	}
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("filebackend: write %s: %w", key, err)
	}

	b.indexMu.Lock()
	b.index[key] = name
	err := b.saveIndexLocked()
	b.indexMu.Unlock()
	if err != nil {
		return fmt.Errorf("filebackend: update index for %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	name := b.filenameFor(key)
	path := filepath.Join(b.entryDir, name)
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err == nil {
		defer lock.Unlock()
	}
	err := os.Remove(path)
	existed := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("filebackend: delete %s: %w", key, err)
	}

	b.indexMu.Lock()
	if _, ok := b.index[key]; ok {
		existed = true
		delete(b.index, key)
		err = b.saveIndexLocked()
	}
	b.indexMu.Unlock()
	if err != nil {
		return existed, fmt.Errorf("filebackend: update index after delete %s: %w", key, err)
	}
	return existed, nil
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	name := b.filenameFor(key)
	path := filepath.Join(b.entryDir, name)
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, nil
}

// Keys lists every logical key with a readable backing file; a file that
// fails to read is skipped rather than failing the whole listing.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	b.indexMu.RLock()
	defer b.indexMu.RUnlock()
	keys := make([]string, 0, len(b.index))
	for k, name := range b.index {
		if _, err := os.Stat(filepath.Join(b.entryDir, name)); err == nil {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *Backend) Clear(ctx context.Context) error {
	b.indexMu.Lock()
	defer b.indexMu.Unlock()
	for _, name := range b.index {
		_ = os.Remove(filepath.Join(b.entryDir, name))
	}
	b.index = make(map[string]string)
	return b.saveIndexLocked()
}

func (b *Backend) Close() error { return nil }

func (b *Backend) SupportsTransactions() bool { return false }

// BeginTransaction runs fn directly: the file backend guarantees atomic
// per-file writes but not cross-file atomicity, so there is no rollback
// to perform here beyond what each individual Write already provides.
func (b *Backend) BeginTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	b.txMu.Lock()
	if b.inTx {
		b.txMu.Unlock()
		return fn(ctx)
	}
	b.inTx = true
	b.txMu.Unlock()
	defer func() {
		b.txMu.Lock()
		b.inTx = false
		b.txMu.Unlock()
	}()
	return fn(ctx)
}

// Backup copies the entries directory and index to dstDir.
func (b *Backend) Backup(dstDir string) error {
	if err := os.MkdirAll(filepath.Join(dstDir, "entries"), 0o755); err != nil {
		return fmt.Errorf("filebackend: backup mkdir: %w", err)
	}
	b.indexMu.RLock()
	defer b.indexMu.RUnlock()
	for _, name := range b.index {
		src := filepath.Join(b.entryDir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		if err := atomicWrite(filepath.Join(dstDir, "entries", name), data); err != nil {
			return fmt.Errorf("filebackend: backup %s: %w", name, err)
		}
	}
	data, err := json.MarshalIndent(b.index, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(dstDir, "index.json"), data)
}

// Restore replaces the data tree from srcDir and reloads the index.
func (b *Backend) Restore(srcDir string) error {
	if err := os.RemoveAll(b.entryDir); err != nil {
		return fmt.Errorf("filebackend: restore clear entries: %w", err)
	}
	if err := copyDir(filepath.Join(srcDir, "entries"), b.entryDir); err != nil {
		return fmt.Errorf("filebackend: restore copy entries: %w", err)
	}
	data, err := os.ReadFile(filepath.Join(srcDir, "index.json"))
	if err != nil {
		return fmt.Errorf("filebackend: restore read index: %w", err)
	}
	if err := atomicWrite(b.indexPath, data); err != nil {
		return fmt.Errorf("filebackend: restore write index: %w", err)
	}
	return b.loadIndex()
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		if err != nil {
			continue
		}
		if err := atomicWrite(filepath.Join(dst, e.Name()), data); err != nil {
			return err
		}
	}
	return nil
}

// atomicWrite writes data to a temp file in the same directory as path,
// fsyncs it, then renames it over path, so a reader never observes a
// partially written file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
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
