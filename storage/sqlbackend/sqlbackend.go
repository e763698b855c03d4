// Package sqlbackend implements storage.Backend over an embedded SQLite
// database (via ncruces/go-sqlite3, a cgo-free driver) with an FTS5 virtual
// table kept in sync by triggers, and WAL mode for concurrent readers.
package sqlbackend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/jschaf/bibmgr/storage"
)

// migration is one named, idempotent step in the schema's history. Steps
// apply in slice order and are recorded in schema_migrations so a later
// Migrate call on an already-initialized database only runs what's new.
type migration struct {
	name string
	sql  string
}

// migrations lists the schema's history in order: base tables, then the FTS
// index and its sync triggers, then the secondary indexes. Splitting it this
// way mirrors how steveyegge-beads' sqlite migrations package grows a schema
// incrementally instead of editing one monolithic DDL block in place.
var migrations = []migration{
	{
		name: "0001_base_schema",
		sql: `
CREATE TABLE IF NOT EXISTS entries (
	key           TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	data_json     TEXT NOT NULL,
	title         TEXT,
	author_text   TEXT,
	abstract      TEXT,
	keywords_text TEXT,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);`,
	},
	{
		name: "0002_fts_index",
		sql: `
CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
	key, title, author, abstract, keywords, content=''
);

CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
	INSERT INTO entries_fts(rowid, key, title, author, abstract, keywords)
	VALUES (new.rowid, new.key, new.title, new.author_text, new.abstract, new.keywords_text);
END;
CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
	INSERT INTO entries_fts(entries_fts, rowid, key, title, author, abstract, keywords)
	VALUES ('delete', old.rowid, old.key, old.title, old.author_text, old.abstract, old.keywords_text);
END;
CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE ON entries BEGIN
	INSERT INTO entries_fts(entries_fts, rowid, key, title, author, abstract, keywords)
	VALUES ('delete', old.rowid, old.key, old.title, old.author_text, old.abstract, old.keywords_text);
	INSERT INTO entries_fts(rowid, key, title, author, abstract, keywords)
	VALUES (new.rowid, new.key, new.title, new.author_text, new.abstract, new.keywords_text);
END;`,
	},
	{
		name: "0003_indexes",
		sql: `
CREATE INDEX IF NOT EXISTS idx_entries_type ON entries(type);
CREATE INDEX IF NOT EXISTS idx_entries_updated_at ON entries(updated_at);`,
	},
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name        TEXT PRIMARY KEY,
	applied_at  TEXT NOT NULL
);`

// Backend is a single-writer, WAL-mode SQLite storage.Backend.
type Backend struct {
	db *sql.DB
	mu sync.Mutex // serializes writes onto the single-writer connection

	txMu sync.Mutex
	tx   *sql.Tx
}

var _ storage.Backend = (*Backend)(nil)

// Open opens (creating if needed) a SQLite database at path in WAL mode.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: open: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer connection per the spec
	return &Backend{db: db}, nil
}

func (b *Backend) Initialize(ctx context.Context) error {
	return b.Migrate(ctx)
}

// Migrate applies every migration not yet recorded in schema_migrations, in
// order. It is safe to call on an already-migrated database; already-applied
// steps are skipped.
func (b *Backend) Migrate(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("sqlbackend: init schema_migrations: %w", err)
	}
	applied := make(map[string]bool)
	rows, err := b.db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("sqlbackend: read schema_migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("sqlbackend: scan schema_migrations: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("sqlbackend: iterate schema_migrations: %w", err)
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		if _, err := b.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("sqlbackend: migration %s: %w", m.name, err)
		}
		if _, err := b.db.ExecContext(ctx, `INSERT INTO schema_migrations (name, applied_at) VALUES (?, datetime('now'))`, m.name); err != nil {
			return fmt.Errorf("sqlbackend: record migration %s: %w", m.name, err)
		}
	}
	return nil
}

// Vacuum reclaims space freed by deleted rows and defragments the database
// file. It runs outside any open transaction; SQLite's VACUUM statement
// cannot execute inside one.
func (b *Backend) Vacuum(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("sqlbackend: vacuum: %w", err)
	}
	return nil
}

func (b *Backend) conn(ctx context.Context) querier {
	if b.tx != nil {
		return b.tx
	}
	return b.db
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (b *Backend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	row := b.conn(ctx).QueryRowContext(ctx, `SELECT data_json FROM entries WHERE key = ?`, key)
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, nil // corrupted/unreadable row -> null, per spec
	}
	return []byte(data), true, nil
}

// entryMeta is the subset of a marshaled entry this backend needs to
// populate its columns and the FTS index; it mirrors entry.Entry's JSON
// shape without importing the entry package, keeping this backend decoupled
// from the domain model per the Backend interface's opaque-blob contract.
type entryMeta struct {
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Author     []person `json:"author"`
	Abstract   string   `json:"abstract"`
	Keywords   []string `json:"keywords"`
	CreatedAt  string   `json:"createdAt"`
	ModifiedAt string   `json:"modifiedAt"`
}

type person struct {
	Given  string `json:"given"`
	Von    string `json:"von"`
	Family string `json:"family"`
	Suffix string `json:"suffix"`
}

func authorText(ps []person) string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		name := p.Family
		if p.Given != "" {
			name = p.Given + " " + name
		}
		names = append(names, name)
	}
	return strings.Join(names, "; ")
}

func (b *Backend) Write(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var meta entryMeta
	_ = json.Unmarshal(data, &meta) // best-effort; falls back to zero values

	_, err := b.conn(ctx).ExecContext(ctx, `
		INSERT INTO entries (key, type, data_json, title, author_text, abstract, keywords_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			type = excluded.type,
			data_json = excluded.data_json,
			title = excluded.title,
			author_text = excluded.author_text,
			abstract = excluded.abstract,
			keywords_text = excluded.keywords_text,
			updated_at = excluded.updated_at
	`, key, meta.Type, string(data), meta.Title, authorText(meta.Author), meta.Abstract,
		strings.Join(meta.Keywords, " "), meta.CreatedAt, meta.ModifiedAt)
	if err != nil {
		return fmt.Errorf("sqlbackend: write %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	res, err := b.conn(ctx).ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("sqlbackend: delete %s: %w", key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	row := b.conn(ctx).QueryRowContext(ctx, `SELECT 1 FROM entries WHERE key = ?`, key)
	var x int
	if err := row.Scan(&x); err != nil {
		return false, nil
	}
	return true, nil
}

func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.conn(ctx).QueryContext(ctx, `SELECT key FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: keys: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (b *Backend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.conn(ctx).ExecContext(ctx, `DELETE FROM entries`)
	return err
}

func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) SupportsTransactions() bool { return true }

// BeginTransaction opens a real SQL transaction; a nested call (while one is
// already open) is a no-op that just runs fn against the existing
// transaction.
func (b *Backend) BeginTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	b.txMu.Lock()
	if b.tx != nil {
		b.txMu.Unlock()
		return fn(ctx)
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		b.txMu.Unlock()
		return fmt.Errorf("sqlbackend: begin transaction: %w", err)
	}
	b.tx = tx
	b.txMu.Unlock()

	err = fn(ctx)

	b.txMu.Lock()
	b.tx = nil
	b.txMu.Unlock()

	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlbackend: rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlbackend: commit: %w", err)
	}
	return nil
}

// Search runs an FTS5 query over title/author/abstract/keywords, returning
// matching keys ordered by rank. entries_fts is contentless and returns NULL
// for its columns, so keys are read from entries by rowid.
func (b *Backend) Search(ctx context.Context, query string) ([]string, error) {
	rows, err := b.conn(ctx).QueryContext(ctx, `
		SELECT e.key FROM entries_fts JOIN entries e ON e.rowid = entries_fts.rowid
		WHERE entries_fts MATCH ? ORDER BY entries_fts.rank
	`, query)
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: search: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Filter is a structured exact-match query over type/year/author; author
// matches as a LIKE-contains substring.
type Filter struct {
	Type   string
	Year   int
	Author string
}

// Query runs a structured filter over the entries table.
func (b *Backend) Query(ctx context.Context, f Filter) ([]string, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Year != 0 {
		where = append(where, "json_extract(data_json, '$.year') = ?")
		args = append(args, f.Year)
	}
	if f.Author != "" {
		where = append(where, "author_text LIKE ?")
		args = append(args, "%"+f.Author+"%")
	}
	q := "SELECT key FROM entries WHERE " + joinAnd(where)
	rows, err := b.conn(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlbackend: query: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

// GetStatistics returns entry counts grouped by type and by year.
func (b *Backend) GetStatistics(ctx context.Context) (storage.Stats, error) {
	stats := storage.Stats{CountByType: make(map[string]int), CountByYear: make(map[int]int)}
	rows, err := b.conn(ctx).QueryContext(ctx, `SELECT type, COUNT(*) FROM entries GROUP BY type`)
	if err != nil {
		return stats, fmt.Errorf("sqlbackend: stats by type: %w", err)
	}
	for rows.Next() {
		var t string
		var c int
		if rows.Scan(&t, &c) == nil {
			stats.CountByType[t] = c
		}
	}
	rows.Close()

	rows, err = b.conn(ctx).QueryContext(ctx, `
		SELECT CAST(json_extract(data_json, '$.year') AS INTEGER) AS y, COUNT(*)
		FROM entries WHERE y IS NOT NULL GROUP BY y
	`)
	if err != nil {
		return stats, fmt.Errorf("sqlbackend: stats by year: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var y, c int
		if rows.Scan(&y, &c) == nil {
			stats.CountByYear[y] = c
		}
	}
	return stats, rows.Err()
}
