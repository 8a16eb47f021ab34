// Package depgraph persists the file dependency edges discovered while
// resolving xrefs, together with per-file content fingerprints, so later
// builds can tell which pages a change affects.
package depgraph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Build is one recorded build.
type Build struct {
	ID      string
	Commit  string
	Started time.Time
	Files   int
	Edges   int
}

// Store keeps dependency edges and fingerprints in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the store at dbPath. Use ":memory:" for an
// in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A :memory: database exists per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		git_commit TEXT,
		started INTEGER NOT NULL,
		files INTEGER NOT NULL DEFAULT 0,
		edges INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		build_id TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS edges (
		from_file TEXT NOT NULL,
		to_file TEXT NOT NULL,
		build_id TEXT NOT NULL,
		PRIMARY KEY (from_file, to_file)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_file);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginBuild registers a build.
func (s *Store) BeginBuild(ctx context.Context, buildID, commit string, started time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (id, git_commit, started) VALUES (?, ?, ?)",
		buildID, commit, started.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// UpdateFingerprints stores the fingerprints of this build's files and
// returns, sorted, the files that are new or whose fingerprint changed.
// Files absent from fingerprints are forgotten.
func (s *Store) UpdateFingerprints(ctx context.Context, buildID string, fingerprints map[string]string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	previous, err := queryFingerprints(ctx, tx)
	if err != nil {
		return nil, err
	}

	var changed []string
	for path, fp := range fingerprints {
		if old, ok := previous[path]; !ok || old != fp {
			changed = append(changed, path)
		}
	}
	slices.Sort(changed)

	if _, err := tx.ExecContext(ctx, "DELETE FROM files"); err != nil {
		return nil, fmt.Errorf("clear fingerprints: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO files (path, fingerprint, build_id) VALUES (?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for path, fp := range fingerprints {
		if _, err := stmt.ExecContext(ctx, path, fp, buildID); err != nil {
			return nil, fmt.Errorf("insert fingerprint for %s: %w", path, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE builds SET files = ? WHERE id = ?", len(fingerprints), buildID); err != nil {
		return nil, fmt.Errorf("update build: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit fingerprints: %w", err)
	}
	return changed, nil
}

func queryFingerprints(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT path, fingerprint FROM files")
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, fp string
		if err := rows.Scan(&path, &fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		out[path] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// ReplaceEdges replaces the whole edge set with edges (from -> targets).
func (s *Store) ReplaceEdges(ctx context.Context, buildID string, edges map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM edges"); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO edges (from_file, to_file, build_id) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	count := 0
	for from, targets := range edges {
		for _, to := range targets {
			if from == to {
				continue
			}
			if _, err := stmt.ExecContext(ctx, from, to, buildID); err != nil {
				return fmt.Errorf("insert edge %s -> %s: %w", from, to, err)
			}
			count++
		}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE builds SET edges = ? WHERE id = ?", count, buildID); err != nil {
		return fmt.Errorf("update build: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit edges: %w", err)
	}
	return nil
}

// Dependencies returns the files file links to directly.
func (s *Store) Dependencies(ctx context.Context, file string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryStrings(ctx, "SELECT to_file FROM edges WHERE from_file = ? ORDER BY to_file", file)
}

// Dependents returns every file whose output depends on file, directly or
// through other files, sorted.
func (s *Store) Dependents(ctx context.Context, file string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryStrings(ctx, `
	WITH RECURSIVE dependents(path) AS (
		SELECT from_file FROM edges WHERE to_file = ?
		UNION
		SELECT e.from_file FROM edges e JOIN dependents d ON e.to_file = d.path
	)
	SELECT path FROM dependents WHERE path != ? ORDER BY path`, file, file)
}

// Affected returns changed plus every dependent of a changed file, sorted
// and deduplicated.
func (s *Store) Affected(ctx context.Context, changed []string) ([]string, error) {
	seen := make(map[string]struct{}, len(changed))
	for _, f := range changed {
		seen[f] = struct{}{}
		deps, err := s.Dependents(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			seen[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	slices.Sort(out)
	return out, nil
}

// LastBuild returns the most recent build, or nil when none is recorded.
func (s *Store) LastBuild(ctx context.Context) (*Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, COALESCE(git_commit, ''), started, files, edges FROM builds ORDER BY started DESC, rowid DESC LIMIT 1")
	var b Build
	var started int64
	if err := row.Scan(&b.ID, &b.Commit, &started, &b.Files, &b.Edges); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last build: %w", err)
	}
	b.Started = time.Unix(started, 0)
	return &b, nil
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
