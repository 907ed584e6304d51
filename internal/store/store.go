// Package store dumps a cataloged index into SQLite for external tooling.
// The export is one-way: the library never reads it back, so the in-memory
// index stays the single source of truth within a process.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"loupe/internal/apimap"
)

// Store is the SQLite writer for index snapshots.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the export tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  version         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pins (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  full_path       TEXT NOT NULL,
  namespace       TEXT,
  scope           TEXT,
  visibility      TEXT,
  return_type     TEXT,
  docs            TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS refs (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  target_path     TEXT NOT NULL,
  target_kind     TEXT NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE INDEX IF NOT EXISTS idx_pins_file ON pins(file_id);
CREATE INDEX IF NOT EXISTS idx_pins_path ON pins(full_path);
CREATE INDEX IF NOT EXISTS idx_pins_kind ON pins(kind);
CREATE INDEX IF NOT EXISTS idx_refs_file ON refs(file_id);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target_path);
`

// Export writes the current state of api into the database, replacing any
// prior snapshot. Reference rows come from resolved chain links: every link
// with a non-empty candidate set yields one row per candidate identity.
func (s *Store) Export(api *apimap.ApiMap) error {
	api.Catalog()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{"DELETE FROM refs", "DELETE FROM pins", "DELETE FROM files"} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}

	pinStmt, err := tx.Prepare(
		`INSERT INTO pins (file_id, name, kind, full_path, namespace, scope,
		   visibility, return_type, docs, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare pin insert: %w", err)
	}
	defer pinStmt.Close()

	refStmt, err := tx.Prepare(
		`INSERT INTO refs (file_id, name, target_path, target_kind,
		   start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ref insert: %w", err)
	}
	defer refStmt.Close()

	for _, fname := range api.Filenames() {
		src := api.Source(fname)
		if src == nil {
			continue
		}
		res, err := tx.Exec("INSERT INTO files (path, version) VALUES (?, ?)", src.Filename, src.Version)
		if err != nil {
			return fmt.Errorf("insert file %s: %w", fname, err)
		}
		fileID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("file id for %s: %w", fname, err)
		}

		for _, p := range src.Pins {
			_, err := pinStmt.Exec(
				fileID, p.Name, p.Kind.String(), p.Path, p.Namespace, p.Scope.String(),
				p.Visibility.String(), p.ReturnType, p.Docs,
				p.Location.Range.Start.Line, p.Location.Range.Start.Col,
				p.Location.Range.End.Line, p.Location.Range.End.Col,
			)
			if err != nil {
				return fmt.Errorf("insert pin %s: %w", p.Path, err)
			}
		}

		for _, ch := range src.Chains {
			steps := ch.ResolveSteps(api)
			for i, link := range ch.Links {
				loc := link.Location()
				for _, target := range steps[i] {
					_, err := refStmt.Exec(
						fileID, link.Name(), target.Path, target.Kind.String(),
						loc.Range.Start.Line, loc.Range.Start.Col,
						loc.Range.End.Line, loc.Range.End.Col,
					)
					if err != nil {
						return fmt.Errorf("insert ref %s: %w", link.Name(), err)
					}
				}
			}
		}
	}

	return tx.Commit()
}
