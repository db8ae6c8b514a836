/*
Package sqlite provides a SQLite-backed implementation of the section store.

PURPOSE:
  Implements generic.SectionStore and generic.TxStore on SQLite. Each
  ledger section is one row holding its JSON document and a version
  counter.

KEY TABLES:
  sections: name (PK), value_json, version, deleted, updated_at

VERSIONING:
  Every write bumps version by one inside the same statement, so the
  compare-and-swap in PutSectionIfVersion is a single conditional UPDATE
  (or INSERT ... ON CONFLICT for version 0).
  Deletes only mark the row. The version keeps counting through a delete
  and re-create, so a stale version never matches unrelated data.

CONCURRENCY:
  Uses sync.RWMutex so a WithTx block sees no interleaved writes from
  the same process. The pool is limited to one connection, which also
  keeps ":memory:" databases shared between statements.

MIGRATION:
  Schema lives in migrations/*.sql, embedded and applied with
  golang-migrate on New().

USAGE:
  store, err := sqlite.New("./data/payday.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payday-engine/generic"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements generic.TxStore using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies the embedded migrations. The migrate instance is not
// closed because that would close the shared *sql.DB.
func (s *Store) migrate() error {
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// SECTION STORE (generic.SectionStore interface)
// =============================================================================

func (s *Store) GetSection(ctx context.Context, name generic.SectionName) (generic.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSection(ctx, s.db, name)
}

func (s *Store) PutSection(ctx context.Context, name generic.SectionName, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putSection(ctx, s.db, name, value)
}

func (s *Store) AppendToSection(ctx context.Context, name generic.SectionName, item json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error {
		return s.appendToSection(ctx, q, name, item)
	})
}

func (s *Store) PutSectionIfVersion(ctx context.Context, name generic.SectionName, value json.RawMessage, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.casSection(ctx, s.db, name, value, version)
}

func (s *Store) DeleteSection(ctx context.Context, name generic.SectionName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteSection(ctx, s.db, name)
}

func (s *Store) ListSections(ctx context.Context) ([]generic.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSections(ctx, s.db)
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `
		UPDATE sections SET value_json = 'null', deleted = 1, version = version + 1, updated_at = ?
		WHERE deleted = 0`, s.timestamp(),
	); err != nil {
		return fmt.Errorf("failed to reset sections: %w", err)
	}
	return nil
}

func getSection(ctx context.Context, q querier, name generic.SectionName) (generic.Section, error) {
	var (
		value   string
		version int64
		updated string
	)
	err := q.QueryRowContext(ctx,
		`SELECT value_json, version, updated_at FROM sections WHERE name = ? AND deleted = 0`, string(name),
	).Scan(&value, &version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Section{Name: name}, nil
	}
	if err != nil {
		return generic.Section{}, fmt.Errorf("failed to get section %s: %w", name, err)
	}
	updatedAt, _ := time.Parse(time.RFC3339Nano, updated)
	return generic.Section{
		Name:      name,
		Value:     json.RawMessage(value),
		Version:   version,
		UpdatedAt: updatedAt,
	}, nil
}

func (s *Store) putSection(ctx context.Context, q querier, name generic.SectionName, value json.RawMessage) error {
	if !json.Valid(value) {
		return generic.Invalid("value", "section value is not valid JSON")
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO sections (name, value_json, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(name) DO UPDATE SET
			value_json = excluded.value_json,
			version = sections.version + 1,
			deleted = 0,
			updated_at = excluded.updated_at`,
		string(name), string(value), s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("failed to put section %s: %w", name, err)
	}
	return nil
}

func (s *Store) appendToSection(ctx context.Context, q querier, name generic.SectionName, item json.RawMessage) error {
	cur, err := getSection(ctx, q, name)
	if err != nil {
		return err
	}
	next, err := generic.AppendRaw(cur.Value, item)
	if err != nil {
		return err
	}
	return s.putSection(ctx, q, name, next)
}

func (s *Store) casSection(ctx context.Context, q querier, name generic.SectionName, value json.RawMessage, version int64) error {
	if !json.Valid(value) {
		return generic.Invalid("value", "section value is not valid JSON")
	}
	var (
		res sql.Result
		err error
	)
	if version == 0 {
		res, err = q.ExecContext(ctx, `
			INSERT INTO sections (name, value_json, version, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(name) DO UPDATE SET
				value_json = excluded.value_json,
				version = sections.version + 1,
				deleted = 0,
				updated_at = excluded.updated_at
			WHERE sections.deleted = 1`,
			string(name), string(value), s.timestamp(),
		)
	} else {
		res, err = q.ExecContext(ctx, `
			UPDATE sections SET value_json = ?, version = version + 1, updated_at = ?
			WHERE name = ? AND version = ? AND deleted = 0`,
			string(value), s.timestamp(), string(name), version,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to put section %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to put section %s: %w", name, err)
	}
	if n == 0 {
		return generic.ErrConcurrentModification
	}
	return nil
}

func (s *Store) deleteSection(ctx context.Context, q querier, name generic.SectionName) error {
	if _, err := q.ExecContext(ctx, `
		UPDATE sections SET value_json = 'null', deleted = 1, version = version + 1, updated_at = ?
		WHERE name = ? AND deleted = 0`,
		s.timestamp(), string(name),
	); err != nil {
		return fmt.Errorf("failed to delete section %s: %w", name, err)
	}
	return nil
}

func listSections(ctx context.Context, q querier) ([]generic.Section, error) {
	rows, err := q.QueryContext(ctx, `SELECT name, value_json, version, updated_at FROM sections WHERE deleted = 0 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	var out []generic.Section
	for rows.Next() {
		var name, value, updated string
		var version int64
		if err := rows.Scan(&name, &value, &version, &updated); err != nil {
			return nil, err
		}
		updatedAt, _ := time.Parse(time.RFC3339Nano, updated)
		out = append(out, generic.Section{
			Name:      generic.SectionName(name),
			Value:     json.RawMessage(value),
			Version:   version,
			UpdatedAt: updatedAt,
		})
	}
	return out, rows.Err()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// inTx runs fn in a fresh SQL transaction. Callers hold s.mu.
func (s *Store) inTx(ctx context.Context, fn func(querier) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.SectionStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(q querier) error {
		return fn(&txStore{q: q, parent: s})
	})
}

type txStore struct {
	q      querier
	parent *Store
}

func (ts *txStore) GetSection(ctx context.Context, name generic.SectionName) (generic.Section, error) {
	return getSection(ctx, ts.q, name)
}

func (ts *txStore) PutSection(ctx context.Context, name generic.SectionName, value json.RawMessage) error {
	return ts.parent.putSection(ctx, ts.q, name, value)
}

func (ts *txStore) AppendToSection(ctx context.Context, name generic.SectionName, item json.RawMessage) error {
	return ts.parent.appendToSection(ctx, ts.q, name, item)
}

func (ts *txStore) PutSectionIfVersion(ctx context.Context, name generic.SectionName, value json.RawMessage, version int64) error {
	return ts.parent.casSection(ctx, ts.q, name, value, version)
}

func (ts *txStore) DeleteSection(ctx context.Context, name generic.SectionName) error {
	return ts.parent.deleteSection(ctx, ts.q, name)
}

func (ts *txStore) ListSections(ctx context.Context) ([]generic.Section, error) {
	return listSections(ctx, ts.q)
}
