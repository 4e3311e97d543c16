// Package sqlite implements state.Store on top of SQLite.
//
// Snapshots are stored as JSON objects, one row per state.Ref, and decoded
// back through the hydrate decoder. Every save rotates the ETag; a save
// carrying a stale ETag fails with state.ErrETagMismatch.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-reactable/internal/hydrate"
	"github.com/goliatone/go-reactable/pkg/state"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store persists snapshots of T in a SQLite database.
type Store[T any] struct {
	db      *sql.DB
	decoder *hydrate.Decoder[T]
	now     func() time.Time
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithDecoder replaces the snapshot decoder, for example to add hooks that
// migrate old payloads.
func WithDecoder[T any](decoder *hydrate.Decoder[T]) Option[T] {
	return func(s *Store[T]) {
		if decoder != nil {
			s.decoder = decoder
		}
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(s *Store[T]) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates or opens the database at path and applies the schema. Use
// ":memory:" for a private in-memory database.
//
// The connection uses WAL journaling, NORMAL synchronous mode and a five
// second busy timeout, with a single open connection.
func Open[T any](path string, opts ...Option[T]) (*Store[T], error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: connect: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	s := &Store[T]{
		db:      db,
		decoder: hydrate.NewDecoder[T](),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("sqlite: %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store[T]) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load implements state.Store.
func (s *Store[T]) Load(ctx context.Context, ref state.Ref) (T, state.Meta, bool, error) {
	var zero T
	id, err := ref.Identifier()
	if err != nil {
		return zero, state.Meta{}, false, err
	}

	var (
		payload, extra, updatedAt string
		meta                      state.Meta
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT snapshot_id, etag, payload, extra, updated_at FROM table_state WHERE ref = ?`, id)
	if err := row.Scan(&meta.SnapshotID, &meta.ETag, &payload, &extra, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, state.Meta{}, false, nil
		}
		return zero, state.Meta{}, false, fmt.Errorf("sqlite: load %q: %w", id, err)
	}

	snapshot, err := s.decoder.DecodeJSON(hydrate.Context{Source: "sqlite", Key: id}, []byte(payload))
	if err != nil {
		return zero, state.Meta{}, false, err
	}
	if err := json.Unmarshal([]byte(extra), &meta.Extra); err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("sqlite: decode meta for %q: %w", id, err)
	}
	if len(meta.Extra) == 0 {
		meta.Extra = nil
	}
	meta.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return zero, state.Meta{}, false, fmt.Errorf("sqlite: decode updated_at for %q: %w", id, err)
	}
	return snapshot, meta, true, nil
}

// Save implements state.Store.
func (s *Store[T]) Save(ctx context.Context, ref state.Ref, snapshot T, meta state.Meta) (state.Meta, error) {
	id, err := ref.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlite: encode snapshot %q: %w", id, err)
	}
	extra, err := json.Marshal(meta.Extra)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlite: encode meta %q: %w", id, err)
	}
	if meta.Extra == nil {
		extra = []byte("{}")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT etag FROM table_state WHERE ref = ?`, id).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return state.Meta{}, fmt.Errorf("sqlite: read etag %q: %w", id, err)
	case meta.ETag != "" && meta.ETag != current:
		return state.Meta{}, fmt.Errorf("%w: expected %q, got %q", state.ErrETagMismatch, meta.ETag, current)
	}

	saved := state.CloneMeta(meta)
	if saved.SnapshotID == "" {
		saved.SnapshotID = uuid.Must(uuid.NewV7()).String()
	}
	saved.ETag = uuid.NewString()
	saved.UpdatedAt = s.now().UTC()

	_, err = tx.ExecContext(ctx, `
INSERT INTO table_state (ref, domain, owner, table_key, snapshot_id, etag, payload, extra, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ref) DO UPDATE SET
    snapshot_id = excluded.snapshot_id,
    etag        = excluded.etag,
    payload     = excluded.payload,
    extra       = excluded.extra,
    updated_at  = excluded.updated_at`,
		id, ref.Domain, ref.Owner, ref.Key,
		saved.SnapshotID, saved.ETag, string(payload), string(extra),
		saved.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlite: save %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return state.Meta{}, fmt.Errorf("sqlite: commit %q: %w", id, err)
	}
	return saved, nil
}

// Delete removes the snapshot for ref. Missing snapshots are not an error.
func (s *Store[T]) Delete(ctx context.Context, ref state.Ref) error {
	id, err := ref.Identifier()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM table_state WHERE ref = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete %q: %w", id, err)
	}
	return nil
}

// Refs lists the stored refs of domain ordered by identifier.
func (s *Store[T]) Refs(ctx context.Context, domain string) ([]state.Ref, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, owner, table_key FROM table_state WHERE domain = ? ORDER BY ref`, domain)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list %q: %w", domain, err)
	}
	defer rows.Close()

	var refs []state.Ref
	for rows.Next() {
		var ref state.Ref
		if err := rows.Scan(&ref.Domain, &ref.Owner, &ref.Key); err != nil {
			return nil, fmt.Errorf("sqlite: scan %q: %w", domain, err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

var _ state.Store[map[string]any] = (*Store[map[string]any])(nil)
