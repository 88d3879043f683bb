package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/database"
)

// Kind names a document type. It is the first half of the primary key.
type Kind string

// Persisted kinds.
const (
	KindAction Kind = "action"
	KindScene  Kind = "scene"
	KindDevice Kind = "device"
)

// Document is a raw stored row.
type Document struct {
	Kind      Kind
	ID        string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store reads and writes raw documents. Safe for concurrent use.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// New creates a Store over an open, migrated database.
func New(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Put inserts or replaces a document. created_at is kept on replace.
func (s *Store) Put(ctx context.Context, kind Kind, id string, data []byte) error {
	if id == "" {
		return ErrEmptyID
	}
	ts := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO objects (type, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (type, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		string(kind), id, string(data), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("saving %s %s: %w", kind, id, err)
	}
	return nil
}

// Get returns one document or ErrNotFound.
func (s *Store) Get(ctx context.Context, kind Kind, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT data, created_at, updated_at FROM objects WHERE type = ? AND id = ?",
		string(kind), id,
	)

	doc := &Document{Kind: kind, ID: id}
	var data, created, updated string
	if err := row.Scan(&data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading %s %s: %w", kind, id, err)
	}
	doc.Data = []byte(data)
	doc.CreatedAt = parseTime(created)
	doc.UpdatedAt = parseTime(updated)
	return doc, nil
}

// List returns every document of a kind ordered by id.
func (s *Store) List(ctx context.Context, kind Kind) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, data, created_at, updated_at FROM objects WHERE type = ? ORDER BY id",
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, data, created, updated string
		if err := rows.Scan(&id, &data, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", kind, err)
		}
		docs = append(docs, Document{
			Kind:      kind,
			ID:        id,
			Data:      []byte(data),
			CreatedAt: parseTime(created),
			UpdatedAt: parseTime(updated),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", kind, err)
	}
	return docs, nil
}

// Delete removes a document. It reports whether a row existed.
func (s *Store) Delete(ctx context.Context, kind Kind, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM objects WHERE type = ? AND id = ?",
		string(kind), id,
	)
	if err != nil {
		return false, fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting %s %s: %w", kind, id, err)
	}
	return n > 0, nil
}

// Exists reports whether a document is stored.
func (s *Store) Exists(ctx context.Context, kind Kind, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM objects WHERE type = ? AND id = ?",
		string(kind), id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s %s: %w", kind, id, err)
	}
	return true, nil
}

// Count returns the number of documents of a kind.
func (s *Store) Count(ctx context.Context, kind Kind) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM objects WHERE type = ?", string(kind),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", kind, err)
	}
	return n, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s) //nolint:errcheck // Written by Put
	return t
}
