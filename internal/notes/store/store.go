// Package store persists notes in PostgreSQL. Every query is scoped to an
// owner, and the note timestamp is refreshed on every edit.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/scrappr/internal/notes"
	apperrors "github.com/Adithya-Monish-Kumar-K/scrappr/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/postgres"
)

// Schema creates the notes table and its owner index.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		id         UUID PRIMARY KEY,
		owner      TEXT NOT NULL,
		content    TEXT NOT NULL,
		tags       TEXT[] NOT NULL DEFAULT '{}',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notes_owner_updated_idx ON notes (owner, updated_at DESC)`,
}

const selectColumns = `SELECT id, content, tags, updated_at FROM notes`

type Store struct {
	db     *postgres.Client
	now    func() time.Time
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "note-store"),
	}
}

// EnsureSchema creates the table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.db.Exec(ctx, Schema...); err != nil {
		return fmt.Errorf("creating notes schema: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, owner string, req notes.CreateRequest) (notes.Note, error) {
	ts := s.now().UnixMilli()
	note := notes.Note{
		ID:        uuid.NewString(),
		Content:   req.Content,
		Timestamp: ts,
		Tags:      nonNil(req.Tags),
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO notes (id, owner, content, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)`,
			note.ID, owner, note.Content, pq.Array(note.Tags), ts)
		return err
	})
	if err != nil {
		return notes.Note{}, fmt.Errorf("inserting note: %w", err)
	}
	s.logger.Debug("note created", "owner", owner, "note_id", note.ID)
	return note, nil
}

func (s *Store) Get(ctx context.Context, owner, id string) (notes.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notes.Note{}, notFound(id)
	}
	row := s.db.DB.QueryRowContext(ctx, selectColumns+` WHERE owner = $1 AND id = $2`, owner, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return notes.Note{}, notFound(id)
	}
	if err != nil {
		return notes.Note{}, fmt.Errorf("reading note %s: %w", id, err)
	}
	return note, nil
}

// Update replaces content and tags and moves the timestamp to now.
func (s *Store) Update(ctx context.Context, owner, id string, req notes.UpdateRequest) (notes.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notes.Note{}, notFound(id)
	}
	note := notes.Note{
		ID:        id,
		Content:   req.Content,
		Timestamp: s.now().UnixMilli(),
		Tags:      nonNil(req.Tags),
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE notes SET content = $3, tags = $4, updated_at = $5
			WHERE owner = $1 AND id = $2`,
			owner, id, note.Content, pq.Array(note.Tags), note.Timestamp)
		if err != nil {
			return err
		}
		return requireOneRow(res, id)
	})
	if err != nil {
		return notes.Note{}, fmt.Errorf("updating note: %w", err)
	}
	return note, nil
}

func (s *Store) Delete(ctx context.Context, owner, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound(id)
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE owner = $1 AND id = $2`, owner, id)
		if err != nil {
			return err
		}
		return requireOneRow(res, id)
	})
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	return nil
}

// List returns all of owner's notes, newest first.
func (s *Store) List(ctx context.Context, owner string) ([]notes.Note, error) {
	return s.query(ctx, selectColumns+` WHERE owner = $1 ORDER BY updated_at DESC, id`, owner)
}

// Latest returns up to limit of owner's most recently edited notes.
func (s *Store) Latest(ctx context.Context, owner string, limit int) ([]notes.Note, error) {
	return s.query(ctx, selectColumns+` WHERE owner = $1 ORDER BY updated_at DESC, id LIMIT $2`, owner, limit)
}

// Count returns how many notes owner has.
func (s *Store) Count(ctx context.Context, owner string) (int, error) {
	var n int
	if err := s.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE owner = $1`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting notes: %w", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]notes.Note, error) {
	rows, err := s.db.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	out := make([]notes.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		out = append(out, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (notes.Note, error) {
	var note notes.Note
	var tags pq.StringArray
	if err := row.Scan(&note.ID, &note.Content, &tags, &note.Timestamp); err != nil {
		return notes.Note{}, err
	}
	note.Tags = nonNil(tags)
	return note, nil
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func notFound(id string) error {
	return apperrors.Newf(apperrors.ErrNoteNotFound, http.StatusNotFound, "note %s", id)
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
