package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/conorfennell/notemaker/internal/domain"
)

// SaveNote stores a note and drops the oldest notes beyond keep.
func (db *DB) SaveNote(ctx context.Context, note domain.Note, keep int) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin note transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notes (id, format, topic, output, created)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID, note.Format, note.Topic, note.Output, toNanos(note.Created)); err != nil {
		return fmt.Errorf("failed to insert note %s: %w", note.ID, err)
	}

	if keep > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM notes WHERE id NOT IN (
				SELECT id FROM notes ORDER BY created DESC, rowid DESC LIMIT ?
			)
		`, keep); err != nil {
			return fmt.Errorf("failed to trim notes: %w", err)
		}
	}
	return tx.Commit()
}

// RecentNotes returns up to limit notes, newest first.
func (db *DB) RecentNotes(ctx context.Context, limit int) ([]domain.Note, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, format, topic, output, created
		FROM notes ORDER BY created DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetNote retrieves a note by its ID.
func (db *DB) GetNote(ctx context.Context, id string) (domain.Note, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, format, topic, output, created
		FROM notes WHERE id = ?
	`, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Note{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
		}
		return domain.Note{}, fmt.Errorf("failed to find note %s: %w", id, err)
	}
	return n, nil
}

// ClearNotes deletes the whole note history.
func (db *DB) ClearNotes(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("failed to clear notes: %w", err)
	}
	return nil
}

func scanNote(row rowScanner) (domain.Note, error) {
	var (
		n       domain.Note
		created int64
	)
	if err := row.Scan(&n.ID, &n.Format, &n.Topic, &n.Output, &created); err != nil {
		return domain.Note{}, err
	}
	n.Created = fromNanos(created)
	return n, nil
}
