package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/notemaker/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const cardColumns = `id, topic, question, answer, created, created_nsec, next_review, next_review_nsec, ease_factor, interval, repetitions, hash, source_id`

const cardOrder = `ORDER BY next_review, next_review_nsec, created, created_nsec, rowid`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Flashcard, error) {
	var (
		c                          domain.Flashcard
		created, createdNsec       int64
		nextReview, nextReviewNsec int64
		hash                       sql.NullString
		sourceID                   sql.NullInt64
	)
	err := row.Scan(
		&c.ID,
		&c.Topic,
		&c.Question,
		&c.Answer,
		&created,
		&createdNsec,
		&nextReview,
		&nextReviewNsec,
		&c.EaseFactor,
		&c.Interval,
		&c.Repetitions,
		&hash,
		&sourceID,
	)
	if err != nil {
		return domain.Flashcard{}, err
	}
	c.Created = fromUnix(created, createdNsec)
	c.NextReview = fromUnix(nextReview, nextReviewNsec)
	c.Hash = hash.String
	c.SourceID = sourceID.Int64
	return c, nil
}

func scanCards(rows *sql.Rows) ([]domain.Flashcard, error) {
	defer rows.Close()

	var cards []domain.Flashcard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// Add inserts a new card into the database.
func (db *DB) Add(ctx context.Context, card domain.Flashcard) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		card.Topic,
		card.Question,
		card.Answer,
		card.Created.Unix(),
		card.Created.Nanosecond(),
		card.NextReview.Unix(),
		card.NextReview.Nanosecond(),
		card.EaseFactor,
		card.Interval,
		card.Repetitions,
		nullString(card.Hash),
		nullInt64(card.SourceID),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// Get retrieves a card by its ID.
func (db *DB) Get(ctx context.Context, id string) (domain.Flashcard, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Flashcard{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		return domain.Flashcard{}, fmt.Errorf("failed to find card %s: %w", id, err)
	}
	return c, nil
}

// Update writes back a card's review schedule.
func (db *DB) Update(ctx context.Context, card domain.Flashcard) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards
		SET next_review = ?, next_review_nsec = ?, ease_factor = ?, interval = ?, repetitions = ?
		WHERE id = ?
	`,
		card.NextReview.Unix(),
		card.NextReview.Nanosecond(),
		card.EaseFactor,
		card.Interval,
		card.Repetitions,
		card.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("card %s: %w", card.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a card and its review history.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return nil
}

// All returns every card, earliest next review first.
func (db *DB) All(ctx context.Context) ([]domain.Flashcard, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM cards
		`+cardOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to get all cards: %w", err)
	}
	return scanCards(rows)
}

// Search returns cards whose topic, question or answer contains query,
// ignoring case. Matching happens in Go because SQLite's lower() only folds
// ASCII.
func (db *DB) Search(ctx context.Context, query string) ([]domain.Flashcard, error) {
	all, err := db.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search cards for %q: %w", query, err)
	}
	return filterCards(all, query), nil
}

// FindCardByHash retrieves a source's card by its content hash.
// It returns nil without error when no card matches.
func (db *DB) FindCardByHash(ctx context.Context, sourceID int64, hash string) (*domain.Flashcard, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+cardColumns+` FROM cards
		WHERE source_id = ? AND hash = ? LIMIT 1
	`, sourceID, hash)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Card not found
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return &c, nil
}

// GetCardsBySourceID retrieves all cards associated with a specific source ID.
func (db *DB) GetCardsBySourceID(ctx context.Context, sourceID int64) ([]domain.Flashcard, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM cards WHERE source_id = ?
		`+cardOrder, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	return scanCards(rows)
}

// AppendReview records a grading event.
func (db *DB) AppendReview(ctx context.Context, log domain.ReviewLog) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO review_logs (card_id, reviewed_at, grade, interval, ease_factor, repetitions)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		log.CardID,
		toNanos(log.Timestamp),
		log.Grade,
		log.Interval,
		log.EaseFactor,
		log.Repetitions,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review log for card %s: %w", log.CardID, err)
	}
	return nil
}

// ReviewsByCard returns a card's review history, oldest first.
func (db *DB) ReviewsByCard(ctx context.Context, cardID string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, reviewed_at, grade, interval, ease_factor, repetitions
		FROM review_logs WHERE card_id = ?
		ORDER BY reviewed_at, id
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for card %s: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var (
			l  domain.ReviewLog
			ts int64
		)
		if err := rows.Scan(&l.CardID, &ts, &l.Grade, &l.Interval, &l.EaseFactor, &l.Repetitions); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		l.Timestamp = fromNanos(ts)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func fromUnix(sec, nsec int64) time.Time {
	return time.Unix(sec, nsec).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
