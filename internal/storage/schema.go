package storage

// Card timestamps are stored as Unix seconds plus a nanosecond column so
// that any schedulable date round-trips and orders on integers. Event
// timestamps (reviews, notes, scans) are taken from the clock and stored as
// Unix nanoseconds.
const schema = `
-- The 'cards' table stores each flashcard and its review schedule.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    topic TEXT NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    created INTEGER NOT NULL,
    created_nsec INTEGER NOT NULL DEFAULT 0,
    next_review INTEGER NOT NULL,
    next_review_nsec INTEGER NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL,
    interval REAL NOT NULL,
    repetitions INTEGER NOT NULL DEFAULT 0,
    hash TEXT,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cards_next_review ON cards(next_review, next_review_nsec);
CREATE INDEX IF NOT EXISTS idx_cards_hash ON cards(hash);

-- The 'review_logs' table records every grading event.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    reviewed_at INTEGER NOT NULL,
    grade TEXT NOT NULL,
    interval REAL NOT NULL,
    ease_factor REAL NOT NULL,
    repetitions INTEGER NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id) ON DELETE CASCADE
);

-- The 'sources' table tracks the origin of synced cards, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned INTEGER
);

-- The 'notes' table keeps recently generated notes, newest first.
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    format TEXT NOT NULL,
    topic TEXT NOT NULL,
    output TEXT NOT NULL,
    created INTEGER NOT NULL
);
`
