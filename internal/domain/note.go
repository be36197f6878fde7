package domain

import "time"

// Note is one generated piece of text kept in the recent-notes history.
type Note struct {
	ID      string
	Format  string
	Topic   string
	Output  string
	Created time.Time
}

// Source is a directory or git repository that flashcards are synced from.
type Source struct {
	ID          int64
	Path        string
	Type        string // "local" or "git"
	LastScanned time.Time
}

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)
