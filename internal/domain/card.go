package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scheduling defaults for a freshly created flashcard.
const (
	InitialEaseFactor = 2.5
	MinEaseFactor     = 1.3
	MaxEaseFactor     = 2.5
	InitialInterval   = 1.0

	// MaxInterval caps a review interval at 100 years, in days. It keeps
	// every next review representable as a time.Duration offset.
	MaxInterval = 36500.0
)

// Day is the unit intervals are expressed in.
const Day = 24 * time.Hour

// Flashcard is a single question-answer pair and its review schedule.
type Flashcard struct {
	ID       string
	Topic    string
	Question string
	Answer   string
	Created  time.Time

	NextReview  time.Time
	EaseFactor  float64
	Interval    float64 // days
	Repetitions int

	// Hash identifies the card content for source sync. Empty for cards
	// that were not imported from a source.
	Hash     string
	SourceID int64
}

// NewFlashcard creates a card that is first due one day after now.
func NewFlashcard(topic, question, answer string, now time.Time) Flashcard {
	return Flashcard{
		ID:          uuid.NewString(),
		Topic:       topic,
		Question:    question,
		Answer:      answer,
		Created:     now,
		NextReview:  AddDays(now, InitialInterval),
		EaseFactor:  InitialEaseFactor,
		Interval:    InitialInterval,
		Repetitions: 0,
	}
}

// IsDue reports whether the card should be reviewed at now.
func (c Flashcard) IsDue(now time.Time) bool {
	return !c.NextReview.After(now)
}

// AddDays adds a fractional number of days to t. days is limited to
// MaxInterval.
func AddDays(t time.Time, days float64) time.Time {
	days = min(days, MaxInterval)
	return t.Add(time.Duration(days * float64(Day)))
}

// ReviewLog records a single grading event for a card.
type ReviewLog struct {
	CardID      string
	Timestamp   time.Time
	Grade       string
	Interval    float64
	EaseFactor  float64
	Repetitions int
}
