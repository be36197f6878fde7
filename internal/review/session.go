package review

import (
	"context"
	"time"

	"github.com/conorfennell/notemaker/internal/domain"
	"github.com/conorfennell/notemaker/internal/sm2"
)

// Session walks a fixed snapshot of due cards. Grading a card does not
// re-filter the snapshot; the position only moves forward.
type Session struct {
	cards []domain.Flashcard
	pos   int
}

// NewSession starts a session over cards, usually the result of DueCards.
func NewSession(cards []domain.Flashcard) *Session {
	snapshot := make([]domain.Flashcard, len(cards))
	copy(snapshot, cards)
	return &Session{cards: snapshot}
}

// Current returns the card awaiting a grade. ok is false once the session
// is done.
func (s *Session) Current() (card domain.Flashcard, ok bool) {
	if s.Done() {
		return domain.Flashcard{}, false
	}
	return s.cards[s.pos], true
}

// Position is the zero-based index of the current card.
func (s *Session) Position() int { return s.pos }

// Len is the number of cards in the snapshot.
func (s *Session) Len() int { return len(s.cards) }

// Done reports whether every card has been graded or skipped.
func (s *Session) Done() bool { return s.pos >= len(s.cards) }

// Skip moves past the current card without grading it.
func (s *Session) Skip() {
	if !s.Done() {
		s.pos++
	}
}

// Grade grades the current card through svc and advances. The session does
// not advance when grading fails.
func (s *Session) Grade(ctx context.Context, svc *Service, grade sm2.Grade, now time.Time) (domain.Flashcard, error) {
	card, ok := s.Current()
	if !ok {
		return domain.Flashcard{}, ErrSessionDone
	}
	updated, err := svc.Grade(ctx, card.ID, grade, now)
	if err != nil {
		return domain.Flashcard{}, err
	}
	s.cards[s.pos] = updated
	s.pos++
	return updated, nil
}
