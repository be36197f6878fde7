package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/notemaker/internal/domain"
	"github.com/conorfennell/notemaker/internal/parser"
	"github.com/conorfennell/notemaker/internal/sm2"
	"github.com/conorfennell/notemaker/internal/storage"
)

var (
	// ErrUnknownCard is returned when grading a card the store does not hold.
	ErrUnknownCard = errors.New("unknown card")
	// ErrSessionDone is returned when grading past the end of a session.
	ErrSessionDone = errors.New("review session is done")
)

// CardStore holds the flashcard collection.
type CardStore interface {
	Add(ctx context.Context, card domain.Flashcard) error
	Get(ctx context.Context, id string) (domain.Flashcard, error)
	Update(ctx context.Context, card domain.Flashcard) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) ([]domain.Flashcard, error)
	Search(ctx context.Context, query string) ([]domain.Flashcard, error)
}

// ReviewRecorder is implemented by stores that keep a review history.
type ReviewRecorder interface {
	AppendReview(ctx context.Context, log domain.ReviewLog) error
	ReviewsByCard(ctx context.Context, cardID string) ([]domain.ReviewLog, error)
}

// Service applies grades to cards in a store. Grading is serialized so the
// read-modify-write of a card is never interleaved with another grade.
type Service struct {
	cards  CardStore
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a review service over the given store.
func NewService(cards CardStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cards: cards, logger: logger}
}

// AddCards creates a card for every pair under topic and returns how many
// were stored.
func (s *Service) AddCards(ctx context.Context, topic string, pairs []parser.Pair, now time.Time) (int, error) {
	added := 0
	for _, p := range pairs {
		card := domain.NewFlashcard(topic, p.Question, p.Answer, now)
		if err := s.cards.Add(ctx, card); err != nil {
			return added, fmt.Errorf("add card for topic %q: %w", topic, err)
		}
		added++
	}
	s.logger.Info("flashcards added", "topic", topic, "count", added)
	return added, nil
}

// Grade applies grade to the card with the given ID at now and returns the
// updated card.
func (s *Service) Grade(ctx context.Context, id string, grade sm2.Grade, now time.Time) (domain.Flashcard, error) {
	if !grade.Valid() {
		return domain.Flashcard{}, fmt.Errorf("%w: %d", sm2.ErrInvalidGrade, int(grade))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := s.cards.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Flashcard{}, fmt.Errorf("%w: %s", ErrUnknownCard, id)
		}
		return domain.Flashcard{}, err
	}

	next, err := sm2.Schedule(card, grade, now)
	if err != nil {
		return domain.Flashcard{}, err
	}
	if err := s.cards.Update(ctx, next); err != nil {
		return domain.Flashcard{}, fmt.Errorf("save graded card %s: %w", id, err)
	}

	if rec, ok := s.cards.(ReviewRecorder); ok {
		log := domain.ReviewLog{
			CardID:      next.ID,
			Timestamp:   now,
			Grade:       grade.String(),
			Interval:    next.Interval,
			EaseFactor:  next.EaseFactor,
			Repetitions: next.Repetitions,
		}
		if err := rec.AppendReview(ctx, log); err != nil {
			s.logger.Warn("failed to record review", "card", id, "error", err)
		}
	}

	s.logger.Debug("card graded",
		"card", id,
		"grade", grade.String(),
		"interval", next.Interval,
		"ease_factor", next.EaseFactor,
		"repetitions", next.Repetitions,
	)
	return next, nil
}

// DueCards returns the cards due at now, earliest first.
func (s *Service) DueCards(ctx context.Context, now time.Time) ([]domain.Flashcard, error) {
	all, err := s.cards.All(ctx)
	if err != nil {
		return nil, err
	}
	return Due(all, now), nil
}

// Cards returns every card, earliest next review first.
func (s *Service) Cards(ctx context.Context) ([]domain.Flashcard, error) {
	return s.cards.All(ctx)
}

// Search returns the cards matching query. An empty query matches all cards.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Flashcard, error) {
	if strings.TrimSpace(query) == "" {
		return s.cards.All(ctx)
	}
	return s.cards.Search(ctx, query)
}

// Delete removes a card from the store.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cards.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownCard, id)
		}
		return err
	}
	return nil
}

// Reviews returns a card's grading history, oldest first. Stores without a
// review history yield an empty list.
func (s *Service) Reviews(ctx context.Context, id string) ([]domain.ReviewLog, error) {
	if _, err := s.cards.Get(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCard, id)
		}
		return nil, err
	}
	rec, ok := s.cards.(ReviewRecorder)
	if !ok {
		return nil, nil
	}
	return rec.ReviewsByCard(ctx, id)
}
