package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/conorfennell/notemaker/internal/domain"
)

// Memory is an in-process card and note store. Cards are kept sorted by
// next review, then creation time, then insertion order.
type Memory struct {
	mu    sync.RWMutex
	cards []domain.Flashcard
	notes []domain.Note // newest first
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) resort() {
	sort.SliceStable(m.cards, func(i, j int) bool {
		a, b := m.cards[i], m.cards[j]
		if !a.NextReview.Equal(b.NextReview) {
			return a.NextReview.Before(b.NextReview)
		}
		return a.Created.Before(b.Created)
	})
}

func (m *Memory) indexOf(id string) int {
	return slices.IndexFunc(m.cards, func(c domain.Flashcard) bool { return c.ID == id })
}

// Add appends a card. Duplicate content is allowed.
func (m *Memory) Add(_ context.Context, card domain.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = append(m.cards, card)
	m.resort()
	return nil
}

// Get returns the card with the given ID.
func (m *Memory) Get(_ context.Context, id string) (domain.Flashcard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return domain.Flashcard{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return m.cards[i], nil
}

// Update replaces the stored card that has the same ID.
func (m *Memory) Update(_ context.Context, card domain.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(card.ID)
	if i < 0 {
		return fmt.Errorf("card %s: %w", card.ID, ErrNotFound)
	}
	m.cards[i] = card
	m.resort()
	return nil
}

// Delete removes a card.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	m.cards = slices.Delete(m.cards, i, i+1)
	return nil
}

// All returns a copy of every card, earliest next review first.
func (m *Memory) All(_ context.Context) ([]domain.Flashcard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.cards), nil
}

// Search returns cards whose topic, question or answer contains query,
// ignoring case.
func (m *Memory) Search(_ context.Context, query string) ([]domain.Flashcard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterCards(m.cards, query), nil
}

// SaveNote stores a note and drops the oldest notes beyond keep.
func (m *Memory) SaveNote(_ context.Context, note domain.Note, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append([]domain.Note{note}, m.notes...)
	if keep > 0 && len(m.notes) > keep {
		m.notes = m.notes[:keep]
	}
	return nil
}

// RecentNotes returns up to limit notes, newest first.
func (m *Memory) RecentNotes(_ context.Context, limit int) ([]domain.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit > len(m.notes) || limit <= 0 {
		limit = len(m.notes)
	}
	return slices.Clone(m.notes[:limit]), nil
}

// GetNote returns the note with the given ID.
func (m *Memory) GetNote(_ context.Context, id string) (domain.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.Note{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
}

// ClearNotes deletes the whole note history.
func (m *Memory) ClearNotes(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = nil
	return nil
}
