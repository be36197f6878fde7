package review

import (
	"sort"
	"time"

	"github.com/conorfennell/notemaker/internal/domain"
)

// Due returns the cards whose next review is at or before now, earliest
// first. Cards due at the same instant keep their relative order.
func Due(cards []domain.Flashcard, now time.Time) []domain.Flashcard {
	var due []domain.Flashcard
	for _, c := range cards {
		if c.IsDue(now) {
			due = append(due, c)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextReview.Before(due[j].NextReview)
	})
	return due
}
