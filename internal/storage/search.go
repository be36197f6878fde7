package storage

import (
	"strings"

	"github.com/conorfennell/notemaker/internal/domain"
)

// filterCards keeps the cards whose topic, question or answer contains
// query under Unicode case folding. Order is preserved.
func filterCards(cards []domain.Flashcard, query string) []domain.Flashcard {
	q := strings.ToLower(query)
	var out []domain.Flashcard
	for _, c := range cards {
		if strings.Contains(strings.ToLower(c.Topic), q) ||
			strings.Contains(strings.ToLower(c.Question), q) ||
			strings.Contains(strings.ToLower(c.Answer), q) {
			out = append(out, c)
		}
	}
	return out
}
