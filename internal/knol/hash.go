package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/notemaker/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(card domain.Flashcard) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	t := normalizePart(card.Topic)
	q := normalizePart(card.Question)
	a := normalizePart(card.Answer)

	// Joined with newlines so "question" and "answer" can't run together.
	return strings.Join([]string{t, q, a}, "\n")
}

// Hash takes a card, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(card domain.Flashcard) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
