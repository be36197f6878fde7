package parser

import (
	"os"
	"strings"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"

	// Delimiter separates flashcards in generated text.
	Delimiter = "---"
)

// Pair is one question and its answer, extracted from text.
type Pair struct {
	Question string
	Answer   string
}

// ExtractFile reads a file from the given path and extracts all cards.
func ExtractFile(path string) ([]Pair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Extract(string(b)), nil
}

// Extract splits text on Delimiter and returns a pair for every segment
// that holds a "Q:" marker followed by an "A:" marker. Other segments are
// skipped.
func Extract(text string) []Pair {
	var pairs []Pair
	for _, segment := range strings.Split(text, Delimiter) {
		if p, ok := extractPair(segment); ok {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

func extractPair(segment string) (Pair, bool) {
	qi := strings.Index(segment, questionPrefix)
	if qi < 0 {
		return Pair{}, false
	}
	rest := segment[qi+len(questionPrefix):]
	ai := strings.Index(rest, answerPrefix)
	if ai < 0 {
		return Pair{}, false
	}
	return Pair{
		Question: strings.TrimSpace(rest[:ai]),
		Answer:   strings.TrimSpace(rest[ai+len(answerPrefix):]),
	}, true
}
