package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtract(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedQ     string
		expectedA     string
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expectedQ:     "What is the capital of France?",
			expectedA:     "Paris",
		},
		{
			name: "Multiline Answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedQ:     "What are the primary colors?",
			expectedA:     "Red\nBlue\nYellow",
		},
		{
			name: "Two Cards",
			input: `
Q: First question
A: First answer
---
Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "Numbered card with heading",
			input: `## Flashcards

1. Q: What is Go?
A: A statically typed, compiled programming language.
`,
			expectedCards: 1,
			expectedQ:     "What is Go?",
			expectedA:     "A statically typed, compiled programming language.",
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "Empty input",
			input:         "",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedQ:     "Question",
			expectedA:     "Answer",
		},
		{
			name:          "Answer marker before question is ignored",
			input:         "A: stray\nQ: Real question\nA: Real answer",
			expectedCards: 1,
			expectedQ:     "Real question",
			expectedA:     "Real answer",
		},
		{
			name:          "Question without answer",
			input:         "Q: Only a question",
			expectedCards: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pairs := Extract(tc.input)

			if len(pairs) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(pairs))
			}

			if tc.expectedCards == 1 {
				p := pairs[0]
				if p.Question != tc.expectedQ {
					t.Errorf("Expected Question to be '%s', but got '%s'", tc.expectedQ, p.Question)
				}
				if p.Answer != tc.expectedA {
					t.Errorf("Expected Answer to be '%s', but got '%s'", tc.expectedA, p.Answer)
				}
			}
		})
	}
}

func TestExtractSkipsMalformedSegment(t *testing.T) {
	input := `Q: One?
A: 1
---
Q: Two?
A: 2
---
Q: Missing its answer
---
Q: Three?
A: 3`

	pairs := Extract(input)
	if len(pairs) != 3 {
		t.Fatalf("Expected 3 cards, but got %d", len(pairs))
	}
	for i, want := range []string{"1", "2", "3"} {
		if pairs[i].Answer != want {
			t.Errorf("Card %d: expected answer '%s', got '%s'", i, want, pairs[i].Answer)
		}
	}
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.md")
	if err := os.WriteFile(path, []byte("Q: a?\nA: b\n---\nQ: c?\nA: d\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pairs, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile() returned an unexpected error: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("Expected 2 cards, but got %d", len(pairs))
	}

	if _, err := ExtractFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
