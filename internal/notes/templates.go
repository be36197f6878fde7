package notes

import (
	"fmt"
	"strings"
)

// Note formats.
const (
	FormatBulletPoints = "Bullet Points"
	FormatCornell      = "Cornell Notes"
	FormatMindMap      = "Mind Map Structure"
	FormatFlashcards   = "Flashcards"
	FormatSummary      = "Summary Notes"
	FormatDetailed     = "Detailed Explanation"
	FormatQA           = "Question & Answer Format"
	FormatKeyConcepts  = "Key Concepts & Definitions"
	FormatTimeline     = "Timeline Format"
	FormatComparative  = "Comparative Analysis"
)

const additionalParameters = "Additional parameters:"

// Formats lists every note format in display order.
var Formats = []string{
	FormatBulletPoints,
	FormatCornell,
	FormatMindMap,
	FormatFlashcards,
	FormatSummary,
	FormatDetailed,
	FormatQA,
	FormatKeyConcepts,
	FormatTimeline,
	FormatComparative,
}

// Categories groups formats for display.
var Categories = map[string][]string{
	"Note Formats": {FormatBulletPoints, FormatCornell, FormatMindMap, FormatSummary, FormatDetailed},
	"Study Aids":   {FormatFlashcards, FormatQA, FormatKeyConcepts},
	"Specialized":  {FormatTimeline, FormatComparative},
}

// DetailLevels maps a detail level to the maximum output tokens.
var DetailLevels = map[string]int{
	"Brief":         2048,
	"Standard":      4096,
	"Comprehensive": 8192,
}

// EducationLevels lists the supported audiences.
var EducationLevels = []string{
	"Elementary",
	"Middle School",
	"High School",
	"Undergraduate",
	"Graduate",
	"Professional",
}

var templates = map[string]string{
	FormatBulletPoints: "Create comprehensive bullet point notes on: %s. Format with clear hierarchical structure (main points and sub-points) using bullet symbols. Make notes concise yet complete, covering all important aspects. Use appropriate spacing for readability.",
	FormatCornell:      "Create Cornell-style notes on: %s. Structure with three sections: 1) Right column (main notes area): detailed content with clear paragraphs and hierarchical organization, 2) Left column (cue column): key questions, terms, and concepts that align with the main notes, 3) Bottom section: concise summary of the entire topic. Use proper formatting and spacing.",
	FormatMindMap:      "Create a text-based mind map structure on: %s. Format with the core concept in the center, main branches using level 1 headings, sub-branches using level 2 headings, and leaf nodes using bullet points. Use indentation to show relationships between concepts. Include all important relationships and hierarchies.",
	FormatFlashcards:   "Create a set of flashcards on: %s. Format with 'Q:' for questions and 'A:' for answers, separating each flashcard with a line containing only '---'. Include comprehensive coverage of key facts, definitions, concepts, and their applications. Number each flashcard.",
	FormatSummary:      "Create concise summary notes on: %s. Include only the most essential information, key concepts, and critical takeaways. Format with clear headings and short paragraphs. Ensure comprehensive coverage while maintaining brevity (maximum 1/3 the length of detailed notes).",
	FormatDetailed:     "Create detailed explanatory notes on: %s. Include thorough explanations of concepts, supporting evidence, examples, and applications. Structure with clear headings, subheadings, and logical flow. Use appropriate technical language while ensuring clarity.",
	FormatQA:           "Create comprehensive Q&A format notes on: %s. Format with clear questions followed by detailed answers. Cover all important aspects of the topic with questions ranging from basic understanding to advanced application. Group related questions together under appropriate headings.",
	FormatKeyConcepts:  "Create a glossary of key concepts and definitions for: %s. Format each entry with the term in bold followed by a comprehensive definition. Include examples where helpful. Organize alphabetically or by related concept groups with clear headings.",
	FormatTimeline:     "Create chronological timeline notes on: %s. Format with clear date/period indicators followed by detailed descriptions of events, developments, or phases. Include significant milestones, causes, and effects. Use appropriate headings for major eras or transitions.",
	FormatComparative:  "Create comparative analysis notes on: %s. Structure with clear categories for comparison in the left column and entities being compared across the top. Include detailed points of comparison with similarities and differences clearly marked. Conclude with synthesis of key insights from the comparison.",
}

// BuildPrompt renders the prompt sent to the model for req.
func BuildPrompt(req Request) (string, error) {
	tmpl, ok := templates[req.Format]
	if !ok {
		return "", fmt.Errorf("unknown note format %q", req.Format)
	}
	var b strings.Builder
	fmt.Fprintf(&b, tmpl, req.Topic)
	b.WriteString("\n\n")
	b.WriteString(additionalParameters)
	fmt.Fprintf(&b, "\n- Detail level: %s", req.Detail)
	fmt.Fprintf(&b, "\n- Education level: %s", req.Education)
	return b.String(), nil
}
