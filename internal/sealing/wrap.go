package sealing

import "strings"

// Wrap lays text out into lines no wider than maxWidth, measured by widthOf.
// Literal newlines are paragraph boundaries and survive unchanged, including
// empty paragraphs. Within a paragraph words are placed greedily, joined with
// single spaces; a word too wide for any line is broken into the largest
// character runs that still fit. A single character wider than maxWidth is
// irreducible and emitted as its own line.
func Wrap(text string, maxWidth float64, widthOf func(string) float64) string {
	paragraphs := strings.Split(text, "\n")
	lines := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		lines = append(lines, wrapParagraph(paragraph, maxWidth, widthOf)...)
	}
	return strings.Join(lines, "\n")
}

func wrapParagraph(paragraph string, maxWidth float64, widthOf func(string) float64) []string {
	if widthOf(paragraph) <= maxWidth {
		return []string{paragraph}
	}

	var lines []string
	current := ""
	for _, word := range strings.Fields(paragraph) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if widthOf(candidate) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		for widthOf(word) > maxWidth {
			run, rest := maxRun(word, maxWidth, widthOf)
			lines = append(lines, run)
			word = rest
		}
		current = word
	}
	if current != "" || len(lines) == 0 {
		lines = append(lines, current)
	}
	return lines
}

// maxRun splits off the longest prefix of word whose measured width stays
// within maxWidth, always taking at least one character.
func maxRun(word string, maxWidth float64, widthOf func(string) float64) (run, rest string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && widthOf(string(runes[:n+1])) <= maxWidth {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}
