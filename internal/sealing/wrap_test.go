package sealing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"docseal/internal/pdf"
)

// charWidth counts one unit per rune, which makes expected line breaks easy
// to read in the tables below.
func charWidth(s string) float64 {
	return float64(len([]rune(s)))
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth float64
		want     string
	}{
		{"empty", "", 10, ""},
		{"fits as one line", "hello world", 11, "hello world"},
		{"greedy word fill", "aa bb cc", 5, "aa bb\ncc"},
		{"word per line", "aa bb cc", 2, "aa\nbb\ncc"},
		{"oversized word broken into runs", "abcdefgh", 3, "abc\ndef\ngh"},
		{"oversized word mid-sentence", "ok abcdefgh ok", 4, "ok\nabcd\nefgh\nok"},
		{"newlines preserved", "a\nb", 10, "a\nb"},
		{"empty paragraph preserved", "a\n\nb", 10, "a\n\nb"},
		{"paragraph that fits keeps its spacing", "a  b", 4, "a  b"},
		{"mixed paragraphs", "short\naa bb cc", 5, "short\naa bb\ncc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wrap(tt.text, tt.maxWidth, charWidth))
		})
	}
}

func TestWrapIrreducibleCharacter(t *testing.T) {
	wide := func(s string) float64 { return float64(len([]rune(s))) * 10 }
	// Each character measures 10 against a limit of 5: every character is
	// irreducible and becomes its own line.
	assert.Equal(t, "a\nb", Wrap("ab", 5, wide))
}

func TestWrapNeverExceedsMaxWidth(t *testing.T) {
	texts := []string{
		"the quick brown fox jumps over the lazy dog",
		"one\ntwo three four\n\nfive",
		"supercalifragilisticexpialidocious",
		"a bb ccc dddd eeeee ffffff",
	}
	for _, text := range texts {
		for _, maxWidth := range []float64{3, 5, 8, 12, 100} {
			for _, line := range strings.Split(Wrap(text, maxWidth, charWidth), "\n") {
				assert.LessOrEqualf(t, charWidth(line), maxWidth,
					"text %q maxWidth %v produced line %q", text, maxWidth, line)
			}
		}
	}
}

func TestWrapIsDeterministic(t *testing.T) {
	widthOf := func(s string) float64 { return pdf.MeasureString(s, fieldFontSize) }
	text := "Approved by Jane Doe on 2024-01-01"
	first := Wrap(text, 83.8, widthOf)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Wrap(text, 83.8, widthOf))
	}
	assert.Equal(t, "Approved by Jane Doe\non 2024-01-01", first)
}
