package sealing

import (
	"bytes"
	"fmt"
	"strings"

	"docseal/internal/pdf"
)

const (
	stampFontSize = 14.0
	stampMargin   = 36.0
)

// DrawRejectionStamp writes the rejection banner across the top of the first
// page. It runs after normalization so the stamp is never flattened away, and
// before field rendering so signature artwork lands on top of it.
func DrawRejectionStamp(doc *pdf.Document, reason string) {
	pages := doc.Pages()
	if len(pages) == 0 || reason == "" {
		return
	}
	page := pages[0]
	box := page.MediaBox()

	maxWidth := box.Width() - 2*stampMargin
	wrapped := Wrap("Rejected: "+reason, maxWidth, func(s string) float64 {
		return pdf.MeasureString(s, stampFontSize)
	})

	doc.EnsurePageFont(page, fieldFontName, "Helvetica")

	lines := strings.Split(wrapped, "\n")

	var ops bytes.Buffer
	ops.WriteString("q\n0.8 0 0 rg\n0.8 0 0 RG\n")

	// Border box around the wrapped text block.
	textHeight := float64(len(lines)) * stampFontSize * 1.2
	fmt.Fprintf(&ops, "1.5 w\n%s %s %s %s re S\n",
		pdf.Real(box.LLX+stampMargin-6),
		pdf.Real(box.URY-stampMargin-textHeight+stampFontSize*0.2-6),
		pdf.Real(maxWidth+12),
		pdf.Real(textHeight+stampFontSize*0.8+12))

	ops.WriteString("BT\n")
	fmt.Fprintf(&ops, "/%s %s Tf\n", fieldFontName, pdf.Real(stampFontSize))

	y := box.URY - stampMargin
	for _, line := range lines {
		if line != "" {
			fmt.Fprintf(&ops, "1 0 0 1 %s %s Tm\n(%s) Tj\n",
				pdf.Real(box.LLX+stampMargin), pdf.Real(y), pdf.EscapeString(line))
		}
		y -= stampFontSize * 1.2
	}
	ops.WriteString("ET\nQ\n")
	doc.AddContent(page, ops.Bytes())
}
