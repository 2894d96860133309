package sealing

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docseal/internal/model"
	"docseal/internal/pdf"
)

// Field text rendering constants. These are part of the visual contract:
// changing them changes the layout of every sealed document.
const (
	fieldFontSize = 8.0
	fieldPadding  = 4.0
	fieldLineStep = fieldFontSize * 1.2
)

const fieldFontName = "F1"

// Renderer draws inserted fields onto a loaded document. Non-signature fields
// are typeset directly; signature fields are delegated to the insertion
// strategy selected by the document's legacy flag.
type Renderer struct {
	current FieldInserter
	legacy  FieldInserter
	log     *zap.Logger
}

// NewRenderer creates a renderer with both insertion strategies.
func NewRenderer(current, legacy FieldInserter, log *zap.Logger) *Renderer {
	return &Renderer{current: current, legacy: legacy, log: log}
}

// RenderFields draws every inserted field in order. Fields referencing pages
// that no longer exist are skipped silently; historical data may point at
// pruned pages.
func (r *Renderer) RenderFields(ctx context.Context, doc *pdf.Document, document model.Document, fields []model.Field) error {
	pages := doc.Pages()
	inserter := r.current
	if document.UseLegacyFieldInsertion {
		inserter = r.legacy
	}

	for _, field := range fields {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !field.Inserted {
			continue
		}
		if field.Page < 1 || field.Page > len(pages) {
			r.log.Warn("field references missing page",
				zap.String("field_id", field.ID),
				zap.Int("page", field.Page),
				zap.Int("page_count", len(pages)))
			continue
		}
		page := pages[field.Page-1]

		if field.Type.IsSignature() {
			if err := inserter.Insert(doc, page, field); err != nil {
				return fmt.Errorf("insert signature field %s: %w", field.ID, err)
			}
			continue
		}
		if field.CustomText == "" {
			continue
		}
		r.drawTextField(doc, page, field)
	}
	return nil
}

// drawTextField typesets the field's custom text into its box, top-down.
// Lines that would fall below the bottom padding are dropped, never wrapped
// onto another page.
func (r *Renderer) drawTextField(doc *pdf.Document, page *pdf.Page, field model.Field) {
	rect := fieldRect(page, field)
	maxWidth := rect.Width() - 2*fieldPadding

	wrapped := Wrap(field.CustomText, maxWidth, func(s string) float64 {
		return pdf.MeasureString(s, fieldFontSize)
	})

	doc.EnsurePageFont(page, fieldFontName, "Helvetica")

	var ops bytes.Buffer
	fmt.Fprintf(&ops, "q\nBT\n/%s %s Tf\n", fieldFontName, pdf.Real(fieldFontSize))

	y := rect.LLY + rect.Height() - fieldPadding - fieldFontSize
	for _, line := range strings.Split(wrapped, "\n") {
		if y < rect.LLY+fieldPadding {
			break
		}
		if line != "" {
			fmt.Fprintf(&ops, "1 0 0 1 %s %s Tm\n(%s) Tj\n",
				pdf.Real(rect.LLX+fieldPadding), pdf.Real(y), pdf.EscapeString(line))
		}
		y -= fieldLineStep
	}
	ops.WriteString("ET\nQ\n")
	doc.AddContent(page, ops.Bytes())
}

// fieldRect converts the field's percentage geometry to page coordinates.
// Stored positions are top-left anchored with Y growing downward; content
// streams use a bottom-left origin, so the Y axis is inverted.
func fieldRect(page *pdf.Page, field model.Field) pdf.Rect {
	box := page.MediaBox()
	pageW, pageH := box.Width(), box.Height()

	x := pageW * field.PositionX / 100
	yTop := pageH * field.PositionY / 100
	w := pageW * field.Width / 100
	h := pageH * field.Height / 100
	invertedY := pageH - yTop - h

	return pdf.Rect{
		LLX: box.LLX + x,
		LLY: box.LLY + invertedY,
		URX: box.LLX + x + w,
		URY: box.LLY + invertedY + h,
	}
}
