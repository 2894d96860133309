package sealing

import (
	"bytes"
	"fmt"

	"docseal/internal/model"
	"docseal/internal/pdf"
)

// FieldInserter draws one signature-bearing field's artwork into the page.
// Two mutually exclusive strategies exist; the document's legacy flag picks
// one per document at render time.
type FieldInserter interface {
	Insert(doc *pdf.Document, page *pdf.Page, field model.Field) error
}

// CurrentFieldInserter is the strategy for documents created after the
// current renderer shipped: images keep their aspect ratio and are centered
// inside the field box, typed signatures shrink to fit.
type CurrentFieldInserter struct{}

var _ FieldInserter = (*CurrentFieldInserter)(nil)

func (CurrentFieldInserter) Insert(doc *pdf.Document, page *pdf.Page, field model.Field) error {
	if field.Signature == nil {
		return nil
	}
	rect := fieldRect(page, field)

	if len(field.Signature.ImagePNG) > 0 {
		return drawSignatureImage(doc, page, rect, field.Signature.ImagePNG, false)
	}
	if field.Signature.TypedSignature != "" {
		drawTypedSignature(doc, page, rect, field.Signature.TypedSignature)
	}
	return nil
}

// LegacyFieldInserter reproduces the pre-renderer behavior: images are
// stretched to the full field box, ignoring aspect ratio.
type LegacyFieldInserter struct{}

var _ FieldInserter = (*LegacyFieldInserter)(nil)

func (LegacyFieldInserter) Insert(doc *pdf.Document, page *pdf.Page, field model.Field) error {
	if field.Signature == nil {
		return nil
	}
	rect := fieldRect(page, field)

	if len(field.Signature.ImagePNG) > 0 {
		return drawSignatureImage(doc, page, rect, field.Signature.ImagePNG, true)
	}
	if field.Signature.TypedSignature != "" {
		drawTypedSignature(doc, page, rect, field.Signature.TypedSignature)
	}
	return nil
}

// drawSignatureImage places a PNG signature into rect. When stretch is false
// the image is aspect-fit and centered; when true it fills the box.
func drawSignatureImage(doc *pdf.Document, page *pdf.Page, rect pdf.Rect, png []byte, stretch bool) error {
	image, imgW, imgH, err := pdf.ImageXObject(png)
	if err != nil {
		return fmt.Errorf("decode signature image: %w", err)
	}

	w, h := rect.Width(), rect.Height()
	x, y := rect.LLX, rect.LLY
	if !stretch && imgW > 0 && imgH > 0 {
		scale := w / float64(imgW)
		if s := h / float64(imgH); s < scale {
			scale = s
		}
		fitW := float64(imgW) * scale
		fitH := float64(imgH) * scale
		x += (w - fitW) / 2
		y += (h - fitH) / 2
		w, h = fitW, fitH
	}

	name := doc.AddPageXObject(page, "Sig", image)
	var ops bytes.Buffer
	fmt.Fprintf(&ops, "q\n%s 0 0 %s %s %s cm\n/%s Do\nQ\n",
		pdf.Real(w), pdf.Real(h), pdf.Real(x), pdf.Real(y), name)
	doc.AddContent(page, ops.Bytes())
	return nil
}

// drawTypedSignature centers the typed name in the field box, shrinking the
// font until the text fits the available width.
func drawTypedSignature(doc *pdf.Document, page *pdf.Page, rect pdf.Rect, text string) {
	maxWidth := rect.Width() - 2*fieldPadding
	size := rect.Height() * 0.6
	if size > 18 {
		size = 18
	}
	for size > 4 && pdf.MeasureString(text, size) > maxWidth {
		size -= 0.5
	}

	textW := pdf.MeasureString(text, size)
	x := rect.LLX + (rect.Width()-textW)/2
	y := rect.LLY + (rect.Height()-size)/2

	doc.EnsurePageFont(page, fieldFontName, "Helvetica")
	var ops bytes.Buffer
	fmt.Fprintf(&ops, "q\nBT\n/%s %s Tf\n1 0 0 1 %s %s Tm\n(%s) Tj\nET\nQ\n",
		fieldFontName, pdf.Real(size), pdf.Real(x), pdf.Real(y), pdf.EscapeString(text))
	doc.AddContent(page, ops.Bytes())
}
