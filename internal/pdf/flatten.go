package pdf

import (
	"bytes"
	"fmt"
)

// NormalizeSignatureAppearances removes appearance streams and appearance
// state from signature widgets so a later signing pass regenerates them.
// Non-signature widgets are left untouched.
func (d *Document) NormalizeSignatureAppearances() {
	for _, page := range d.Pages() {
		for _, annotRef := range d.resolveArray(page.Dict.Get("Annots")) {
			annot := d.ResolveDict(annotRef)
			if annot == nil || annot.GetName("Subtype") != "Widget" {
				continue
			}
			if !d.isSignatureWidget(annot) {
				continue
			}
			annot.Delete("AP")
			annot.Delete("AS")
		}
	}
}

func (d *Document) isSignatureWidget(annot *Dict) bool {
	node := annot
	for i := 0; node != nil && i < 32; i++ {
		if node.GetName("FT") == "Sig" {
			return true
		}
		node = d.ResolveDict(node.Get("Parent"))
	}
	return false
}

// FlattenForm paints every widget's normal appearance into its page's content
// stream and then removes the interactive form. Widgets without an appearance
// are dropped silently. The operation is idempotent: a document with no
// AcroForm is returned unchanged.
func (d *Document) FlattenForm() {
	catalog := d.Catalog()
	if catalog == nil || !catalog.Has("AcroForm") {
		return
	}
	for _, page := range d.Pages() {
		d.flattenPageWidgets(page)
	}
	catalog.Delete("AcroForm")
}

func (d *Document) flattenPageWidgets(page *Page) {
	annots := d.resolveArray(page.Dict.Get("Annots"))
	if len(annots) == 0 {
		return
	}
	var kept Array
	for _, annotRef := range annots {
		annot := d.ResolveDict(annotRef)
		if annot == nil {
			continue
		}
		if annot.GetName("Subtype") != "Widget" {
			kept = append(kept, annotRef)
			continue
		}
		d.stampAppearance(page, annot)
	}
	if len(kept) == 0 {
		page.Dict.Delete("Annots")
		return
	}
	page.Dict.Set("Annots", kept)
}

// stampAppearance draws the widget's normal appearance stream onto the page
// as a form XObject, scaled from the appearance BBox to the widget Rect.
func (d *Document) stampAppearance(page *Page, annot *Dict) {
	rectArr := d.resolveArray(annot.Get("Rect"))
	rect, ok := RectFromArray(rectArr)
	if !ok || rect.Width() == 0 || rect.Height() == 0 {
		return
	}
	form := d.normalAppearance(annot)
	if form == nil {
		return
	}

	bbox := Rect{URX: rect.Width(), URY: rect.Height()}
	if arr := d.resolveArray(form.Dict.Get("BBox")); arr != nil {
		if b, ok := RectFromArray(arr); ok && b.Width() != 0 && b.Height() != 0 {
			bbox = b
		}
	}
	form.Dict.Set("Type", Name("XObject"))
	form.Dict.Set("Subtype", Name("Form"))

	sx := rect.Width() / bbox.Width()
	sy := rect.Height() / bbox.Height()
	tx := rect.LLX - bbox.LLX*sx
	ty := rect.LLY - bbox.LLY*sy

	name := d.AddPageXObject(page, "FlatFx", form)
	var ops bytes.Buffer
	fmt.Fprintf(&ops, "q\n%s 0 0 %s %s %s cm\n/%s Do\nQ\n",
		Real(sx), Real(sy), Real(tx), Real(ty), name)
	d.AddContent(page, ops.Bytes())
}

// normalAppearance resolves a widget's /AP /N stream, following /AS when the
// normal appearance is a state subdictionary.
func (d *Document) normalAppearance(annot *Dict) *Stream {
	ap := d.ResolveDict(annot.Get("AP"))
	if ap == nil {
		return nil
	}
	n := d.Resolve(ap.Get("N"))
	if sub, ok := n.(*Dict); ok {
		state := annot.GetName("AS")
		if state == "" {
			keys := sub.Keys()
			if len(keys) == 0 {
				return nil
			}
			state = keys[0]
		}
		n = d.Resolve(sub.Get(string(state)))
	}
	stream, _ := n.(*Stream)
	return stream
}

// FlattenAnnotations drops every remaining annotation from every page. Runs
// after FlattenForm, so what is left is links, popups and markup.
func (d *Document) FlattenAnnotations() {
	for _, page := range d.Pages() {
		page.Dict.Delete("Annots")
	}
}
