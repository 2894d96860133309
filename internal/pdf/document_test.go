package pdf

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTwoPageDoc(t *testing.T) []byte {
	t.Helper()
	doc := New()
	p1 := doc.AddPage(612, 792)
	doc.EnsurePageFont(p1, "F1", "Helvetica")
	doc.AddContent(p1, []byte("BT /F1 12 Tf 72 720 Td (first page) Tj ET"))
	doc.AddPage(595, 842)
	data, err := doc.Bytes()
	require.NoError(t, err)
	return data
}

func TestLoadRoundTrip(t *testing.T) {
	data := buildTwoPageDoc(t)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-1.7")))

	doc, err := Load(data)
	require.NoError(t, err)

	pages := doc.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, Rect{URX: 612, URY: 792}, pages[0].MediaBox())
	assert.Equal(t, Rect{URX: 595, URY: 842}, pages[1].MediaBox())
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load([]byte("this is not a pdf"))
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestLoadLaterDefinitionWins(t *testing.T) {
	// Simulates an incremental update: object 4 defined twice, the second
	// definition replaces the first.
	base := buildTwoPageDoc(t)
	doc, err := Load(base)
	require.NoError(t, err)

	pageRef := doc.Pages()[0].Ref
	update := fmt.Sprintf(
		"\n%d 0 obj\n<< /Type /Page /Parent 1 0 R /MediaBox [0 0 100 200] >>\nendobj\n",
		pageRef.Num)
	doc2, err := Load(append(base, []byte(update)...))
	require.NoError(t, err)
	assert.Equal(t, Rect{URX: 100, URY: 200}, doc2.Pages()[0].MediaBox())
}

func TestMediaBoxInheritedFromParent(t *testing.T) {
	doc := New()
	page := doc.AddPage(612, 792)
	page.Dict.Delete("MediaBox")
	parent := doc.ResolveDict(page.Dict.Get("Parent"))
	parent.Set("MediaBox", Rect{URX: 300, URY: 400}.ToArray())

	assert.Equal(t, Rect{URX: 300, URY: 400}, page.MediaBox())
}

func TestAddContentAppends(t *testing.T) {
	doc := New()
	page := doc.AddPage(612, 792)
	doc.AddContent(page, []byte("q Q"))
	doc.AddContent(page, []byte("0 0 10 10 re f"))

	contents, ok := page.Dict.Get("Contents").(Array)
	require.True(t, ok)
	assert.Len(t, contents, 2)
}

func TestEnsurePageFontIdempotent(t *testing.T) {
	doc := New()
	page := doc.AddPage(612, 792)
	doc.EnsurePageFont(page, "F1", "Helvetica")
	doc.EnsurePageFont(page, "F1", "Helvetica")

	res := doc.ResolveDict(page.Dict.Get("Resources"))
	fonts := doc.ResolveDict(res.Get("Font"))
	assert.Len(t, fonts.Keys(), 1)
}

func TestAddPageXObjectAvoidsNameCollisions(t *testing.T) {
	doc := New()
	page := doc.AddPage(612, 792)
	a := doc.AddPageXObject(page, "Fx", NewStream(nil, []byte("q Q")))
	b := doc.AddPageXObject(page, "Fx", NewStream(nil, []byte("q Q")))
	assert.NotEqual(t, a, b)
}

func TestAppendPagesFrom(t *testing.T) {
	data := buildTwoPageDoc(t)
	dst, err := Load(data)
	require.NoError(t, err)

	src := New()
	page := src.AddPage(200, 300)
	src.EnsurePageFont(page, "F1", "Helvetica")
	src.AddContent(page, []byte("BT /F1 9 Tf 10 10 Td (appended) Tj ET"))

	require.NoError(t, dst.AppendPagesFrom(src))
	pages := dst.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, Rect{URX: 200, URY: 300}, pages[2].MediaBox())

	// The merged document must survive a serialize/parse cycle.
	out, err := dst.Bytes()
	require.NoError(t, err)
	reloaded, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.PageCount())
}

func TestFlattenFormStampsAppearanceAndDropsAcroForm(t *testing.T) {
	doc := New()
	page := doc.AddPage(612, 792)

	apDict := NewDict()
	apDict.Set("BBox", Rect{URX: 50, URY: 20}.ToArray())
	ap := doc.AddObject(NewStream(apDict, []byte("0 0 50 20 re f")))

	apEntry := NewDict()
	apEntry.Set("N", ap)
	widget := NewDict()
	widget.Set("Type", Name("Annot"))
	widget.Set("Subtype", Name("Widget"))
	widget.Set("FT", Name("Tx"))
	widget.Set("Rect", Rect{LLX: 100, LLY: 600, URX: 200, URY: 640}.ToArray())
	widget.Set("AP", apEntry)
	page.Dict.Set("Annots", Array{doc.AddObject(widget)})

	form := NewDict()
	form.Set("Fields", Array{})
	doc.Catalog().Set("AcroForm", doc.AddObject(form))

	doc.FlattenForm()

	assert.False(t, doc.Catalog().Has("AcroForm"))
	assert.False(t, page.Dict.Has("Annots"))

	res := doc.ResolveDict(page.Dict.Get("Resources"))
	xobjects := doc.ResolveDict(res.Get("XObject"))
	require.NotNil(t, xobjects)
	require.Len(t, xobjects.Keys(), 1)

	// Rect is 100x40 over a 50x20 BBox: scale 2, translated to the rect
	// origin. Operand order is a b c d e f, so scales sit at a and d.
	contents, ok := page.Dict.Get("Contents").(Array)
	require.True(t, ok)
	last, ok := doc.Resolve(contents[len(contents)-1]).(*Stream)
	require.True(t, ok)
	assert.Contains(t, string(last.Data), "q\n2 0 0 2 100 600 cm\n/"+xobjects.Keys()[0]+" Do\nQ\n")
}

func TestFlattenFormIsIdempotent(t *testing.T) {
	doc := New()
	page := doc.AddPage(612, 792)
	doc.FlattenForm()
	doc.FlattenForm()
	assert.Nil(t, page.Dict.Get("Annots"))
}

func TestNormalizeSignatureAppearances(t *testing.T) {
	doc := New()
	page := doc.AddPage(612, 792)

	sigAP := NewDict()
	sigAP.Set("N", doc.AddObject(NewStream(nil, []byte("q Q"))))
	sigWidget := NewDict()
	sigWidget.Set("Subtype", Name("Widget"))
	sigWidget.Set("FT", Name("Sig"))
	sigWidget.Set("AP", sigAP)
	sigWidget.Set("AS", Name("On"))

	textWidget := NewDict()
	textWidget.Set("Subtype", Name("Widget"))
	textWidget.Set("FT", Name("Tx"))
	textWidget.Set("AP", NewDict())

	page.Dict.Set("Annots", Array{doc.AddObject(sigWidget), doc.AddObject(textWidget)})

	doc.NormalizeSignatureAppearances()

	assert.False(t, sigWidget.Has("AP"))
	assert.False(t, sigWidget.Has("AS"))
	assert.True(t, textWidget.Has("AP"))
}

func TestFlattenAnnotationsDropsEverything(t *testing.T) {
	doc := New()
	page := doc.AddPage(612, 792)
	link := NewDict()
	link.Set("Subtype", Name("Link"))
	page.Dict.Set("Annots", Array{doc.AddObject(link)})

	doc.FlattenAnnotations()
	assert.False(t, page.Dict.Has("Annots"))
}

func TestMeasureString(t *testing.T) {
	// 'i' is narrower than 'm' in Helvetica.
	assert.Less(t, MeasureString("iii", 12), MeasureString("mmm", 12))
	assert.InDelta(t, 12*278.0/1000, MeasureString(" ", 12), 1e-9)
	assert.Zero(t, MeasureString("", 12))
}
