package pdf

import (
	"bytes"
	"crypto/md5"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Document errors.
var (
	ErrNotPDF     = errors.New("not a PDF document")
	ErrNoCatalog  = errors.New("document catalog not found")
	ErrNoPages    = errors.New("page tree not found")
	ErrPageBounds = errors.New("page index out of range")
)

// Document is a loaded, mutable PDF document. Objects are held decoded in
// memory and re-serialized in full on write: the pipeline never needs
// incremental updates because signing happens after all edits.
type Document struct {
	version string
	objects map[int]Object
	maxObj  int
	catalog Ref
	trailer *Dict
}

var objHeaderRe = regexp.MustCompile(`(?m)^[^0-9]?(\d+)[ \t]+(\d+)[ \t]+obj\b`)

// Load parses a PDF from memory. It scans for every "N G obj" definition
// rather than trusting the xref table, so documents with stale or truncated
// cross-reference data still load; later definitions of the same object
// number (incremental updates) win.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	version := "1.7"
	end := len(data)
	if end > 16 {
		end = 16
	}
	if idx := bytes.IndexAny(data[5:end], "\r\n "); idx > 0 {
		version = string(data[5 : 5+idx])
	}

	doc := &Document{version: version, objects: make(map[int]Object)}

	// First pass records the body offset of every object so indirect stream
	// lengths can be resolved while parsing.
	type site struct {
		num, gen int
		body     int
	}
	var sites []site
	for _, loc := range objHeaderRe.FindAllSubmatchIndex(data, -1) {
		num, err := strconv.Atoi(string(data[loc[2]:loc[3]]))
		if err != nil {
			continue
		}
		gen, err := strconv.Atoi(string(data[loc[4]:loc[5]]))
		if err != nil {
			continue
		}
		sites = append(sites, site{num: num, gen: gen, body: loc[1]})
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("%w: no objects found", ErrNotPDF)
	}

	resolveLength := func(r Ref) (int64, bool) {
		// Lengths stored indirectly are simple integer objects; parse the
		// latest definition directly.
		for i := len(sites) - 1; i >= 0; i-- {
			if sites[i].num != r.Num {
				continue
			}
			obj, err := newParser(data, sites[i].body).parseObjectOrRef()
			if err != nil {
				return 0, false
			}
			if n, ok := obj.(Integer); ok {
				return int64(n), true
			}
			return 0, false
		}
		return 0, false
	}

	for _, s := range sites {
		obj, err := newParser(data, s.body).parseIndirectBody(resolveLength)
		if err != nil {
			// Tolerate individually broken objects; the document may not
			// reference them at all.
			continue
		}
		doc.objects[s.num] = obj
		if s.num > doc.maxObj {
			doc.maxObj = s.num
		}
	}

	doc.trailer = findTrailer(data)
	if root, ok := doc.trailer.Get("Root").(Ref); ok {
		if _, isCatalog := doc.objects[root.Num]; isCatalog {
			doc.catalog = root
		}
	}
	if doc.catalog.Num == 0 {
		// Trailer missing or pointing nowhere (e.g. xref-stream documents):
		// locate the catalog by type.
		nums := doc.sortedObjectNumbers()
		for _, num := range nums {
			if d, ok := doc.objects[num].(*Dict); ok && d.GetName("Type") == "Catalog" {
				doc.catalog = Ref{Num: num}
				break
			}
		}
	}
	if doc.catalog.Num == 0 {
		return nil, ErrNoCatalog
	}
	return doc, nil
}

// findTrailer parses the last trailer dictionary in the file, if any.
func findTrailer(data []byte) *Dict {
	idx := bytes.LastIndex(data, []byte("trailer"))
	for idx >= 0 {
		p := newParser(data, idx+len("trailer"))
		p.skipWhitespace()
		if b, err := p.peekByte(); err == nil && b == '<' {
			if obj, err := p.parseObjectOrRef(); err == nil {
				if d, ok := obj.(*Dict); ok {
					return d
				}
			}
		}
		idx = bytes.LastIndex(data[:idx], []byte("trailer"))
	}
	return NewDict()
}

// New creates an empty document with a catalog and page tree. It exists for
// building fixture and certificate documents programmatically.
func New() *Document {
	doc := &Document{version: "1.7", objects: make(map[int]Object)}
	pages := NewDict()
	pages.Set("Type", Name("Pages"))
	pages.Set("Kids", Array{})
	pages.Set("Count", Integer(0))
	pagesRef := doc.AddObject(pages)

	catalog := NewDict()
	catalog.Set("Type", Name("Catalog"))
	catalog.Set("Pages", pagesRef)
	doc.catalog = doc.AddObject(catalog)

	doc.trailer = NewDict()
	return doc
}

// AddObject registers an object under a fresh number and returns its
// reference.
func (d *Document) AddObject(obj Object) Ref {
	d.maxObj++
	d.objects[d.maxObj] = obj
	return Ref{Num: d.maxObj}
}

// Resolve dereferences an object if it is a reference.
func (d *Document) Resolve(obj Object) Object {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(Ref)
		if !ok {
			return obj
		}
		obj = d.objects[ref.Num]
	}
	return nil
}

// ResolveDict resolves an object down to a dictionary, unwrapping streams.
func (d *Document) ResolveDict(obj Object) *Dict {
	switch v := d.Resolve(obj).(type) {
	case *Dict:
		return v
	case *Stream:
		return v.Dict
	}
	return nil
}

// Catalog returns the document catalog dictionary.
func (d *Document) Catalog() *Dict {
	return d.ResolveDict(d.catalog)
}

// Page is one page of a document with its resolved geometry.
type Page struct {
	Ref  Ref
	Dict *Dict

	doc *Document
}

// MediaBox returns the page's media box, honoring inheritance from the page
// tree. A US Letter box is assumed when nothing is declared.
func (p *Page) MediaBox() Rect {
	node := p.Dict
	for i := 0; node != nil && i < 32; i++ {
		if arr := p.doc.resolveArray(node.Get("MediaBox")); arr != nil {
			if r, ok := RectFromArray(arr); ok {
				return r
			}
		}
		node = p.doc.ResolveDict(node.Get("Parent"))
	}
	return Rect{URX: 612, URY: 792}
}

func (d *Document) resolveArray(obj Object) Array {
	if a, ok := d.Resolve(obj).(Array); ok {
		return a
	}
	return nil
}

// Pages returns the document's pages in tree order.
func (d *Document) Pages() []*Page {
	catalog := d.Catalog()
	if catalog == nil {
		return nil
	}
	rootRef, ok := catalog.Get("Pages").(Ref)
	if !ok {
		return nil
	}
	var pages []*Page
	visited := make(map[int]bool)
	d.collectPages(rootRef, visited, &pages)
	return pages
}

func (d *Document) collectPages(ref Ref, visited map[int]bool, out *[]*Page) {
	if visited[ref.Num] {
		return
	}
	visited[ref.Num] = true
	node := d.ResolveDict(ref)
	if node == nil {
		return
	}
	switch node.GetName("Type") {
	case "Page":
		*out = append(*out, &Page{Ref: ref, Dict: node, doc: d})
	case "Pages":
		for _, kid := range d.resolveArray(node.Get("Kids")) {
			if kidRef, ok := kid.(Ref); ok {
				d.collectPages(kidRef, visited, out)
			}
		}
	}
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages())
}

// AddPage appends a fresh empty page of the given size and returns it.
func (d *Document) AddPage(width, height float64) *Page {
	pagesRef, _ := d.Catalog().Get("Pages").(Ref)
	pagesNode := d.ResolveDict(pagesRef)

	page := NewDict()
	page.Set("Type", Name("Page"))
	page.Set("Parent", pagesRef)
	page.Set("MediaBox", Rect{URX: width, URY: height}.ToArray())
	page.Set("Resources", NewDict())
	ref := d.AddObject(page)

	kids := d.resolveArray(pagesNode.Get("Kids"))
	pagesNode.Set("Kids", append(kids, ref))
	pagesNode.Set("Count", Integer(len(kids)+1))

	return &Page{Ref: ref, Dict: page, doc: d}
}

// AddContent appends a content stream to the page, after any existing
// content.
func (d *Document) AddContent(page *Page, ops []byte) {
	stream := NewStream(nil, ops)
	ref := d.AddObject(stream)

	switch contents := page.Dict.Get("Contents").(type) {
	case nil:
		page.Dict.Set("Contents", Array{ref})
	case Ref:
		page.Dict.Set("Contents", Array{contents, ref})
	case Array:
		page.Dict.Set("Contents", append(contents, ref))
	default:
		page.Dict.Set("Contents", Array{ref})
	}
}

// pageResources returns the page's Resources dictionary, creating a local one
// when the page has none of its own.
func (d *Document) pageResources(page *Page) *Dict {
	if res := d.ResolveDict(page.Dict.Get("Resources")); res != nil {
		return res
	}
	res := NewDict()
	page.Dict.Set("Resources", res)
	return res
}

// EnsurePageFont registers a standard Type1 font under the given resource
// name on the page, if not already present.
func (d *Document) EnsurePageFont(page *Page, resName, baseFont string) {
	res := d.pageResources(page)
	fonts := d.ResolveDict(res.Get("Font"))
	if fonts == nil {
		fonts = NewDict()
		res.Set("Font", fonts)
	}
	if fonts.Has(resName) {
		return
	}
	font := NewDict()
	font.Set("Type", Name("Font"))
	font.Set("Subtype", Name("Type1"))
	font.Set("BaseFont", Name(baseFont))
	fonts.Set(resName, d.AddObject(font))
}

// AddPageXObject registers a form or image XObject on the page under a fresh
// resource name and returns that name.
func (d *Document) AddPageXObject(page *Page, prefix string, obj Object) string {
	res := d.pageResources(page)
	xobjects := d.ResolveDict(res.Get("XObject"))
	if xobjects == nil {
		xobjects = NewDict()
		res.Set("XObject", xobjects)
	}
	name := prefix
	for i := 0; xobjects.Has(name); i++ {
		name = fmt.Sprintf("%s%d", prefix, i)
	}
	xobjects.Set(name, d.AddObject(obj))
	return name
}

// AppendPagesFrom grafts every page of the other document onto the end of
// this one, copying the transitive closure of objects each page needs.
func (d *Document) AppendPagesFrom(other *Document) error {
	pagesRef, ok := d.Catalog().Get("Pages").(Ref)
	if !ok {
		return ErrNoPages
	}
	pagesNode := d.ResolveDict(pagesRef)
	if pagesNode == nil {
		return ErrNoPages
	}

	mapping := make(map[int]int)
	for _, page := range other.Pages() {
		box := page.MediaBox()
		newRef := d.adoptObject(other, page.Ref, mapping)
		pageDict := d.ResolveDict(newRef)
		if pageDict == nil {
			continue
		}
		pageDict.Set("Parent", pagesRef)
		pageDict.Set("MediaBox", box.ToArray())

		kids := d.resolveArray(pagesNode.Get("Kids"))
		pagesNode.Set("Kids", append(kids, newRef))
		pagesNode.Set("Count", Integer(len(kids)+1))
	}
	return nil
}

// adoptObject copies an object graph from another document into this one,
// rewriting references. The Parent link is intentionally not followed so a
// page adoption never drags in the source page tree.
func (d *Document) adoptObject(other *Document, ref Ref, mapping map[int]int) Ref {
	if num, ok := mapping[ref.Num]; ok {
		return Ref{Num: num}
	}
	src, ok := other.objects[ref.Num]
	if !ok {
		// Dangling reference in the source; keep a null placeholder.
		return d.AddObject(Null{})
	}
	d.maxObj++
	num := d.maxObj
	mapping[ref.Num] = num
	d.objects[num] = d.adoptValue(other, src, mapping)
	return Ref{Num: num}
}

func (d *Document) adoptValue(other *Document, obj Object, mapping map[int]int) Object {
	switch v := obj.(type) {
	case Ref:
		return d.adoptObject(other, v, mapping)
	case Array:
		out := make(Array, len(v))
		for i, item := range v {
			out[i] = d.adoptValue(other, item, mapping)
		}
		return out
	case *Dict:
		out := NewDict()
		for _, key := range v.Keys() {
			if key == "Parent" {
				continue
			}
			out.Set(key, d.adoptValue(other, v.Get(key), mapping))
		}
		return out
	case *Stream:
		data := make([]byte, len(v.Data))
		copy(data, v.Data)
		dict, _ := d.adoptValue(other, v.Dict, mapping).(*Dict)
		return &Stream{Dict: dict, Data: data}
	case *String:
		val := make([]byte, len(v.Value))
		copy(val, v.Value)
		return &String{Value: val, Hex: v.Hex}
	default:
		return obj
	}
}

func (d *Document) sortedObjectNumbers() []int {
	nums := make([]int, 0, len(d.objects))
	for num := range d.objects {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

// Bytes serializes the document as a complete PDF file.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", d.version)
	buf.Write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'})

	nums := d.sortedObjectNumbers()
	offsets := make(map[int]int64, len(nums))
	for _, num := range nums {
		offsets[num] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n", num)
		if err := d.objects[num].Write(&buf); err != nil {
			return nil, fmt.Errorf("write object %d: %w", num, err)
		}
		buf.WriteString("\nendobj\n")
	}

	xrefOffset := int64(buf.Len())
	buf.WriteString("xref\n")
	buf.WriteString("0 1\n0000000000 65535 f \n")
	// Sparse object numbers are written as separate subsections.
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(&buf, "%d %d\n", nums[i], j-i+1)
		for _, num := range nums[i : j+1] {
			fmt.Fprintf(&buf, "%010d %05d n \n", offsets[num], 0)
		}
		i = j + 1
	}

	trailer := NewDict()
	trailer.Set("Size", Integer(d.maxObj+1))
	trailer.Set("Root", d.catalog)
	if info, ok := d.trailer.Get("Info").(Ref); ok {
		if _, exists := d.objects[info.Num]; exists {
			trailer.Set("Info", info)
		}
	}
	id := md5.Sum(buf.Bytes())
	trailer.Set("ID", Array{NewHexString(id[:]), NewHexString(id[:])})

	buf.WriteString("trailer\n")
	if err := trailer.Write(&buf); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes(), nil
}
