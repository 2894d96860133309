// Package pdf is a compact PDF toolkit covering what the sealing pipeline
// needs: loading an existing document, drawing content onto pages, flattening
// interactive layers, grafting pages from another document, and serializing
// the result. It is deliberately not a general-purpose PDF library.
package pdf

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// Object is the interface implemented by every PDF object type.
type Object interface {
	// Write serializes the object in PDF syntax.
	Write(w io.Writer) error
}

// Ref is an indirect reference to a numbered object.
type Ref struct {
	Num int
	Gen int
}

func (r Ref) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d %d R", r.Num, r.Gen)
	return err
}

// Name is a PDF name object, written with a leading slash.
type Name string

func (n Name) Write(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		b := n[i]
		if b <= ' ' || b > '~' || isDelimiter(b) || b == '#' {
			fmt.Fprintf(&buf, "#%02X", b)
			continue
		}
		buf.WriteByte(b)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Integer is a PDF integer.
type Integer int64

func (i Integer) Write(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatInt(int64(i), 10))
	return err
}

// Real is a PDF real number. It is written with minimal precision.
type Real float64

func (r Real) Write(w io.Writer) error {
	_, err := io.WriteString(w, r.String())
	return err
}

// String formats the number the way it appears in content streams.
func (r Real) String() string {
	return strconv.FormatFloat(float64(r), 'f', -1, 64)
}

// Bool is a PDF boolean.
type Bool bool

func (b Bool) Write(w io.Writer) error {
	if b {
		_, err := io.WriteString(w, "true")
		return err
	}
	_, err := io.WriteString(w, "false")
	return err
}

// Null is the PDF null object.
type Null struct{}

func (Null) Write(w io.Writer) error {
	_, err := io.WriteString(w, "null")
	return err
}

// String is a PDF string object, serialized in literal or hex form.
type String struct {
	Value []byte
	Hex   bool
}

// NewString creates a literal string object.
func NewString(s string) *String {
	return &String{Value: []byte(s)}
}

// NewHexString creates a hex string object.
func NewHexString(data []byte) *String {
	return &String{Value: data, Hex: true}
}

func (s *String) Write(w io.Writer) error {
	if s.Hex {
		_, err := fmt.Fprintf(w, "<%s>", hex.EncodeToString(s.Value))
		return err
	}
	var buf bytes.Buffer
	buf.WriteByte('(')
	for _, b := range s.Value {
		switch b {
		case '\\', '(', ')':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if b < 32 || b > 126 {
				fmt.Fprintf(&buf, "\\%03o", b)
			} else {
				buf.WriteByte(b)
			}
		}
	}
	buf.WriteByte(')')
	_, err := w.Write(buf.Bytes())
	return err
}

// Array is a PDF array.
type Array []Object

func (a Array) Write(w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i, item := range a {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		if err := item.Write(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]")
	return err
}

// Dict is a PDF dictionary preserving insertion order on write.
type Dict struct {
	entries map[string]Object
	order   []string
}

// NewDict creates an empty dictionary.
func NewDict() *Dict {
	return &Dict{entries: make(map[string]Object)}
}

func (d *Dict) Write(w io.Writer) error {
	if _, err := io.WriteString(w, "<<"); err != nil {
		return err
	}
	for _, key := range d.order {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := Name(key).Write(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		if err := d.entries[key].Write(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n>>")
	return err
}

// Set stores a key-value pair, keeping first-set ordering.
func (d *Dict) Set(key string, value Object) {
	if _, ok := d.entries[key]; !ok {
		d.order = append(d.order, key)
	}
	d.entries[key] = value
}

// Get returns the raw value for a key, or nil.
func (d *Dict) Get(key string) Object {
	if d == nil {
		return nil
	}
	return d.entries[key]
}

// Delete removes a key if present.
func (d *Dict) Delete(key string) {
	if d == nil {
		return
	}
	if _, ok := d.entries[key]; !ok {
		return
	}
	delete(d.entries, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Has reports whether the key exists.
func (d *Dict) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.entries[key]
	return ok
}

// Keys returns the keys in write order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	return d.order
}

// GetName returns the string value of a name entry, or "".
func (d *Dict) GetName(key string) string {
	if n, ok := d.Get(key).(Name); ok {
		return string(n)
	}
	return ""
}

// GetInt returns an integer entry.
func (d *Dict) GetInt(key string) (int64, bool) {
	switch v := d.Get(key).(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// GetArray returns an array entry, or nil.
func (d *Dict) GetArray(key string) Array {
	if a, ok := d.Get(key).(Array); ok {
		return a
	}
	return nil
}

// GetDict returns a directly embedded dictionary entry, or nil. Indirect
// values must go through Document.ResolveDict.
func (d *Dict) GetDict(key string) *Dict {
	if v, ok := d.Get(key).(*Dict); ok {
		return v
	}
	return nil
}

// Stream is a PDF stream: a dictionary plus raw data. Length is maintained on
// write.
type Stream struct {
	Dict *Dict
	Data []byte
}

// NewStream creates a stream with the given data.
func NewStream(dict *Dict, data []byte) *Stream {
	if dict == nil {
		dict = NewDict()
	}
	return &Stream{Dict: dict, Data: data}
}

func (s *Stream) Write(w io.Writer) error {
	s.Dict.Set("Length", Integer(len(s.Data)))
	if err := s.Dict.Write(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\nstream\n"); err != nil {
		return err
	}
	if _, err := w.Write(s.Data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\nendstream")
	return err
}

// Rect is a PDF rectangle given as lower-left and upper-right corners.
type Rect struct {
	LLX, LLY, URX, URY float64
}

// Width returns the rectangle width.
func (r Rect) Width() float64 { return r.URX - r.LLX }

// Height returns the rectangle height.
func (r Rect) Height() float64 { return r.URY - r.LLY }

// ToArray converts the rectangle to a PDF array.
func (r Rect) ToArray() Array {
	return Array{Real(r.LLX), Real(r.LLY), Real(r.URX), Real(r.URY)}
}

// RectFromArray reads a rectangle from a 4-element numeric array.
func RectFromArray(a Array) (Rect, bool) {
	if len(a) != 4 {
		return Rect{}, false
	}
	var v [4]float64
	for i, obj := range a {
		f, ok := numericValue(obj)
		if !ok {
			return Rect{}, false
		}
		v[i] = f
	}
	return Rect{LLX: v[0], LLY: v[1], URX: v[2], URY: v[3]}, true
}

func numericValue(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// EscapeString escapes a string for inclusion in a literal-string content
// stream operand such as (text) Tj.
func EscapeString(s string) string {
	var buf bytes.Buffer
	for _, c := range []byte(s) {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.String()
}
