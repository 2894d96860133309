package pdf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) Object {
	t.Helper()
	obj, err := newParser([]byte(src), 0).parseObjectOrRef()
	require.NoError(t, err)
	return obj
}

func TestParseScalars(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Object
	}{
		{"integer", "42", Integer(42)},
		{"negative integer", "-7", Integer(-7)},
		{"real", "3.25", Real(3.25)},
		{"leading dot real", ".5", Real(0.5)},
		{"bool true", "true", Bool(true)},
		{"bool false", "false", Bool(false)},
		{"null", "null", Null{}},
		{"name", "/Type", Name("Type")},
		{"name with hex escape", "/A#20B", Name("A B")},
		{"reference", "12 0 R", Ref{Num: 12, Gen: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOne(t, tt.src))
		})
	}
}

func TestParseLiteralString(t *testing.T) {
	obj := parseOne(t, `(he\)ll\157 (nested))`)
	s, ok := obj.(*String)
	require.True(t, ok)
	assert.Equal(t, "he)llo (nested)", string(s.Value))
	assert.False(t, s.Hex)
}

func TestParseHexString(t *testing.T) {
	obj := parseOne(t, "<48656C6C6F>")
	s, ok := obj.(*String)
	require.True(t, ok)
	assert.Equal(t, "Hello", string(s.Value))
	assert.True(t, s.Hex)
}

func TestParseHexStringOddDigits(t *testing.T) {
	obj := parseOne(t, "<48656C6C6F2>")
	s, ok := obj.(*String)
	require.True(t, ok)
	assert.Equal(t, "Hello ", string(s.Value))
}

func TestParseArray(t *testing.T) {
	obj := parseOne(t, "[1 2.5 /Foo (bar) 3 0 R]")
	arr, ok := obj.(Array)
	require.True(t, ok)
	require.Len(t, arr, 5)
	assert.Equal(t, Integer(1), arr[0])
	assert.Equal(t, Real(2.5), arr[1])
	assert.Equal(t, Name("Foo"), arr[2])
	assert.Equal(t, Ref{Num: 3}, arr[4])
}

func TestParseDict(t *testing.T) {
	obj := parseOne(t, "<< /Type /Page /MediaBox [0 0 612 792] /Parent 2 0 R >>")
	dict, ok := obj.(*Dict)
	require.True(t, ok)
	assert.Equal(t, "Page", dict.GetName("Type"))
	assert.Len(t, dict.GetArray("MediaBox"), 4)
	assert.Equal(t, Ref{Num: 2}, dict.Get("Parent"))
}

func TestParseDictSkipsComments(t *testing.T) {
	obj := parseOne(t, "<< /A 1 % a comment\n/B 2 >>")
	dict, ok := obj.(*Dict)
	require.True(t, ok)
	a, _ := dict.GetInt("A")
	b, _ := dict.GetInt("B")
	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(2), b)
}

func TestParseStreamBody(t *testing.T) {
	src := "<< /Length 5 >>\nstream\nhello\nendstream\nendobj"
	obj, err := newParser([]byte(src), 0).parseIndirectBody(nil)
	require.NoError(t, err)
	stream, ok := obj.(*Stream)
	require.True(t, ok)
	assert.Equal(t, "hello", string(stream.Data))
}

func TestParseStreamIndirectLength(t *testing.T) {
	src := "<< /Length 9 0 R >>\nstream\nhello\nendstream"
	resolve := func(r Ref) (int64, bool) {
		if r.Num == 9 {
			return 5, true
		}
		return 0, false
	}
	obj, err := newParser([]byte(src), 0).parseIndirectBody(resolve)
	require.NoError(t, err)
	stream, ok := obj.(*Stream)
	require.True(t, ok)
	assert.Equal(t, "hello", string(stream.Data))
}

func TestParseStreamBadLengthFallsBackToScan(t *testing.T) {
	src := "<< /Length 9999 >>\nstream\nhello\nendstream"
	obj, err := newParser([]byte(src), 0).parseIndirectBody(nil)
	require.NoError(t, err)
	stream, ok := obj.(*Stream)
	require.True(t, ok)
	assert.Equal(t, "hello", string(stream.Data))
}

func TestWriteRoundTrip(t *testing.T) {
	dict := NewDict()
	dict.Set("Type", Name("Page"))
	dict.Set("Count", Integer(3))
	dict.Set("Box", Array{Real(0), Real(0), Real(612.5), Real(792)})
	dict.Set("Title", NewString("a (test) \\ title"))

	var buf bytes.Buffer
	require.NoError(t, dict.Write(&buf))

	back := parseOne(t, buf.String())
	got, ok := back.(*Dict)
	require.True(t, ok)
	assert.Equal(t, "Page", got.GetName("Type"))
	s, okStr := got.Get("Title").(*String)
	require.True(t, okStr)
	assert.Equal(t, "a (test) \\ title", string(s.Value))
}
