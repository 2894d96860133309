package pdf

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Parsing errors.
var (
	ErrInvalidObject = errors.New("invalid PDF object")
	ErrInvalidString = errors.New("invalid PDF string")
	ErrInvalidDict   = errors.New("invalid PDF dictionary")
	ErrInvalidArray  = errors.New("invalid PDF array")
	ErrInvalidNumber = errors.New("invalid PDF number")
)

// parser reads PDF objects out of an in-memory byte slice. It is tolerant:
// stream lengths given as unresolved references fall back to scanning for the
// endstream keyword.
type parser struct {
	data []byte
	pos  int
}

func newParser(data []byte, pos int) *parser {
	return &parser{data: data, pos: pos}
}

func (p *parser) readByte() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, io.EOF
	}
	b := p.data[p.pos]
	p.pos++
	return b, nil
}

func (p *parser) unreadByte() {
	if p.pos > 0 {
		p.pos--
	}
}

func (p *parser) peekByte() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, io.EOF
	}
	return p.data[p.pos], nil
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\x00' || b == '\x0c'
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// skipWhitespace skips whitespace and % comments.
func (p *parser) skipWhitespace() {
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		if isWhitespace(b) {
			p.pos++
			continue
		}
		if b == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		return
	}
}

func (p *parser) readToken() string {
	p.skipWhitespace()
	start := p.pos
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// parseObject parses a direct object at the current position.
func (p *parser) parseObject() (Object, error) {
	p.skipWhitespace()
	b, err := p.peekByte()
	if err != nil {
		return nil, err
	}
	switch {
	case b == '(':
		return p.parseLiteralString()
	case b == '<':
		return p.parseHexOrDict()
	case b == '[':
		return p.parseArray()
	case b == '/':
		return p.parseName()
	case b == 't' || b == 'f':
		return p.parseBool()
	case b == 'n':
		if p.readToken() != "null" {
			return nil, fmt.Errorf("%w: expected null", ErrInvalidObject)
		}
		return Null{}, nil
	case b == '-' || b == '+' || b == '.' || (b >= '0' && b <= '9'):
		return p.parseNumber()
	}
	return nil, fmt.Errorf("%w: unexpected character %q", ErrInvalidObject, b)
}

// parseObjectOrRef parses an object, recognizing "N G R" references with
// backtracking.
func (p *parser) parseObjectOrRef() (Object, error) {
	p.skipWhitespace()
	b, err := p.peekByte()
	if err != nil {
		return nil, err
	}
	if b < '0' || b > '9' {
		return p.parseObject()
	}

	start := p.pos
	first, err := p.parseNumber()
	if err != nil {
		return nil, err
	}
	num, ok := first.(Integer)
	if !ok {
		return first, nil
	}

	save := p.pos
	p.skipWhitespace()
	b, err = p.peekByte()
	if err != nil || b < '0' || b > '9' {
		p.pos = save
		return first, nil
	}
	second, err := p.parseNumber()
	if err != nil {
		p.pos = save
		return first, nil
	}
	gen, ok := second.(Integer)
	if !ok {
		p.pos = save
		return first, nil
	}
	p.skipWhitespace()
	b, err = p.peekByte()
	if err == nil && b == 'R' {
		p.pos++
		return Ref{Num: int(num), Gen: int(gen)}, nil
	}
	// Two plain numbers in a row; re-parse from the start so the second one
	// is available to the caller.
	p.pos = start
	return p.parseNumber()
}

func (p *parser) parseLiteralString() (*String, error) {
	if b, _ := p.readByte(); b != '(' {
		return nil, ErrInvalidString
	}
	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		b, err := p.readByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated string", ErrInvalidString)
		}
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\\':
			esc, err := p.readByte()
			if err != nil {
				return nil, fmt.Errorf("%w: unterminated escape", ErrInvalidString)
			}
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(esc)
			case '\r':
				if nb, err := p.peekByte(); err == nil && nb == '\n' {
					p.pos++
				}
			case '\n':
				// line continuation
			default:
				if esc >= '0' && esc <= '7' {
					oct := []byte{esc}
					for i := 0; i < 2; i++ {
						nb, err := p.peekByte()
						if err != nil || nb < '0' || nb > '7' {
							break
						}
						p.pos++
						oct = append(oct, nb)
					}
					v, _ := strconv.ParseInt(string(oct), 8, 16)
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(esc)
				}
			}
		default:
			buf.WriteByte(b)
		}
	}
	return &String{Value: buf.Bytes()}, nil
}

func (p *parser) parseHexOrDict() (Object, error) {
	p.pos++ // consume '<'
	b, err := p.peekByte()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated", ErrInvalidObject)
	}
	if b == '<' {
		p.pos++
		return p.parseDict()
	}
	return p.parseHexString()
}

func (p *parser) parseHexString() (*String, error) {
	var buf bytes.Buffer
	for {
		b, err := p.readByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated hex string", ErrInvalidString)
		}
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		buf.WriteByte(b)
	}
	s := buf.String()
	if len(s)%2 != 0 {
		s += "0"
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidString, err)
	}
	return &String{Value: data, Hex: true}, nil
}

// parseDict parses dictionary entries after << has been consumed.
func (p *parser) parseDict() (*Dict, error) {
	dict := NewDict()
	for {
		p.skipWhitespace()
		b, err := p.peekByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated", ErrInvalidDict)
		}
		if b == '>' {
			p.pos++
			if nb, err := p.readByte(); err != nil || nb != '>' {
				return nil, fmt.Errorf("%w: expected >>", ErrInvalidDict)
			}
			return dict, nil
		}
		key, err := p.parseName()
		if err != nil {
			return nil, fmt.Errorf("%w: bad key: %v", ErrInvalidDict, err)
		}
		value, err := p.parseObjectOrRef()
		if err != nil {
			return nil, fmt.Errorf("%w: bad value for key %s: %v", ErrInvalidDict, key, err)
		}
		dict.Set(string(key), value)
	}
}

func (p *parser) parseArray() (Array, error) {
	p.pos++ // consume '['
	var arr Array
	for {
		p.skipWhitespace()
		b, err := p.peekByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated", ErrInvalidArray)
		}
		if b == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.parseObjectOrRef()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArray, err)
		}
		arr = append(arr, obj)
	}
}

func (p *parser) parseName() (Name, error) {
	b, err := p.readByte()
	if err != nil || b != '/' {
		return "", fmt.Errorf("%w: expected name", ErrInvalidObject)
	}
	var buf bytes.Buffer
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		p.pos++
		if b == '#' && p.pos+1 < len(p.data) {
			v, err := strconv.ParseInt(string(p.data[p.pos:p.pos+2]), 16, 16)
			if err == nil {
				buf.WriteByte(byte(v))
				p.pos += 2
				continue
			}
		}
		buf.WriteByte(b)
	}
	return Name(buf.String()), nil
}

func (p *parser) parseBool() (Bool, error) {
	switch p.readToken() {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected boolean", ErrInvalidObject)
}

func (p *parser) parseNumber() (Object, error) {
	var buf bytes.Buffer
	real := false
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		switch {
		case b >= '0' && b <= '9':
			buf.WriteByte(b)
		case b == '.':
			if real {
				goto done
			}
			real = true
			buf.WriteByte(b)
		case b == '-' || b == '+':
			if buf.Len() > 0 {
				goto done
			}
			buf.WriteByte(b)
		default:
			goto done
		}
		p.pos++
	}
done:
	s := buf.String()
	if s == "" || s == "-" || s == "+" || s == "." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	if real {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidNumber, err)
		}
		return Real(v), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNumber, err)
	}
	return Integer(v), nil
}

// parseIndirectBody parses the object body after "N G obj", including stream
// data when present. resolveLength resolves an indirect /Length if needed; it
// may be nil, in which case an endstream scan is used as fallback.
func (p *parser) parseIndirectBody(resolveLength func(Ref) (int64, bool)) (Object, error) {
	obj, err := p.parseObjectOrRef()
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(*Dict)
	if !ok {
		return obj, nil
	}

	save := p.pos
	p.skipWhitespace()
	if tok := p.readToken(); tok != "stream" {
		p.pos = save
		return dict, nil
	}

	// Stream data starts after an EOL following the stream keyword.
	if b, err := p.peekByte(); err == nil && b == '\r' {
		p.pos++
	}
	if b, err := p.peekByte(); err == nil && b == '\n' {
		p.pos++
	}

	length := int64(-1)
	switch v := dict.Get("Length").(type) {
	case Integer:
		length = int64(v)
	case Ref:
		if resolveLength != nil {
			if l, ok := resolveLength(v); ok {
				length = l
			}
		}
	}
	if length < 0 || p.pos+int(length) > len(p.data) {
		// Fall back to scanning for the endstream keyword.
		idx := bytes.Index(p.data[p.pos:], []byte("endstream"))
		if idx < 0 {
			return nil, fmt.Errorf("%w: unterminated stream", ErrInvalidObject)
		}
		end := p.pos + idx
		// Trim the EOL preceding the keyword.
		for end > p.pos && (p.data[end-1] == '\n' || p.data[end-1] == '\r') {
			end--
		}
		length = int64(end - p.pos)
	}

	data := make([]byte, length)
	copy(data, p.data[p.pos:p.pos+int(length)])
	p.pos += int(length)
	p.skipWhitespace()
	p.readToken() // endstream
	return &Stream{Dict: dict, Data: data}, nil
}
