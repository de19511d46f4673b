package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// JSONDecoder reads Values from a JSON token stream and records the byte
// span of every value it produces.
type JSONDecoder struct {
	dec *json.Decoder
	src *bytes.Buffer
}

// NewJSONDecoder creates a decoder over r. Everything read from r is kept so
// spans can be resolved against it.
func NewJSONDecoder(r io.Reader) *JSONDecoder {
	src := &bytes.Buffer{}
	dec := json.NewDecoder(io.TeeReader(r, src))
	dec.UseNumber()
	return &JSONDecoder{dec: dec, src: src}
}

// More reports whether another value follows in the current array, object
// or top-level stream.
func (d *JSONDecoder) More() bool {
	return d.dec.More()
}

// Source returns the bytes consumed so far.
func (d *JSONDecoder) Source() []byte {
	return d.src.Bytes()
}

// Decode reads the next complete value.
func (d *JSONDecoder) Decode() (Value, error) {
	tok, start, err := d.token()
	if err != nil {
		return Value{}, err
	}
	return d.value(tok, start)
}

// Token reads the next raw token. Callers use it to step into a top-level
// array before decoding its elements one at a time.
func (d *JSONDecoder) Token() (json.Token, error) {
	tok, _, err := d.token()
	return tok, err
}

func (d *JSONDecoder) token() (json.Token, int, error) {
	before := int(d.dec.InputOffset())
	tok, err := d.dec.Token()
	if err != nil {
		return nil, 0, err
	}
	return tok, d.skipSeparators(before), nil
}

// skipSeparators advances off past whitespace and the ',' and ':' tokens the
// json package consumes silently.
func (d *JSONDecoder) skipSeparators(off int) int {
	b := d.src.Bytes()
	for off < len(b) {
		switch b[off] {
		case ' ', '\t', '\n', '\r', ',', ':':
			off++
		default:
			return off
		}
	}
	return off
}

func (d *JSONDecoder) end() int {
	return int(d.dec.InputOffset())
}

func (d *JSONDecoder) value(tok json.Token, start int) (Value, error) {
	var v Value
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			items := make([]Value, 0)
			for d.dec.More() {
				item, err := d.Decode()
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := d.dec.Token(); err != nil {
				return Value{}, err
			}
			v = List(items...)
		case '{':
			rec := &Record{}
			for d.dec.More() {
				keyTok, _, err := d.token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("expected object key at offset %d, got %v", start, keyTok)
				}
				item, err := d.Decode()
				if err != nil {
					return Value{}, err
				}
				if i := rec.Index(key); i >= 0 {
					rec.Vals[i] = item
					continue
				}
				rec.Cols = append(rec.Cols, key)
				rec.Vals = append(rec.Vals, item)
			}
			if _, err := d.dec.Token(); err != nil {
				return Value{}, err
			}
			v = RecordValue(rec)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q at offset %d", rune(t), start)
		}
	case string:
		v = String(t)
	case json.Number:
		v = parseNumber(t)
	case bool:
		v = Bool(t)
	case nil:
		v = Nothing()
	default:
		return Value{}, fmt.Errorf("unexpected token %v at offset %d", tok, start)
	}
	return v.WithSpan(Span{Start: start, End: d.end()}), nil
}

func parseNumber(n json.Number) Value {
	if i, err := n.Int64(); err == nil {
		return Int(i)
	}
	if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return Uint(u)
	}
	f, _ := n.Float64()
	return Float(f)
}
