// Package codec reads input items and writes output values.
package codec

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/praetorian-inc/locus/pkg/types"
)

// Input formats.
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Decoder yields one item at a time. Next returns io.EOF after the last item.
type Decoder interface {
	Next() (types.Value, error)

	// Source returns the text read so far. Item spans point into it.
	Source() []byte
}

// NewDecoder creates a decoder for format over r.
//
// JSON input is either a stream of values (NDJSON or whitespace separated)
// or a single top-level array whose elements are the items. YAML input is a
// stream of documents, and a lone document holding a sequence yields its
// elements. Auto picks JSON when the first non-blank byte starts an object,
// array, string or number, and YAML otherwise.
func NewDecoder(r io.Reader, format string) (Decoder, error) {
	br := bufio.NewReader(r)

	if format == FormatAuto || format == "" {
		format = sniff(br)
	}

	switch format {
	case FormatJSON:
		return &jsonDecoder{dec: types.NewJSONDecoder(br)}, nil
	case FormatYAML:
		return newYAMLDecoder(br)
	default:
		return nil, fmt.Errorf("unknown input format %q (want %s, %s or %s)", format, FormatAuto, FormatJSON, FormatYAML)
	}
}

// sniff peeks at the first non-blank byte without consuming input.
func sniff(br *bufio.Reader) string {
	for n := 1; ; n++ {
		buf, _ := br.Peek(n)
		if len(buf) < n {
			return FormatJSON
		}
		switch c := buf[n-1]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			continue
		case c == '{' || c == '[' || c == '"' || (c >= '0' && c <= '9'):
			return FormatJSON
		case c == '-':
			// "-1" is a JSON number, "---" or "- a" is YAML.
			if next, _ := br.Peek(n + 1); len(next) > n && next[n] >= '0' && next[n] <= '9' {
				return FormatJSON
			}
			return FormatYAML
		default:
			return FormatYAML
		}
	}
}

type jsonState int

const (
	jsonStart jsonState = iota
	jsonStream
	jsonArray
	jsonDone
)

type jsonDecoder struct {
	dec     *types.JSONDecoder
	state   jsonState
	pending []types.Value
}

func (d *jsonDecoder) Source() []byte {
	return d.dec.Source()
}

func (d *jsonDecoder) Next() (types.Value, error) {
	switch d.state {
	case jsonStart:
		if !d.dec.More() {
			d.state = jsonDone
			return types.Value{}, io.EOF
		}
		v, err := d.decode()
		if err != nil {
			return types.Value{}, err
		}
		if items, ok := v.AsList(); ok && !d.dec.More() {
			d.state = jsonArray
			d.pending = items
			return d.Next()
		}
		d.state = jsonStream
		return v, nil

	case jsonStream:
		if !d.dec.More() {
			d.state = jsonDone
			return types.Value{}, io.EOF
		}
		return d.decode()

	case jsonArray:
		if len(d.pending) == 0 {
			d.state = jsonDone
			return types.Value{}, io.EOF
		}
		v := d.pending[0]
		d.pending = d.pending[1:]
		return v, nil

	default:
		return types.Value{}, io.EOF
	}
}

func (d *jsonDecoder) decode() (types.Value, error) {
	v, err := d.dec.Decode()
	if err == nil {
		return v, nil
	}

	d.state = jsonDone
	if errors.Is(err, io.EOF) {
		return types.Value{}, fmt.Errorf("decoding json: %w", io.ErrUnexpectedEOF)
	}
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return types.Value{}, fmt.Errorf("decoding json at offset %d: %w", syntax.Offset, err)
	}
	return types.Value{}, fmt.Errorf("decoding json: %w", err)
}
