package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/praetorian-inc/locus/pkg/types"
	"gopkg.in/yaml.v3"
)

type yamlDecoder struct {
	src     []byte
	dec     *yaml.Decoder
	pending []types.Value
	started bool
	done    bool

	peeked   bool
	peekNode *yaml.Node
	peekErr  error
}

// newYAMLDecoder reads r fully: node positions are line based, and spans
// are resolved against the whole text.
func newYAMLDecoder(r io.Reader) (*yamlDecoder, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading yaml input: %w", err)
	}
	return &yamlDecoder{src: src, dec: yaml.NewDecoder(bytes.NewReader(src))}, nil
}

func (d *yamlDecoder) Source() []byte {
	return d.src
}

func (d *yamlDecoder) Next() (types.Value, error) {
	if len(d.pending) > 0 {
		v := d.pending[0]
		d.pending = d.pending[1:]
		return v, nil
	}
	if d.done {
		return types.Value{}, io.EOF
	}

	doc, err := d.nextDoc()
	if err != nil {
		d.done = true
		if errors.Is(err, io.EOF) {
			return types.Value{}, io.EOF
		}
		return types.Value{}, fmt.Errorf("decoding yaml: %w", err)
	}

	v, err := FromYAMLNode(doc, d.src)
	if err != nil {
		d.done = true
		return types.Value{}, err
	}

	if !d.started {
		d.started = true
		// A lone sequence document: its elements are the items.
		if items, ok := v.AsList(); ok {
			if _, err := d.peekDoc(); errors.Is(err, io.EOF) {
				d.pending = items
				return d.Next()
			}
		}
	}
	return v, nil
}

func (d *yamlDecoder) nextDoc() (*yaml.Node, error) {
	if d.peeked {
		d.peeked = false
		return d.peekNode, d.peekErr
	}
	var doc yaml.Node
	if err := d.dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *yamlDecoder) peekDoc() (*yaml.Node, error) {
	if !d.peeked {
		d.peekNode, d.peekErr = d.nextDoc()
		d.peeked = true
	}
	return d.peekNode, d.peekErr
}

// FromYAMLNode converts a parsed YAML node into a Value. Spans are
// resolved against src, the text the node was parsed from.
func FromYAMLNode(n *yaml.Node, src []byte) (types.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return types.Nothing(), nil
		}
		return FromYAMLNode(n.Content[0], src)

	case yaml.AliasNode:
		v, err := FromYAMLNode(n.Alias, src)
		if err != nil {
			return types.Value{}, err
		}
		return v.WithSpan(nodeSpan(n, src, len(n.Value)+1)), nil

	case yaml.SequenceNode:
		items := make([]types.Value, len(n.Content))
		span := nodeSpan(n, src, 1)
		for i, child := range n.Content {
			v, err := FromYAMLNode(child, src)
			if err != nil {
				return types.Value{}, err
			}
			items[i] = v
			span = span.Merge(v.Span)
		}
		return types.List(items...).WithSpan(span), nil

	case yaml.MappingNode:
		rec := &types.Record{}
		span := nodeSpan(n, src, 1)
		for i := 0; i+1 < len(n.Content); i += 2 {
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return types.Value{}, fmt.Errorf("decoding yaml key at line %d: %w", n.Content[i].Line, err)
			}
			v, err := FromYAMLNode(n.Content[i+1], src)
			if err != nil {
				return types.Value{}, err
			}
			span = span.Merge(v.Span)
			if idx := rec.Index(key); idx >= 0 {
				rec.Vals[idx] = v
				continue
			}
			rec.Cols = append(rec.Cols, key)
			rec.Vals = append(rec.Vals, v)
		}
		return types.RecordValue(rec).WithSpan(span), nil

	case yaml.ScalarNode:
		v, err := scalar(n)
		if err != nil {
			return types.Value{}, err
		}
		width := len(n.Value)
		if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			width += 2
		}
		return v.WithSpan(nodeSpan(n, src, width)), nil

	default:
		return types.Value{}, fmt.Errorf("unsupported yaml node kind %d at line %d", n.Kind, n.Line)
	}
}

func scalar(n *yaml.Node) (types.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return types.Nothing(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return types.Value{}, err
		}
		return types.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return types.Int(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return types.Value{}, fmt.Errorf("decoding yaml int at line %d: %w", n.Line, err)
		}
		return types.Uint(u), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return types.Value{}, fmt.Errorf("decoding yaml float at line %d: %w", n.Line, err)
		}
		return types.Float(f), nil
	default:
		return types.String(n.Value), nil
	}
}

// nodeSpan locates n in src. YAML columns count characters, so the column
// is walked rune by rune from the start of the line.
func nodeSpan(n *yaml.Node, src []byte, width int) types.Span {
	off := types.ComputeOffset(src, n.Line, 1)
	for col := 1; col < n.Column && off < len(src) && src[off] != '\n'; col++ {
		_, size := utf8.DecodeRune(src[off:])
		off += size
	}
	end := off + width
	if end > len(src) {
		end = len(src)
	}
	return types.Span{Start: off, End: end}
}

// ToYAMLNode converts v into a YAML node, keeping record column order.
func ToYAMLNode(v types.Value) *yaml.Node {
	switch v.Kind() {
	case types.KindBool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
	case types.KindInt:
		i, _ := v.AsInt()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}
	case types.KindUint:
		u, _ := v.AsUint()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(u, 10)}
	case types.KindFloat:
		f, _ := v.AsFloat()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatYAMLFloat(f)}
	case types.KindString:
		s, _ := v.AsString()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	case types.KindList:
		items, _ := v.AsList()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range items {
			n.Content = append(n.Content, ToYAMLNode(item))
		}
		return n
	case types.KindRecord:
		rec, _ := v.AsRecord()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, col := range rec.Cols {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
				ToYAMLNode(rec.Vals[i]),
			)
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		s += ".0"
	}
	return s
}
