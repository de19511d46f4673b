package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/praetorian-inc/locus/pkg/types"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputJSON   = "json"
	OutputPretty = "pretty"
	OutputYAML   = "yaml"
)

// Encoder writes values in one of the output formats.
type Encoder struct {
	w      io.Writer
	format string
	yaml   *yaml.Encoder
}

// NewEncoder creates an encoder writing format to w.
//
//	json    one compact value per line
//	pretty  indented JSON, one value after another
//	yaml    one YAML document per value
func NewEncoder(w io.Writer, format string) (*Encoder, error) {
	e := &Encoder{w: w, format: format}
	switch format {
	case OutputJSON, OutputPretty:
	case OutputYAML:
		e.yaml = yaml.NewEncoder(w)
		e.yaml.SetIndent(2)
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s, %s or %s)", format, OutputJSON, OutputPretty, OutputYAML)
	}
	return e, nil
}

// Encode writes v.
func (e *Encoder) Encode(v types.Value) error {
	if e.yaml != nil {
		if err := e.yaml.Encode(ToYAMLNode(v)); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return nil
	}

	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	if e.format == OutputPretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return fmt.Errorf("indenting json: %w", err)
		}
		data = buf.Bytes()
	}

	data = append(data, '\n')
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// Close flushes any buffered output.
func (e *Encoder) Close() error {
	if e.yaml != nil {
		return e.yaml.Close()
	}
	return nil
}
