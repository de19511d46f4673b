// Package command maps command names to their implementations.
//
// The registry is a static map: every command is listed here explicitly and
// decodes its own options. Options are decoded strictly, so unknown fields
// are rejected rather than ignored.
package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/praetorian-inc/locus/pkg/argmax"
	"github.com/praetorian-inc/locus/pkg/indexof"
	"github.com/praetorian-inc/locus/pkg/types"
)

// Names of the registered commands.
const (
	IndexOf = "str index-of"
	ArgMax  = "dataframe arg-max"
)

// Func transforms one input item into one output value.
type Func func(input types.Value) (types.Value, error)

// Factory builds a Func from raw JSON options.
type Factory func(raw json.RawMessage) (Func, error)

// Registry lists every available command.
var Registry = map[string]Factory{
	IndexOf: func(raw json.RawMessage) (Func, error) {
		var opts indexof.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return func(input types.Value) (types.Value, error) {
			return indexof.Apply(input, opts)
		}, nil
	},
	ArgMax: func(raw json.RawMessage) (Func, error) {
		var opts struct{}
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return argmax.Apply, nil
	},
}

// New looks up name and builds it with the given options.
func New(name string, raw json.RawMessage) (Func, error) {
	factory, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", name)
	}
	fn, err := factory(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s options: %w", name, err)
	}
	return fn, nil
}

// Names returns the registered command names, sorted.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// strictUnmarshal decodes raw into v, rejecting unknown fields. Empty or
// null options leave v at its zero value.
func strictUnmarshal(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
