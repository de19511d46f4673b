// Package indexof implements "str index-of": the byte offset of a literal
// pattern in a string, or in string cells of structured values.
package indexof

import (
	"github.com/praetorian-inc/locus/pkg/cellpath"
	"github.com/praetorian-inc/locus/pkg/locate"
	"github.com/praetorian-inc/locus/pkg/rangespec"
	"github.com/praetorian-inc/locus/pkg/types"
)

// Options configures a single index-of invocation.
type Options struct {
	// Pattern is the literal to search for.
	Pattern string `json:"pattern"`

	// Range restricts the search window. Nil searches the whole string.
	Range *rangespec.RawRange `json:"range,omitempty"`

	// End reports the last occurrence instead of the first.
	End bool `json:"end,omitempty"`

	// Paths selects the cells to operate on. Empty means the input itself.
	Paths []cellpath.Path `json:"paths,omitempty"`
}

// Direction returns the search direction selected by End.
func (o Options) Direction() locate.Direction {
	if o.End {
		return locate.Backward
	}
	return locate.Forward
}

// Apply runs index-of over input.
//
// Without paths the input must be a string and the result is an int.
// With paths each addressed cell is replaced by its result; paths are applied
// one after another, each to the output of the previous one. The input is
// never modified.
func Apply(input types.Value, opts Options) (types.Value, error) {
	if len(opts.Paths) == 0 {
		return applyCell(input, opts)
	}

	out := input
	for _, p := range opts.Paths {
		var err error
		out, err = cellpath.Update(out, p, func(cell types.Value) (types.Value, error) {
			return applyCell(cell, opts)
		})
		if err != nil {
			return types.Value{}, err
		}
	}
	return out, nil
}

func applyCell(cell types.Value, opts Options) (types.Value, error) {
	// The range is validated before the type check: non-strings count as
	// empty, so a bad range is reported first.
	s, _ := cell.AsString()

	w, err := rangespec.Resolve(opts.Range, len(s))
	if err != nil {
		return types.Value{}, err
	}

	idx, err := locate.Locate(cell, w, opts.Pattern, opts.Direction())
	if err != nil {
		return types.Value{}, err
	}
	return types.Int(idx).WithSpan(cell.Span), nil
}
