// Package rangespec resolves a caller-supplied range into a validated
// [start, end) window over a string of known length.
//
// A range arrives in one of two shapes:
//
//	"start,end"   text, either side may be empty ("1,", ",4", "")
//	[start end]   a list of at most two values, coerced to strings
//
// Omitted or unparseable bounds fall back to 0 and the input length.
package rangespec

import (
	"strconv"
	"strings"

	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/types"
)

type shape int

const (
	shapeText shape = iota
	shapeList
)

// RawRange is an unresolved range in either of its accepted shapes.
type RawRange struct {
	shape shape
	text  string
	list  []types.Value

	// Span locates the range in the caller's input, for diagnostics.
	Span types.Span
}

// Text creates a range from "start,end" text.
func Text(s string) RawRange {
	return RawRange{shape: shapeText, text: s}
}

// List creates a range from up to two bound values.
func List(bounds ...types.Value) RawRange {
	return RawRange{shape: shapeList, list: bounds}
}

// WithSpan returns a copy of r located at span.
func (r RawRange) WithSpan(span types.Span) RawRange {
	r.Span = span
	return r
}

// FromValue normalizes a decoded value: strings become Text, lists become List.
func FromValue(v types.Value) (RawRange, error) {
	if s, ok := v.AsString(); ok {
		return Text(s).WithSpan(v.Span), nil
	}
	if items, ok := v.AsList(); ok {
		return List(items...).WithSpan(v.Span), nil
	}
	return RawRange{}, diag.NewTypeError("value is not string", v)
}

// String renders the range the way a caller would type it.
func (r RawRange) String() string {
	if r.shape == shapeText {
		return r.text
	}
	parts := make([]string, len(r.list))
	for i, v := range r.list {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON encodes the range in its original shape.
func (r RawRange) MarshalJSON() ([]byte, error) {
	if r.shape == shapeText {
		return types.String(r.text).MarshalJSON()
	}
	return types.List(r.list...).MarshalJSON()
}

// UnmarshalJSON accepts either a string or an array.
func (r *RawRange) UnmarshalJSON(data []byte) error {
	var v types.Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	parsed, err := FromValue(v)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Window is a resolved [Start, End) range. 0 <= Start <= End <= length.
type Window struct {
	Start int
	End   int
}

// Len returns the window width.
func (w Window) Len() int {
	return w.End - w.Start
}

// Resolve validates raw against an input of the given length.
// A nil raw behaves like Text("").
func Resolve(raw *RawRange, length int) (Window, error) {
	r := Text("")
	if raw != nil {
		r = *raw
	}

	startText, endText, err := r.bounds()
	if err != nil {
		return Window{}, err
	}

	start := parseBound(startText, 0)
	end := parseBound(endText, int64(length))

	if start < 0 || start > end {
		return Window{}, diag.NewInvalidStart(r.Span)
	}
	if end < 0 || end < start || end > int64(length) {
		return Window{}, diag.NewInvalidEnd(r.Span)
	}

	return Window{Start: int(start), End: int(end)}, nil
}

// bounds returns the raw start and end components. Missing components are
// returned empty and pick up their defaults in parseBound.
func (r RawRange) bounds() (string, string, error) {
	switch r.shape {
	case shapeList:
		if len(r.list) > 2 {
			return "", "", diag.NewTooManyIndexes(r.Span)
		}
		var parts [2]string
		for i, v := range r.list {
			parts[i], _ = v.Coerce()
		}
		return parts[0], parts[1], nil
	default:
		start, end, _ := strings.Cut(r.text, ",")
		return start, end, nil
	}
}

// parseBound parses a base-10 bound. Empty or malformed text yields def.
func parseBound(s string, def int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
