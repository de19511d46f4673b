// Package argmax implements "dataframe arg-max" over a single-column table.
package argmax

import (
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/types"
)

// Column is the name of the single output column.
const Column = "arg_max"

// Series extracts the numeric column of a one-column table. Accepted
// shapes are a list of numbers, a list of one-column records, and a record
// with a single list column.
func Series(input types.Value) ([]types.Value, error) {
	if rec, ok := input.AsRecord(); ok {
		if rec.Len() != 1 {
			return nil, diag.NewTypeError("expected a single-column table", input)
		}
		col, ok := rec.Vals[0].AsList()
		if !ok {
			return nil, diag.NewTypeError("expected a list column", rec.Vals[0])
		}
		return col, nil
	}

	rows, ok := input.AsList()
	if !ok {
		return nil, diag.NewTypeError("expected a table", input)
	}

	out := make([]types.Value, len(rows))
	var column string
	for i, row := range rows {
		rec, ok := row.AsRecord()
		if !ok {
			out[i] = row
			continue
		}
		if rec.Len() != 1 || (i > 0 && column != rec.Cols[0]) {
			return nil, diag.NewTypeError("expected a single-column table", row)
		}
		column = rec.Cols[0]
		out[i] = rec.Vals[0]
	}
	return out, nil
}

// Index returns the position of the largest value in series, the first one
// on ties. ok is false when series is empty.
func Index(series []types.Value) (idx int, ok bool, err error) {
	var best float64
	for i, v := range series {
		n, isNum := v.AsNumber()
		if !isNum {
			return 0, false, diag.NewTypeError("value is not a number", v)
		}
		if !ok || n > best {
			idx, best, ok = i, n, true
		}
	}
	return idx, ok, nil
}

// Apply returns a one-row table {arg_max: idx}, or an empty table when the
// input series is empty.
func Apply(input types.Value) (types.Value, error) {
	series, err := Series(input)
	if err != nil {
		return types.Value{}, err
	}

	idx, ok, err := Index(series)
	if err != nil {
		return types.Value{}, err
	}
	if !ok {
		return types.List().WithSpan(input.Span), nil
	}

	row := types.RecordOf([]string{Column}, []types.Value{types.Uint(uint64(idx))})
	return types.List(row).WithSpan(input.Span), nil
}

// Collect assembles streamed items into one table. A lone list or record
// item is already a table; otherwise each item is a row.
func Collect(items []types.Value) types.Value {
	if len(items) == 1 {
		switch items[0].Kind() {
		case types.KindList, types.KindRecord:
			return items[0]
		}
	}
	if len(items) == 0 {
		return types.List()
	}
	span := items[0].Span
	for _, item := range items[1:] {
		span = span.Merge(item.Span)
	}
	return types.List(items...).WithSpan(span)
}
