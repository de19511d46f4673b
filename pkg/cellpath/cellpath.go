// Package cellpath addresses nested cells inside structured values.
//
// A path is a dot-separated list of members. A member that is all digits
// selects a row of a list; any other member selects a record column.
// Double quotes make a member a literal column name, so "a.b" and "0" are
// treated as keys. A column member applied to a list applies to every row.
package cellpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/types"
)

// Member is one step of a path.
type Member struct {
	Key     string
	Index   int
	IsIndex bool
	Span    types.Span
}

func (m Member) String() string {
	if m.IsIndex {
		return strconv.Itoa(m.Index)
	}
	if m.Key == "" || strings.ContainsAny(m.Key, `."`) || isDigits(m.Key) {
		return strconv.Quote(m.Key)
	}
	return m.Key
}

// Path is a parsed cell path.
type Path struct {
	Members []Member
	Span    types.Span
}

// String renders the path in the form Parse accepts.
func (p Path) String() string {
	parts := make([]string, len(p.Members))
	for i, m := range p.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, ".")
}

// MarshalJSON encodes the path as its text form.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses a path from a JSON string.
func (p *Path) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("cell path must be a string: %w", err)
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Parse parses a cell path. Member spans are relative to text.
func Parse(text string) (Path, error) {
	return ParseAt(text, 0)
}

// ParseAt parses a cell path that starts at byte offset base of a larger
// source, so member spans point into that source.
func ParseAt(text string, base int) (Path, error) {
	path := Path{Span: types.Span{Start: base, End: base + len(text)}}
	if text == "" {
		return path, diag.NewPathTraversal("invalid cell path", "empty cell path", path.Span)
	}

	pos := 0
	for {
		m, next, err := parseMember(text, pos, base)
		if err != nil {
			return Path{}, err
		}
		path.Members = append(path.Members, m)

		if next == len(text) {
			return path, nil
		}
		if text[next] != '.' {
			span := types.Span{Start: base + next, End: base + next + 1}
			return Path{}, diag.NewPathTraversal("invalid cell path", "expected '.' between members", span)
		}
		pos = next + 1
	}
}

// parseMember reads one member starting at pos and returns the offset just
// past it.
func parseMember(text string, pos, base int) (Member, int, error) {
	if pos < len(text) && text[pos] == '"' {
		end := pos + 1
		var sb strings.Builder
		for end < len(text) && text[end] != '"' {
			if text[end] == '\\' && end+1 < len(text) {
				end++
			}
			sb.WriteByte(text[end])
			end++
		}
		if end == len(text) {
			span := types.Span{Start: base + pos, End: base + len(text)}
			return Member{}, 0, diag.NewPathTraversal("invalid cell path", "unterminated quote", span)
		}
		end++
		return Member{Key: sb.String(), Span: types.Span{Start: base + pos, End: base + end}}, end, nil
	}

	end := pos
	for end < len(text) && text[end] != '.' {
		end++
	}
	span := types.Span{Start: base + pos, End: base + end}
	raw := text[pos:end]
	if raw == "" {
		if span.IsUnknown() {
			span.End = 1
		}
		return Member{}, 0, diag.NewPathTraversal("invalid cell path", "empty member", span)
	}

	if isDigits(raw) {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return Member{}, 0, diag.NewPathTraversal("invalid cell path", "row index out of range", span)
		}
		return Member{Index: idx, IsIndex: true, Span: span}, end, nil
	}
	return Member{Key: raw, Span: span}, end, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Get returns the cell addressed by p. A column member applied to a list
// yields a list of that column across all rows.
func Get(v types.Value, p Path) (types.Value, error) {
	return get(v, p.Members)
}

func get(v types.Value, members []Member) (types.Value, error) {
	if len(members) == 0 {
		return v, nil
	}
	m, rest := members[0], members[1:]

	switch v.Kind() {
	case types.KindRecord:
		if m.IsIndex {
			return types.Value{}, cannotIndex(v, m)
		}
		rec, _ := v.AsRecord()
		cell, ok := rec.Get(m.Key)
		if !ok {
			return types.Value{}, missingColumn(m)
		}
		return get(cell, rest)

	case types.KindList:
		rows, _ := v.AsList()
		if m.IsIndex {
			if m.Index >= len(rows) {
				return types.Value{}, rowTooLarge(m, len(rows))
			}
			return get(rows[m.Index], rest)
		}
		out := make([]types.Value, len(rows))
		for i, row := range rows {
			cell, err := get(row, members)
			if err != nil {
				return types.Value{}, err
			}
			out[i] = cell
		}
		return types.List(out...).WithSpan(v.Span), nil

	default:
		return types.Value{}, cannotIndex(v, m)
	}
}

// Update returns a copy of v where every cell addressed by p is replaced by
// fn applied to it. v itself is left untouched. The first error from fn or
// from traversal is returned.
func Update(v types.Value, p Path, fn func(types.Value) (types.Value, error)) (types.Value, error) {
	return update(v, p.Members, fn)
}

func update(v types.Value, members []Member, fn func(types.Value) (types.Value, error)) (types.Value, error) {
	if len(members) == 0 {
		return fn(v)
	}
	m, rest := members[0], members[1:]

	switch v.Kind() {
	case types.KindRecord:
		if m.IsIndex {
			return types.Value{}, cannotIndex(v, m)
		}
		rec, _ := v.AsRecord()
		cell, ok := rec.Get(m.Key)
		if !ok {
			return types.Value{}, missingColumn(m)
		}
		updated, err := update(cell, rest, fn)
		if err != nil {
			return types.Value{}, err
		}
		return types.RecordValue(rec.With(m.Key, updated)).WithSpan(v.Span), nil

	case types.KindList:
		rows, _ := v.AsList()
		out := make([]types.Value, len(rows))
		copy(out, rows)

		if m.IsIndex {
			if m.Index >= len(rows) {
				return types.Value{}, rowTooLarge(m, len(rows))
			}
			updated, err := update(rows[m.Index], rest, fn)
			if err != nil {
				return types.Value{}, err
			}
			out[m.Index] = updated
			return types.List(out...).WithSpan(v.Span), nil
		}

		for i, row := range rows {
			updated, err := update(row, members, fn)
			if err != nil {
				return types.Value{}, err
			}
			out[i] = updated
		}
		return types.List(out...).WithSpan(v.Span), nil

	default:
		return types.Value{}, cannotIndex(v, m)
	}
}

func missingColumn(m Member) error {
	return diag.NewPathTraversal("cannot find column", fmt.Sprintf("cannot find column '%s'", m.Key), m.Span)
}

func rowTooLarge(m Member, rows int) error {
	label := "row number too large (empty content)"
	if rows > 0 {
		label = fmt.Sprintf("row number too large (max: %d)", rows-1)
	}
	return diag.NewPathTraversal("row number too large", label, m.Span)
}

func cannotIndex(v types.Value, m Member) error {
	what := "column"
	if m.IsIndex {
		what = "row"
	}
	return diag.NewPathTraversal(
		"data cannot be accessed with a cell path",
		fmt.Sprintf("%s doesn't support %s access", v.TypeName(), what),
		m.Span,
	)
}
