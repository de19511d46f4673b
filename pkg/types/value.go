package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNothing Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindList
	KindRecord
)

// String returns the type name shown in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNothing:
		return "nothing"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Value is a structured value flowing through a pipeline.
// Values are immutable: every update builds a new Value.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	list []Value
	rec  *Record

	// Span locates the value in its source text.
	Span Span
}

// Record is an ordered set of named columns.
type Record struct {
	Cols []string
	Vals []Value
}

func Nothing() Value            { return Value{kind: KindNothing} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Uint(u uint64) Value       { return Value{kind: KindUint, u: u} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// RecordValue wraps a record. The record must not be modified afterwards.
func RecordValue(r *Record) Value {
	if r == nil {
		r = &Record{}
	}
	return Value{kind: KindRecord, rec: r}
}

// RecordOf builds a record value from parallel column and value slices.
func RecordOf(cols []string, vals []Value) Value {
	return RecordValue(&Record{Cols: cols, Vals: vals})
}

// WithSpan returns a copy of v located at span.
func (v Value) WithSpan(span Span) Value {
	v.Span = span
	return v
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// TypeName returns the user-facing name of v's type.
func (v Value) TypeName() string {
	if v.kind == KindList && len(v.list) > 0 {
		for _, item := range v.list {
			if item.kind != KindRecord {
				return "list"
			}
		}
		return "table"
	}
	return v.kind.String()
}

func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)      { return v.i, v.kind == KindInt }
func (v Value) AsUint() (uint64, bool)    { return v.u, v.kind == KindUint }
func (v Value) AsFloat() (float64, bool)  { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)  { return v.s, v.kind == KindString }
func (v Value) AsList() ([]Value, bool)   { return v.list, v.kind == KindList }
func (v Value) AsRecord() (*Record, bool) { return v.rec, v.kind == KindRecord }

// AsNumber converts any numeric variant to float64.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Coerce renders primitive values as strings. Composite and nothing
// values have no string form.
func (v Value) Coerce() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindInt:
		return strconv.FormatInt(v.i, 10), true
	case KindUint:
		return strconv.FormatUint(v.u, 10), true
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.b), true
	default:
		return "", false
	}
}

// Equal compares values structurally, ignoring spans.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNothing:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindUint:
		return v.u == other.u
	case KindFloat:
		return v.f == other.f || (math.IsNaN(v.f) && math.IsNaN(other.f))
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(v.rec.Cols) != len(other.rec.Cols) {
			return false
		}
		for i, col := range v.rec.Cols {
			if other.rec.Cols[i] != col || !v.rec.Vals[i].Equal(other.rec.Vals[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v as compact JSON, for logs and test failure output.
func (v Value) String() string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%s>", v.TypeName())
	}
	return string(data)
}

// MarshalJSON implements json.Marshaler, preserving record column order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNothing:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindUint:
		buf.WriteString(strconv.FormatUint(v.u, 10))
	case KindFloat:
		data, err := json.Marshal(v.f)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindString:
		data, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindRecord:
		buf.WriteByte('{')
		for i, col := range v.rec.Cols {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.rec.Vals[i].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot marshal value of kind %d", v.kind)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Spans are relative to data.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := NewJSONDecoder(bytes.NewReader(data))
	parsed, err := dec.Decode()
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Len returns the number of columns.
func (r *Record) Len() int { return len(r.Cols) }

// Index returns the position of col, or -1.
func (r *Record) Index(col string) int {
	for i, c := range r.Cols {
		if c == col {
			return i
		}
	}
	return -1
}

// Get returns the value stored under col.
func (r *Record) Get(col string) (Value, bool) {
	if i := r.Index(col); i >= 0 {
		return r.Vals[i], true
	}
	return Value{}, false
}

// With returns a copy of r where col holds val. A missing column is appended.
func (r *Record) With(col string, val Value) *Record {
	out := &Record{
		Cols: make([]string, len(r.Cols), len(r.Cols)+1),
		Vals: make([]Value, len(r.Vals), len(r.Vals)+1),
	}
	copy(out.Cols, r.Cols)
	copy(out.Vals, r.Vals)
	if i := out.Index(col); i >= 0 {
		out.Vals[i] = val
		return out
	}
	out.Cols = append(out.Cols, col)
	out.Vals = append(out.Vals, val)
	return out
}
