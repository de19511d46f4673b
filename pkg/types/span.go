package types

// Span is byte range [Start, End) in the text a value was parsed from.
// The zero Span means the location is unknown.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// IsUnknown reports whether the span carries no location.
func (s Span) IsUnknown() bool {
	return s.Start == 0 && s.End == 0
}

// Merge returns the smallest span covering both s and other.
// Unknown spans are ignored.
func (s Span) Merge(other Span) Span {
	if s.IsUnknown() {
		return other
	}
	if other.IsUnknown() {
		return s
	}
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}
