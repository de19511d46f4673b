package diag

import (
	"errors"
	"fmt"

	"github.com/praetorian-inc/locus/pkg/types"
)

// Kind classifies a diagnostic.
type Kind int

const (
	KindUnknown Kind = iota
	KindType
	KindTooManyIndexes
	KindInvalidStart
	KindInvalidEnd
	KindPathTraversal
)

// String returns the stable name used in JSON output and logs.
func (k Kind) String() string {
	switch k {
	case KindType:
		return "type_error"
	case KindTooManyIndexes:
		return "too_many_indexes"
	case KindInvalidStart:
		return "invalid_start"
	case KindInvalidEnd:
		return "invalid_end"
	case KindPathTraversal:
		return "path_traversal"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognized names
// decode as KindUnknown.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = KindUnknown
	for c := KindType; c <= KindPathTraversal; c++ {
		if c.String() == string(text) {
			*k = c
			break
		}
	}
	return nil
}

// Error is a labeled diagnostic: a title, plus a short label attached to the
// span of caller input that caused it.
type Error struct {
	Kind  Kind       `json:"kind"`
	Title string     `json:"title"`
	Label string     `json:"label"`
	Span  types.Span `json:"span"`
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrType           = &Error{Kind: KindType}
	ErrTooManyIndexes = &Error{Kind: KindTooManyIndexes}
	ErrInvalidStart   = &Error{Kind: KindInvalidStart}
	ErrInvalidEnd     = &Error{Kind: KindInvalidEnd}
	ErrPathTraversal  = &Error{Kind: KindPathTraversal}
)

func (e *Error) Error() string {
	if e.Label == "" {
		return e.Title
	}
	return fmt.Sprintf("%s (%s)", e.Title, e.Label)
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Title == "" && t.Label == ""
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// NewTypeError reports that v has the wrong type.
func NewTypeError(title string, v types.Value) *Error {
	return &Error{
		Kind:  KindType,
		Title: title,
		Label: "got " + v.TypeName(),
		Span:  v.Span,
	}
}

func NewTooManyIndexes(span types.Span) *Error {
	return &Error{
		Kind:  KindTooManyIndexes,
		Title: "there shouldn't be more than two indexes",
		Label: "too many indexes",
		Span:  span,
	}
}

func NewInvalidStart(span types.Span) *Error {
	return &Error{
		Kind:  KindInvalidStart,
		Title: "start index can't be negative or greater than end index",
		Label: "Invalid start index",
		Span:  span,
	}
}

func NewInvalidEnd(span types.Span) *Error {
	return &Error{
		Kind:  KindInvalidEnd,
		Title: "end index can't be negative, smaller than start index or greater than input length",
		Label: "Invalid end index",
		Span:  span,
	}
}

// NewPathTraversal reports a cell path member that does not resolve.
func NewPathTraversal(title, label string, span types.Span) *Error {
	return &Error{
		Kind:  KindPathTraversal,
		Title: title,
		Label: label,
		Span:  span,
	}
}
