// Package locate finds a literal pattern inside a window of a string.
package locate

import (
	"strings"
	"unsafe"

	"github.com/coregx/coregex/simd"
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/rangespec"
	"github.com/praetorian-inc/locus/pkg/types"
)

// Direction selects which occurrence is reported.
type Direction int

const (
	// Forward reports the leftmost occurrence.
	Forward Direction = iota
	// Backward reports the rightmost occurrence.
	Backward
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Index returns the byte offset of pattern in s[w.Start:w.End], measured
// from the start of s, or -1 if pattern does not occur in the window.
// w must already be validated against len(s).
func Index(s string, w rangespec.Window, pattern string, dir Direction) int {
	window := s[w.Start:w.End]

	var idx int
	if dir == Backward {
		idx = strings.LastIndex(window, pattern)
	} else {
		idx = simd.Memmem(bytesOf(window), bytesOf(pattern))
	}

	if idx < 0 {
		return -1
	}
	return idx + w.Start
}

// Locate runs Index against a string value.
func Locate(input types.Value, w rangespec.Window, pattern string, dir Direction) (int64, error) {
	s, ok := input.AsString()
	if !ok {
		return 0, diag.NewTypeError("value is not string", input)
	}
	return int64(Index(s, w, pattern, dir)), nil
}

// bytesOf views s as a byte slice without copying. The result is only read.
func bytesOf(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
