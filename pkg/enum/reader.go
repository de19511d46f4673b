package enum

import (
	"context"
	"fmt"
	"io"

	"github.com/praetorian-inc/locus/pkg/types"
)

// ReaderEnumerator yields a single document read from r, typically stdin.
type ReaderEnumerator struct {
	r    io.Reader
	path string
}

// NewReaderEnumerator creates an enumerator over r. An empty path names
// standard input.
func NewReaderEnumerator(r io.Reader, path string) *ReaderEnumerator {
	if path == "" {
		path = StdinPath
	}
	return &ReaderEnumerator{r: r, path: path}
}

// Enumerate reads r to the end and yields it as one document.
func (e *ReaderEnumerator) Enumerate(ctx context.Context, callback func(doc Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := io.ReadAll(e.r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", e.path, err)
	}
	return callback(Document{Path: e.path, Content: content, ID: types.ComputeItemID(content)})
}

// New returns a filesystem enumerator when config names paths, or a
// reader enumerator over stdin otherwise. A "-" among the paths reads stdin
// at that position.
func New(config Config, stdin io.Reader) Enumerator {
	if len(config.Paths) == 0 {
		return NewReaderEnumerator(stdin, StdinPath)
	}

	enumerators := splitStdin(config, func() Enumerator {
		return NewReaderEnumerator(stdin, StdinPath)
	})
	if len(enumerators) == 1 {
		return enumerators[0]
	}
	return NewCombinedEnumerator(enumerators...)
}
