// Package enum discovers input documents: files under one or more paths,
// or a single reader such as stdin.
package enum

import (
	"context"

	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/types"
)

// StdinPath names the standard input document.
const StdinPath = "-"

// Document is one input source read in full. Decoding it yields items.
type Document struct {
	Path    string
	Content []byte

	// ID is the content hash of the raw document.
	ID types.ItemID
}

// Provenance returns the origin of the item at index within the document.
func (d Document) Provenance(index int) types.Provenance {
	if d.Path == StdinPath {
		return types.StdinProvenance{Index: index}
	}
	return types.FileProvenance{FilePath: d.Path, Index: index}
}

// Enumerator discovers documents from a source.
type Enumerator interface {
	// Enumerate yields documents in a stable order. The callback is never
	// called concurrently.
	Enumerate(ctx context.Context, callback func(doc Document) error) error
}

// Config for enumeration.
type Config struct {
	// Paths are files or directories to read.
	Paths []string

	// IncludeHidden includes hidden files/directories (starting with .).
	IncludeHidden bool

	// MaxFileSize is the maximum file size to process (0 = no limit).
	MaxFileSize int64

	// FollowSymlinks follows symbolic links.
	FollowSymlinks bool

	// Readers is the number of files read in parallel (0 = one per CPU).
	Readers int

	// Logger receives notes about inputs that were skipped. Nil discards them.
	Logger diag.DebugLogger
}
