package enum

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/praetorian-inc/locus/pkg/types"
	"golang.org/x/sync/errgroup"
)

// FilesystemEnumerator enumerates documents from files and directories.
type FilesystemEnumerator struct {
	config Config
}

// NewFilesystemEnumerator creates a new filesystem enumerator.
func NewFilesystemEnumerator(config Config) *FilesystemEnumerator {
	return &FilesystemEnumerator{config: config}
}

// fileEntry holds metadata collected during the walk phase, and the read
// result once a reader has finished with it.
type fileEntry struct {
	path    string
	content []byte
	skip    bool
	err     error
	done    chan struct{}
}

// Enumerate walks every configured path and yields documents in walk order.
// Phase 1: Walk directory trees and collect eligible file paths (fast, sequential).
// Phase 2: Read files in parallel, invoking the callback in walk order.
func (e *FilesystemEnumerator) Enumerate(ctx context.Context, callback func(doc Document) error) error {
	// Phase 1: Walk and collect eligible file paths
	var files []*fileEntry
	for _, root := range e.config.Paths {
		found, err := e.walk(ctx, root)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}

	// Phase 2: Read files in parallel
	numReaders := e.config.Readers
	if numReaders < 1 {
		numReaders = runtime.NumCPU()
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	pathsCh := make(chan *fileEntry, numReaders*2)
	orderedCh := make(chan *fileEntry, numReaders*2)

	// Feed paths to readers, and in the same order to the emitter. The
	// bounded ordered channel limits read-ahead.
	g.Go(func() error {
		defer close(pathsCh)
		defer close(orderedCh)
		for _, f := range files {
			select {
			case orderedCh <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case pathsCh <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	// Parallel readers
	for i := 0; i < numReaders; i++ {
		g.Go(func() error {
			for f := range pathsCh {
				e.readFile(f)
			}
			return nil
		})
	}

	// Emit in walk order
	g.Go(func() error {
		for f := range orderedCh {
			select {
			case <-f.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			if f.err != nil {
				return f.err
			}
			if f.skip {
				continue
			}
			doc := Document{Path: f.path, Content: f.content, ID: types.ComputeItemID(f.content)}
			f.content = nil
			if err := callback(doc); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	// If the caller's context was cancelled but all goroutines finished
	// before noticing, propagate the cancellation.
	if origCtx.Err() != nil {
		return origCtx.Err()
	}
	return nil
}

// walk collects eligible files under root. A root that is a file is
// returned as is, even when hidden.
func (e *FilesystemEnumerator) walk(ctx context.Context, root string) ([]*fileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading input %s: %w", root, err)
	}
	if !info.IsDir() {
		return []*fileEntry{newFileEntry(root)}, nil
	}

	// Load .gitignore patterns if present
	var ignore *gitignore.GitIgnore
	gitignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		if ignore, err = gitignore.CompileIgnoreFile(gitignorePath); err != nil {
			e.logf("not applying %s: %v", gitignorePath, err)
		}
	}

	var files []*fileEntry
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if path != root && !e.config.IncludeHidden && isHidden(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 && !e.config.FollowSymlinks {
			return nil
		}

		if !e.config.IncludeHidden && isHidden(info.Name()) {
			return nil
		}

		if e.config.MaxFileSize > 0 && info.Size() > e.config.MaxFileSize {
			return nil
		}

		if ignore != nil {
			relPath, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if ignore.MatchesPath(relPath) {
				return nil
			}
		}

		files = append(files, newFileEntry(path))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (e *FilesystemEnumerator) logf(format string, args ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Log(format, args...)
	}
}

func newFileEntry(path string) *fileEntry {
	return &fileEntry{path: path, done: make(chan struct{})}
}

// readFile reads a single file into f. Binary files are skipped.
func (e *FilesystemEnumerator) readFile(f *fileEntry) {
	defer close(f.done)

	content, err := os.ReadFile(f.path)
	if err != nil {
		f.err = fmt.Errorf("failed to read file %s: %w", f.path, err)
		return
	}

	if isBinary(content) {
		f.skip = true
		return
	}
	f.content = content
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}

// isBinary detects if content is binary by checking first 8KB for null bytes.
func isBinary(content []byte) bool {
	checkSize := len(content)
	if checkSize > 8192 {
		checkSize = 8192
	}
	return bytes.IndexByte(content[:checkSize], 0) != -1
}
