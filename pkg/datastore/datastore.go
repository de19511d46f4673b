// Package datastore keeps a content-addressed copy of processed items, so
// recorded results can be traced back to the exact value they came from.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Open opens or creates an item archive rooted at path.
func Open(path string) (*ItemArchive, error) {
	if path == "" {
		return nil, fmt.Errorf("archive path is required")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	// Keep archived items out of version control
	gitignorePath := filepath.Join(path, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("*\n"), 0644); err != nil {
		return nil, fmt.Errorf("writing .gitignore: %w", err)
	}

	return &ItemArchive{Root: path}, nil
}
