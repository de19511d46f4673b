package store

import (
	"fmt"

	"github.com/praetorian-inc/locus/pkg/types"
)

// Store provides persistence for command results.
// This interface abstracts the underlying storage implementation,
// allowing for different backends.
type Store interface {
	// AddItem records that an input item was processed.
	AddItem(id types.ItemID, size int64) error

	// AddProvenance associates provenance with an item.
	AddProvenance(id types.ItemID, prov types.Provenance) error

	// AddResult stores a result (deduplicated by ID).
	AddResult(r *types.Result) error

	// ItemExists checks if an item has already been processed.
	ItemExists(id types.ItemID) (bool, error)

	// GetResults retrieves results for an item.
	GetResults(id types.ItemID) ([]*types.Result, error)

	// GetAllResults retrieves all results in insertion order.
	GetAllResults() ([]*types.Result, error)

	// Close closes the database connection.
	Close() error
}

// MemoryPath selects the in-memory backend.
const MemoryPath = ":memory:"

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for an in-memory store (useful for testing).
	Path string
}

// New creates a new Store: MemoryStore for ":memory:", SQLite otherwise.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if cfg.Path == MemoryPath {
		return NewMemory(), nil
	}

	return NewSQLite(cfg.Path)
}
