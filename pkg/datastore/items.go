package datastore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/praetorian-inc/locus/pkg/types"
)

// ItemArchive stores canonical item JSON keyed by item ID.
type ItemArchive struct {
	Root string
}

// Store writes content to the archive and returns its item ID.
// The ID is the same one the engine records for the item.
func (a *ItemArchive) Store(content []byte) (types.ItemID, error) {
	id := types.ComputeItemID(content)
	return id, a.write(id, content)
}

// StoreValue archives the canonical JSON of v under the ID the engine
// gives the same value.
func (a *ItemArchive) StoreValue(v types.Value) (types.ItemID, error) {
	id, data, err := types.ComputeValueID(v)
	if err != nil {
		return types.ItemID{}, err
	}
	return id, a.write(id, data)
}

func (a *ItemArchive) write(id types.ItemID, content []byte) error {
	// Content-addressed, so an existing file already holds these bytes
	path := a.itemPath(id)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating item directory: %w", err)
	}

	// Write atomically using temp file + rename. Concurrent writers of the
	// same item use distinct temp files.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing item: %w", err)
	}
	tempPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("writing item: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("writing item: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming item: %w", err)
	}

	return nil
}

// Get retrieves item content by ID.
func (a *ItemArchive) Get(id types.ItemID) ([]byte, error) {
	content, err := os.ReadFile(a.itemPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("item not found: %s", id.Hex())
		}
		return nil, fmt.Errorf("reading item: %w", err)
	}
	return content, nil
}

// GetValue retrieves and decodes an archived item.
func (a *ItemArchive) GetValue(id types.ItemID) (types.Value, error) {
	content, err := a.Get(id)
	if err != nil {
		return types.Value{}, err
	}
	var v types.Value
	if err := v.UnmarshalJSON(content); err != nil {
		return types.Value{}, fmt.Errorf("decoding item %s: %w", id.Hex(), err)
	}
	return v, nil
}

// Exists checks if an item is archived.
func (a *ItemArchive) Exists(id types.ItemID) bool {
	_, err := os.Stat(a.itemPath(id))
	return err == nil
}

// itemPath uses a 2-char prefix directory: items/ab/cdef1234...
func (a *ItemArchive) itemPath(id types.ItemID) string {
	hexID := id.Hex()
	return filepath.Join(a.Root, hexID[:2], hexID[2:])
}
