package store

import (
	"sync"

	"github.com/praetorian-inc/locus/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu         sync.RWMutex
	items      map[types.ItemID]int64              // item -> size
	results    []*types.Result                     // insertion order
	resultIDs  map[string]bool                     // dedup by Result.ID
	provenance map[types.ItemID][]types.Provenance // item -> sources
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		items:      make(map[types.ItemID]int64),
		results:    make([]*types.Result, 0),
		resultIDs:  make(map[string]bool),
		provenance: make(map[types.ItemID][]types.Provenance),
	}
}

// AddItem records an item. Adding the same item twice is a no-op.
func (m *MemoryStore) AddItem(id types.ItemID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[id]; !exists {
		m.items[id] = size
	}
	return nil
}

// AddProvenance associates provenance with an item.
func (m *MemoryStore) AddProvenance(id types.ItemID, prov types.Provenance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.provenance[id] {
		if p == prov {
			return nil
		}
	}
	m.provenance[id] = append(m.provenance[id], prov)
	return nil
}

// GetProvenance returns every recorded source of an item.
func (m *MemoryStore) GetProvenance(id types.ItemID) []types.Provenance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provs := m.provenance[id]
	result := make([]types.Provenance, len(provs))
	copy(result, provs)
	return result
}

// AddResult stores a result (deduplicated by ID).
func (m *MemoryStore) AddResult(r *types.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resultIDs[r.ID] {
		return nil
	}
	m.resultIDs[r.ID] = true
	m.results = append(m.results, r)
	return nil
}

// ItemExists checks if an item has already been processed.
func (m *MemoryStore) ItemExists(id types.ItemID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.items[id]
	return exists, nil
}

// GetResults retrieves results for an item.
func (m *MemoryStore) GetResults(id types.ItemID) ([]*types.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*types.Result{}
	for _, r := range m.results {
		if r.ItemID == id {
			result = append(result, r)
		}
	}
	return result, nil
}

// GetAllResults retrieves all results in insertion order.
func (m *MemoryStore) GetAllResults() ([]*types.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid external modifications
	result := make([]*types.Result, len(m.results))
	copy(result, m.results)
	return result, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
