package engine

import (
	"github.com/praetorian-inc/locus/pkg/types"
)

// Item is one decoded input together with its identity and origin.
type Item struct {
	Value      types.Value
	ID         types.ItemID
	Size       int64
	Provenance types.Provenance
}

// NewItem identifies v by the hash of its canonical JSON.
func NewItem(v types.Value, prov types.Provenance) (Item, error) {
	id, data, err := types.ComputeValueID(v)
	if err != nil {
		return Item{}, err
	}
	return Item{
		Value:      v,
		ID:         id,
		Size:       int64(len(data)),
		Provenance: prov,
	}, nil
}

// JobSummary counts the outcome of a job run.
type JobSummary struct {
	Items   int `json:"items"`
	Skipped int `json:"skipped"` // items already in the store
	Results int `json:"results"`
	Errors  int `json:"errors"` // job failures, logged and skipped
}
