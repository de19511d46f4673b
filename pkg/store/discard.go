package store

import "github.com/praetorian-inc/locus/pkg/types"

// Discard is a Store that keeps nothing. Runs without a history database
// record into it so memory does not grow with the input.
type Discard struct{}

func (Discard) AddItem(types.ItemID, int64) error {
	return nil
}

func (Discard) AddProvenance(types.ItemID, types.Provenance) error {
	return nil
}

func (Discard) AddResult(*types.Result) error {
	return nil
}

// ItemExists always reports false, so incremental runs need a real store.
func (Discard) ItemExists(types.ItemID) (bool, error) {
	return false, nil
}

func (Discard) GetResults(types.ItemID) ([]*types.Result, error) {
	return []*types.Result{}, nil
}

func (Discard) GetAllResults() ([]*types.Result, error) {
	return []*types.Result{}, nil
}

func (Discard) Close() error {
	return nil
}
