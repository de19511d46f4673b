package store

import (
	"testing"

	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscard_KeepsNothing(t *testing.T) {
	var s Store = Discard{}
	item := types.ComputeItemID([]byte(`"a.b"`))

	require.NoError(t, s.AddItem(item, 5))
	require.NoError(t, s.AddProvenance(item, types.StdinProvenance{}))
	require.NoError(t, s.AddResult(&types.Result{ID: "r1", ItemID: item, Command: "str index-of", Output: types.Int(1)}))

	exists, err := s.ItemExists(item)
	require.NoError(t, err)
	assert.False(t, exists)

	results, err := s.GetAllResults()
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.GetResults(item)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, s.Close())
}
