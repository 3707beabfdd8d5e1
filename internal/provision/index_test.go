package provision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameIndex_ExactMatch(t *testing.T) {
	idx := NewNameIndex("device template")
	idx.Add("Home Air Purifier", "devtpl-1")
	idx.Add("Industrial HVAC", "devtpl-2")

	id, err := idx.Lookup("Home Air Purifier")
	require.NoError(t, err)
	assert.Equal(t, "devtpl-1", id)
	assert.Equal(t, 2, idx.Len())
}

func TestNameIndex_MissIsUniformError(t *testing.T) {
	idx := NewNameIndex("organization")
	idx.Add("Home-1", "org-1")

	// 精确匹配：大小写不同也算 miss
	for _, name := range []string{"home-1", "Home-2", ""} {
		_, err := idx.Lookup(name)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownReference)
		assert.Contains(t, err.Error(), "organization")
	}
}
