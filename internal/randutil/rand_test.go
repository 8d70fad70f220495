package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleSeedDeterministic(t *testing.T) {
	a := ShuffleSeed(42)
	b := ShuffleSeed(42)
	c := ShuffleSeed(43)

	assert.Equal(t, 0, a.Cmp(b))
	assert.NotEqual(t, 0, a.Cmp(c))
	assert.LessOrEqual(t, a.BitLen(), 256)
}

func TestRandomShuffleSeed(t *testing.T) {
	a, err := RandomShuffleSeed()
	require.NoError(t, err)
	b, err := RandomShuffleSeed()
	require.NoError(t, err)

	assert.LessOrEqual(t, a.BitLen(), 256)
	assert.NotEqual(t, 0, a.Cmp(b))
}
