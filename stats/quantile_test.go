package stats

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestNearestRank(t *testing.T) {
	assert.Equal(t, 0, NearestRank(0, 10))
	assert.Equal(t, 4, NearestRank(0.5, 10))
	assert.Equal(t, 8, NearestRank(0.9, 10))
	assert.Equal(t, 9, NearestRank(1, 10))
	assert.Equal(t, 0, NearestRank(0.5, 0))
}

func TestQuantiles(t *testing.T) {
	runs := [][]uint64{
		{1, 3, 5, 7, 9},
		{2, 4, 6, 8, 10},
	}
	got := Quantiles(runs, []float64{0.5, 0.9, 0.99})
	assert.Equal(t, []uint64{5, 9, 10}, got)
}

func TestQuantiles_Empty(t *testing.T) {
	got := Quantiles(nil, []float64{0.5, 0.9})
	assert.Equal(t, []uint64{0, 0}, got)
}

func TestQuantiles_SameRank(t *testing.T) {
	got := Quantiles([][]uint64{{42}}, []float64{0.5, 0.9, 0.99})
	assert.Equal(t, []uint64{42, 42, 42}, got)
}
