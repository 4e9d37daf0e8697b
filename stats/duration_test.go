package stats

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestDurationStats(t *testing.T) {
	ds := NewDurationStats()
	assert.Equal(t, uint64(0), ds.Min())
	assert.Equal(t, 0.0, ds.SD())

	for _, v := range []uint64{10, 5, 15} {
		ds.Update(v)
	}

	assert.Equal(t, uint64(3), ds.Count())
	assert.Equal(t, uint64(5), ds.Min())
	assert.Equal(t, uint64(15), ds.Max())
	assert.Equal(t, uint64(30), ds.Total())
	assert.Equal(t, 10.0, ds.Mean())
	assert.InDelta(t, 5.0, ds.SD(), 1e-9)
}

func TestDurationStats_Single(t *testing.T) {
	ds := NewDurationStats()
	ds.Update(42)
	assert.Equal(t, uint64(42), ds.Min())
	assert.Equal(t, uint64(42), ds.Max())
	assert.Equal(t, 0.0, ds.SD())
}
