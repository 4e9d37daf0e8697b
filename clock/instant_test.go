package clock

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func elapsedAll(t *testing.T, instant *Instant, raws []uint32) []Tick {
	ticks := make([]Tick, 0, len(raws))
	for _, raw := range raws {
		reading, err := instant.Elapsed(raw)
		require.NoError(t, err)
		ticks = append(ticks, reading.Tick)
	}
	return ticks
}

func TestInstant_ElapsedBeforeInitialize(t *testing.T) {
	instant := NewInstant(16)
	_, err := instant.Elapsed(10)
	assert.Equal(t, ErrNotInitialized, err)
	assert.Equal(t, Tick(0), instant.Now())
}

func TestInstant_WrapWidth16(t *testing.T) {
	raws := []uint32{65530, 65534, 2, 10}
	instant := NewInstant(16)
	instant.Initialize(raws[0], 0)

	ticks := elapsedAll(t, instant, raws)
	deltas := make([]Tick, 0, len(ticks))
	for _, tick := range ticks {
		deltas = append(deltas, tick-ticks[0])
	}
	assert.Equal(t, []Tick{0, 4, 8, 16}, deltas)
	assert.Equal(t, Tick(65536+10), instant.Now())
}

func TestInstant_SeededWraparounds(t *testing.T) {
	instant := NewInstant(DefaultBits)
	instant.Initialize(100, 3)

	reading, err := instant.Elapsed(100)
	require.NoError(t, err)
	assert.Equal(t, Tick(3<<32+100), reading.Tick)
	assert.False(t, reading.Wrapped)
	assert.Equal(t, uint64(0), reading.Gap)
}

func TestInstant_NonDecreasing(t *testing.T) {
	instant := NewInstant(8)
	instant.Initialize(0, 0)
	raws := []uint32{0, 100, 200, 250, 3, 3, 90, 180, 255, 0, 1}

	ticks := elapsedAll(t, instant, raws)
	for i := 1; i < len(ticks); i++ {
		assert.GreaterOrEqual(t, uint64(ticks[i]), uint64(ticks[i-1]))
	}
	assert.Equal(t, Tick(2*256+1), ticks[len(ticks)-1])
}

func TestInstant_SuspectGap(t *testing.T) {
	instant := NewInstant(16)
	instant.Initialize(0, 0)

	reading, err := instant.Elapsed(40000)
	require.NoError(t, err)
	assert.True(t, reading.Suspect)

	instant.SetGapThreshold(50000)
	reading, err = instant.Elapsed(14000)
	require.NoError(t, err)
	assert.False(t, reading.Suspect)
	assert.True(t, reading.Wrapped)
	assert.Equal(t, uint64(39536), reading.Gap)
}

func TestInstant_Reset(t *testing.T) {
	instant := NewInstant(16)
	instant.Initialize(500, 2)
	_, err := instant.Elapsed(600)
	require.NoError(t, err)

	instant.Reset()
	assert.False(t, instant.Initialized())
	assert.Equal(t, Tick(0), instant.Now())

	instant.Initialize(0, 0)
	reading, err := instant.Elapsed(7)
	require.NoError(t, err)
	assert.Equal(t, Tick(7), reading.Tick)
}
