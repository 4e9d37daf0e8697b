package clock

import (
	"github.com/stretchr/testify/assert"
	"math"
	"testing"
	"time"
)

func TestFrequency_Unitless(t *testing.T) {
	_, ok := Unitless.Nanos(1000)
	assert.False(t, ok)
	_, ok = Unitless.Duration(1000)
	assert.False(t, ok)
	_, ok = Unitless.FloatDuration(1.5)
	assert.False(t, ok)
}

func TestFrequency_Nanos(t *testing.T) {
	freq := Frequency(1_000_000)
	ns, ok := freq.Nanos(1500)
	assert.True(t, ok)
	assert.Equal(t, uint64(1_500_000), ns)

	dur, ok := Frequency(100_000_000).Duration(250_000_000)
	assert.True(t, ok)
	assert.Equal(t, 2500*time.Millisecond, dur)
}

func TestFrequency_NanosWideProduct(t *testing.T) {
	// ticks * 1e9 overflows 64 bits but the quotient does not
	freq := Frequency(4_000_000_000)
	ticks := Tick(1) << 40
	ns, ok := freq.Nanos(ticks)
	assert.True(t, ok)
	assert.Equal(t, uint64(274_877_906_944), ns)
}

func TestFrequency_NanosSaturates(t *testing.T) {
	ns, ok := Frequency(1).Nanos(Tick(math.MaxUint64))
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), ns)
}

func TestFrequency_FloatDuration(t *testing.T) {
	dur, ok := Frequency(1000).FloatDuration(2.5)
	assert.True(t, ok)
	assert.Equal(t, 2500*time.Microsecond, dur)
}
