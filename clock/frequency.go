package clock

import (
	"math"
	"math/bits"
	"time"
)

const nanosPerSecond = uint64(time.Second)

// Frequency is the timer rate in Hz. Zero means the capture is unitless and
// ticks cannot be mapped to physical time.
type Frequency uint32

const Unitless Frequency = 0

func (freq Frequency) IsUnitless() bool {
	return freq == Unitless
}

// Nanos converts ticks to nanoseconds. The product is computed on 128 bits;
// results that do not fit in 64 bits saturate.
func (freq Frequency) Nanos(ticks Tick) (uint64, bool) {
	if freq.IsUnitless() {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(ticks), nanosPerSecond)
	if hi >= uint64(freq) {
		return math.MaxUint64, true
	}
	quo, _ := bits.Div64(hi, lo, uint64(freq))
	return quo, true
}

func (freq Frequency) Duration(ticks Tick) (time.Duration, bool) {
	ns, ok := freq.Nanos(ticks)
	if !ok {
		return 0, false
	}
	if ns > math.MaxInt64 {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(ns), true
}

// FloatDuration converts a fractional tick count, as produced by means and
// standard deviations.
func (freq Frequency) FloatDuration(ticks float64) (time.Duration, bool) {
	if freq.IsUnitless() {
		return 0, false
	}
	if ticks < 0 || math.IsNaN(ticks) {
		ticks = 0
	}
	ns := ticks * float64(nanosPerSecond) / float64(freq)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64), true
	}
	return time.Duration(ns), true
}
