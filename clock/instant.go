package clock

import (
	"github.com/pkg/errors"
	"tracestats/wrap"
)

// DefaultBits is the width of the timestamp field of a streaming capture.
const DefaultBits = 32

var ErrNotInitialized = errors.New("clock: no event has established the session origin")

// Tick is a wide, wrap-corrected count of hardware timer ticks.
type Tick uint64

// Reading is the result of feeding one raw timestamp to an Instant.
type Reading struct {
	Tick Tick
	// Gap is the forward distance in raw ticks from the previous event.
	Gap uint64
	// Wrapped is set when the raw counter crossed zero since the previous event.
	Wrapped bool
	// Suspect is set when Gap is large enough that more than one wraparound
	// may have happened unnoticed.
	Suspect bool
}

// Instant reconstructs absolute time from a narrow wrapping timer.
// It assumes at most one wraparound between consecutive observations; gaps
// above the configured threshold are flagged Suspect instead of being
// silently trusted.
type Instant struct {
	bits         uint
	gapThreshold uint64
	initialized  bool
	lastRaw      uint64
	wraps        uint64
}

func NewInstant(bits uint) *Instant {
	return &Instant{
		bits:         bits,
		gapThreshold: wrap.Modulus(bits) / 2,
		initialized:  false,
		lastRaw:      0,
		wraps:        0,
	}
}

// SetGapThreshold overrides the raw gap above which readings are Suspect.
// Zero restores the default of half the counter range.
func (instant *Instant) SetGapThreshold(threshold uint64) *Instant {
	if threshold == 0 || threshold >= wrap.Modulus(instant.bits) {
		threshold = wrap.Modulus(instant.bits) / 2
	}
	instant.gapThreshold = threshold
	return instant
}

func (instant *Instant) Bits() uint {
	return instant.bits
}

func (instant *Instant) Initialized() bool {
	return instant.initialized
}

// Initialize sets the session origin from the first observed raw tick and the
// wraparound count reported by the stream header.
func (instant *Instant) Initialize(firstRaw uint32, wraparounds uint32) {
	instant.lastRaw = wrap.Truncate(uint64(firstRaw), instant.bits)
	instant.wraps = uint64(wraparounds)
	instant.initialized = true
}

func (instant *Instant) Elapsed(raw uint32) (Reading, error) {
	if !instant.initialized {
		return Reading{}, ErrNotInitialized
	}
	cur := wrap.Truncate(uint64(raw), instant.bits)
	reading := Reading{
		Gap:     wrap.Forward(instant.lastRaw, cur, instant.bits),
		Wrapped: wrap.Wrapped(instant.lastRaw, cur, instant.bits),
	}
	reading.Suspect = reading.Gap > instant.gapThreshold
	if reading.Wrapped {
		instant.wraps++
	}
	instant.lastRaw = cur
	reading.Tick = instant.Now()
	return reading, nil
}

// Now is the last reconstructed tick, zero before initialization.
func (instant *Instant) Now() Tick {
	if !instant.initialized {
		return 0
	}
	return Tick(wrap.Extend(instant.wraps, instant.lastRaw, instant.bits))
}

// Reset forgets the session origin. The next event must call Initialize.
func (instant *Instant) Reset() {
	instant.initialized = false
	instant.lastRaw = 0
	instant.wraps = 0
}
