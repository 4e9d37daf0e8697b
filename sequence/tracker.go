package sequence

import (
	"tracestats/wrap"
)

// DefaultBits is the width of the per-event counter in a streaming capture.
const DefaultBits = 16

// Tracker turns a wrapping per-event counter into a count of missed events.
type Tracker struct {
	bits        uint
	last        uint64
	initialized bool
	total       uint64
}

func NewTracker(bits uint) *Tracker {
	wrap.Modulus(bits)
	return &Tracker{
		bits:        bits,
		last:        0,
		initialized: false,
		total:       0,
	}
}

func (tracker *Tracker) Bits() uint {
	return tracker.bits
}

// SetInitialCount records the first counter value of a session without
// reporting any loss.
func (tracker *Tracker) SetInitialCount(seq uint16) {
	tracker.last = wrap.Truncate(uint64(seq), tracker.bits)
	tracker.initialized = true
}

// Update returns the number of events skipped between the previous counter
// value and seq. The source increments the counter once per event, so a
// forward distance of one means nothing was lost. A repeated value counts as
// a full turn of the counter.
func (tracker *Tracker) Update(seq uint16) uint64 {
	cur := wrap.Truncate(uint64(seq), tracker.bits)
	if !tracker.initialized {
		tracker.SetInitialCount(seq)
		return 0
	}
	distance := wrap.Forward(tracker.last, cur, tracker.bits)
	if distance == 0 {
		distance = wrap.Modulus(tracker.bits)
	}
	tracker.last = cur
	dropped := distance - 1
	tracker.total += dropped
	return dropped
}

// Total is the number of dropped events seen by this tracker.
func (tracker *Tracker) Total() uint64 {
	return tracker.total
}

// Reset forgets the last counter value but keeps the running total.
func (tracker *Tracker) Reset() {
	tracker.initialized = false
	tracker.last = 0
}
