package core

import (
	"github.com/pkg/errors"
	"sort"
	"tracestats/clock"
	"tracestats/stats"
)

// ErrTimestampBackwards reports a switch-out stamped before the matching
// switch-in. The update is discarded.
var ErrTimestampBackwards = errors.New("switch-out timestamp precedes switch-in")

// ContextRecord accumulates the running time of one execution context.
type ContextRecord struct {
	ID ContextID

	priorities   map[Priority]struct{}
	lastSwitchIn clock.Tick
	running      bool
	totalRuntime uint64
	switchCount  uint64
	durations    *stats.DurationStats
	samples      *IntervalSamples
}

func NewContextRecord(id ContextID, samples *IntervalSamples) *ContextRecord {
	return &ContextRecord{
		ID:           id,
		priorities:   make(map[Priority]struct{}),
		lastSwitchIn: 0,
		running:      false,
		totalRuntime: 0,
		switchCount:  0,
		durations:    stats.NewDurationStats(),
		samples:      samples,
	}
}

func (record *ContextRecord) SwitchIn(ts clock.Tick, priority Priority) {
	record.priorities[priority] = struct{}{}
	record.switchCount++
	record.lastSwitchIn = ts
	record.running = true
}

// SwitchOut closes the running interval at ts and returns its length. A
// record that is not running is left untouched.
func (record *ContextRecord) SwitchOut(ts clock.Tick) (uint64, error) {
	if !record.running {
		return 0, nil
	}
	record.running = false
	if ts < record.lastSwitchIn {
		return 0, errors.Wrapf(ErrTimestampBackwards, "%s: switched in at %d, out at %d",
			record.ID, record.lastSwitchIn, ts)
	}
	delta := uint64(ts - record.lastSwitchIn)
	record.lastSwitchIn = ts
	record.totalRuntime += delta
	record.durations.Update(delta)
	if err := record.samples.Append(delta); err != nil {
		return delta, errors.Wrapf(err, "%s: retain interval", record.ID)
	}
	return delta, nil
}

// Invalidate drops an in-flight switch-in without accounting it.
func (record *ContextRecord) Invalidate() {
	record.running = false
}

func (record *ContextRecord) Running() bool {
	return record.running
}

func (record *ContextRecord) TotalRuntime() uint64 {
	return record.totalRuntime
}

func (record *ContextRecord) SwitchCount() uint64 {
	return record.switchCount
}

// Priorities returns the observed priorities in ascending order.
func (record *ContextRecord) Priorities() []Priority {
	priorities := make([]Priority, 0, len(record.priorities))
	for priority := range record.priorities {
		priorities = append(priorities, priority)
	}
	sort.Slice(priorities, func(i, j int) bool { return priorities[i] < priorities[j] })
	return priorities
}

// Durations summarizes every closed interval, retained or not.
func (record *ContextRecord) Durations() *stats.DurationStats {
	return record.durations
}

func (record *ContextRecord) Samples() *IntervalSamples {
	return record.samples
}
