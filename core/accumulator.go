package core

import (
	"github.com/pkg/errors"
	"sort"
	"tracestats/clock"
)

// Accumulator tracks which execution context is running and charges elapsed
// ticks to it on every switch. Time spent in Idle before any record exists
// for it is kept as unattributed time.
type Accumulator struct {
	records      map[ContextID]*ContextRecord
	active       ContextID
	activeSince  clock.Tick
	started      bool
	unattributed uint64

	sampleLimit  int
	samplePolicy TruncationPolicy
	sampleStore  *SampleStore
}

func NewAccumulator(config *Config, store *SampleStore) *Accumulator {
	return &Accumulator{
		records:      make(map[ContextID]*ContextRecord),
		active:       Idle,
		activeSince:  0,
		started:      false,
		unattributed: 0,
		sampleLimit:  config.MaxIntervalSamples,
		samplePolicy: config.TruncationPolicy,
		sampleStore:  store,
	}
}

// Start opens a session at ts with Idle running.
func (acc *Accumulator) Start(ts clock.Tick) {
	acc.active = Idle
	acc.activeSince = ts
	acc.started = true
}

func (acc *Accumulator) Started() bool {
	return acc.started
}

// OnSwitch makes target the running context at ts. Switching to the context
// that is already running changes nothing. A backwards timestamp on the
// outgoing context is returned wrapping ErrTimestampBackwards after the switch
// has still been carried out.
func (acc *Accumulator) OnSwitch(target ContextID, ts clock.Tick, priority Priority) error {
	if !acc.started {
		acc.Start(ts)
	}
	if target == acc.active {
		return nil
	}
	closeErr := acc.closeActive(ts)
	if closeErr != nil && !errors.Is(closeErr, ErrTimestampBackwards) {
		return closeErr
	}
	acc.record(target).SwitchIn(ts, priority)
	acc.active = target
	acc.activeSince = ts
	return closeErr
}

// Close ends the running interval of the active context at ts without
// switching to another one.
func (acc *Accumulator) Close(ts clock.Tick) error {
	if !acc.started {
		return nil
	}
	return acc.closeActive(ts)
}

func (acc *Accumulator) closeActive(ts clock.Tick) error {
	since := acc.activeSince
	acc.activeSince = ts
	if record, ok := acc.records[acc.active]; ok && record.Running() {
		_, err := record.SwitchOut(ts)
		return err
	}
	if acc.active != Idle {
		return nil
	}
	if ts < since {
		return errors.Wrapf(ErrTimestampBackwards, "%s: idle since %d, switched at %d", Idle, since, ts)
	}
	acc.unattributed += uint64(ts - since)
	return nil
}

// ResetActive forgets the running context after a stream restart. Handles
// are not stable across a restart, so an in-flight interval is dropped
// rather than carried into the next session.
func (acc *Accumulator) ResetActive() {
	if record, ok := acc.records[acc.active]; ok {
		record.Invalidate()
	}
	acc.active = Idle
	acc.activeSince = 0
	acc.started = false
}

// ResetSamples discards every retained interval sample. Totals and running
// statistics are kept.
func (acc *Accumulator) ResetSamples() error {
	for _, record := range acc.records {
		if err := record.Samples().Reset(); err != nil {
			return errors.Wrapf(err, "%s: reset samples", record.ID)
		}
	}
	return nil
}

func (acc *Accumulator) record(id ContextID) *ContextRecord {
	record, ok := acc.records[id]
	if !ok {
		samples := NewIntervalSamples(id.Key(), acc.sampleLimit, acc.samplePolicy, acc.sampleStore)
		record = NewContextRecord(id, samples)
		acc.records[id] = record
	}
	return record
}

func (acc *Accumulator) Active() ContextID {
	return acc.active
}

// Unattributed is time Idle was active without a running record of its own,
// such as the span before the first switch of a session.
func (acc *Accumulator) Unattributed() uint64 {
	return acc.unattributed
}

func (acc *Accumulator) Record(id ContextID) (*ContextRecord, bool) {
	record, ok := acc.records[id]
	return record, ok
}

// Records returns every record ordered by context ID.
func (acc *Accumulator) Records() []*ContextRecord {
	records := make([]*ContextRecord, 0, len(acc.records))
	for _, record := range acc.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID.Less(records[j].ID) })
	return records
}
