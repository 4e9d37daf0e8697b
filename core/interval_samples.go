package core

import (
	"sort"
)

// IntervalSamples retains the individual running-interval durations of one
// context for quantile computation. Retention is bounded by limit: under
// TruncateKeepFirst samples past the limit are only counted, under
// TruncateSpill each full buffer is sorted and written to the spill store.
type IntervalSamples struct {
	ownerID uint64
	limit   int
	policy  TruncationPolicy
	store   *SampleStore

	buf       []uint64
	nextPage  uint64
	spilled   uint64
	truncated uint64
}

func NewIntervalSamples(ownerID uint64, limit int, policy TruncationPolicy, store *SampleStore) *IntervalSamples {
	if policy == TruncateSpill && store == nil {
		policy = TruncateKeepFirst
	}
	return &IntervalSamples{
		ownerID:   ownerID,
		limit:     limit,
		policy:    policy,
		store:     store,
		buf:       make([]uint64, 0),
		nextPage:  0,
		spilled:   0,
		truncated: 0,
	}
}

func (samples *IntervalSamples) Append(ticks uint64) error {
	if samples.limit <= 0 || len(samples.buf) < samples.limit {
		samples.buf = append(samples.buf, ticks)
		return nil
	}
	if samples.policy != TruncateSpill {
		samples.truncated++
		return nil
	}
	if err := samples.spill(); err != nil {
		samples.truncated++
		return err
	}
	samples.buf = append(samples.buf, ticks)
	return nil
}

func (samples *IntervalSamples) spill() error {
	page := make([]uint64, len(samples.buf))
	copy(page, samples.buf)
	sort.Slice(page, func(i, j int) bool { return page[i] < page[j] })
	if err := samples.store.PutPage(samples.ownerID, samples.nextPage, page); err != nil {
		return err
	}
	samples.nextPage++
	samples.spilled += uint64(len(page))
	samples.buf = samples.buf[:0]
	return nil
}

// Retained counts samples available to Runs, in memory or spilled.
func (samples *IntervalSamples) Retained() uint64 {
	return uint64(len(samples.buf)) + samples.spilled
}

// Truncated counts samples that were observed but not retained.
func (samples *IntervalSamples) Truncated() uint64 {
	return samples.truncated
}

// InMemory returns the buffered samples in arrival order.
func (samples *IntervalSamples) InMemory() []uint64 {
	return samples.buf
}

// Runs returns every retained sample as ascending runs, one per spilled page
// plus one for the in-memory buffer.
func (samples *IntervalSamples) Runs() ([][]uint64, error) {
	runs := make([][]uint64, 0, 1)
	if samples.spilled > 0 {
		pages, err := samples.store.Pages(samples.ownerID)
		if err != nil {
			return nil, err
		}
		runs = append(runs, pages...)
	}
	if len(samples.buf) > 0 {
		run := make([]uint64, len(samples.buf))
		copy(run, samples.buf)
		sort.Slice(run, func(i, j int) bool { return run[i] < run[j] })
		runs = append(runs, run)
	}
	return runs, nil
}

// Reset drops every retained sample. Page IDs keep increasing so a cached
// page from before the reset can never be mistaken for a new one.
func (samples *IntervalSamples) Reset() error {
	samples.buf = samples.buf[:0]
	samples.truncated = 0
	if samples.spilled == 0 {
		return nil
	}
	samples.spilled = 0
	return samples.store.DeleteOwner(samples.ownerID)
}
