package stats

// DurationStats summarizes a series of tick durations: exact min, max and
// total, plus a Welford mean and sample standard deviation.
type DurationStats struct {
	count   uint64
	min     uint64
	max     uint64
	total   uint64
	welford *Welford
}

func NewDurationStats() *DurationStats {
	return &DurationStats{
		count:   0,
		min:     0,
		max:     0,
		total:   0,
		welford: NewWelford(),
	}
}

func (ds *DurationStats) Update(ticks uint64) {
	if ds.count == 0 || ticks < ds.min {
		ds.min = ticks
	}
	if ds.count == 0 || ticks > ds.max {
		ds.max = ticks
	}
	ds.count++
	ds.total += ticks
	ds.welford.Update(float64(ticks))
}

func (ds *DurationStats) Count() uint64 {
	return ds.count
}

func (ds *DurationStats) Min() uint64 {
	return ds.min
}

func (ds *DurationStats) Max() uint64 {
	return ds.max
}

func (ds *DurationStats) Total() uint64 {
	return ds.total
}

func (ds *DurationStats) Mean() float64 {
	return ds.welford.GetMean()
}

func (ds *DurationStats) SD() float64 {
	return ds.welford.GetSD()
}
